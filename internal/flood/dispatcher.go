// 本文件用于确认后的告警派发与冷却控制
// 派发顺序：先持久化告警记录 再触发音频与通知 最后进入冷却期
// 外部协作方失败只记录日志 不中断监控循环
package flood

import (
	"context"
	"time"

	"flood-watch/internal/logger"
	"flood-watch/internal/metrics"
	"flood-watch/internal/models"
)

const sensorName = "flood"

// Store 表示告警记录持久化协作方
type Store interface {
	SaveAlert(ctx context.Context, record *models.AlertRecord) (int64, error)
}

// AudioPlayer 表示音频播放协作方
type AudioPlayer interface {
	Play(ctx context.Context, filePath string) error
}

// Notifier 表示告警通知发送器
type Notifier interface {
	Notify(ctx context.Context, payload NotifyPayload) error
}

// NotifyPayload 表示告警通知负载
type NotifyPayload struct {
	Level         Level
	WaterHeightCM float64
	DistanceCM    float64
	Confirmations int
	Time          time.Time
}

// DispatcherOptions 表示派发器的装配参数
type DispatcherOptions struct {
	Store         Store
	Audio         AudioPlayer
	AudioFile     string
	Notifier      Notifier
	Cooldown      time.Duration
	Confirmations int
	Collector     *metrics.Collector
	Async         bool
	Workers       int
	QueueSize     int
}

// Dispatcher 负责告警落库 通知 音频与冷却管理
// 状态只由监控循环这一个协程修改
type Dispatcher struct {
	store         Store
	audio         AudioPlayer
	audioFile     string
	notifier      Notifier
	cooldown      time.Duration
	confirmations int
	collector     *metrics.Collector
	cooldownUntil time.Time
	pool          *dispatchPool
}

// NewDispatcher 创建告警派发器
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	dispatcher := &Dispatcher{
		store:         opts.Store,
		audio:         opts.Audio,
		audioFile:     opts.AudioFile,
		notifier:      opts.Notifier,
		cooldown:      opts.Cooldown,
		confirmations: opts.Confirmations,
		collector:     opts.Collector,
	}
	if dispatcher.collector == nil {
		dispatcher.collector = metrics.Global()
	}
	if opts.Async {
		dispatcher.pool = newDispatchPool(opts.Workers, opts.QueueSize)
	}
	return dispatcher
}

// InCooldown 判断当前时刻是否处于冷却期
func (d *Dispatcher) InCooldown(now time.Time) bool {
	return now.Before(d.cooldownUntil)
}

// CooldownRemaining 返回冷却剩余时长 非冷却期返回零
func (d *Dispatcher) CooldownRemaining(now time.Time) time.Duration {
	if !d.InCooldown(now) {
		return 0
	}
	return d.cooldownUntil.Sub(now)
}

// Cooldown 返回配置的冷却时长
func (d *Dispatcher) Cooldown() time.Duration {
	return d.cooldown
}

// Dispatch 派发一次已确认的告警
// 冷却期内直接抑制 不产生任何副作用
func (d *Dispatcher) Dispatch(now time.Time, level Level, waterHeightCM, distanceCM float64) (*models.AlertRecord, DecisionStatus) {
	if d.InCooldown(now) {
		logger.Warn("冷却期内抑制告警: level=%s height=%.2fcm", level, waterHeightCM)
		return nil, StatusSuppressed
	}

	record := &models.AlertRecord{
		Sensor:        sensorName,
		Level:         string(level),
		WaterHeightCM: waterHeightCM,
		DistanceCM:    distanceCM,
		Confirmations: d.confirmations,
		CreatedAt:     now,
	}

	// 先进入冷却 再执行副作用 异步失败不会把冷却窗口留空
	d.cooldownUntil = now.Add(d.cooldown)

	d.runTask("store", func() error { return d.saveRecord(record) })
	d.runTask("audio", func() error { return d.playAudio() })
	d.runTask("notify", func() error { return d.sendNotification(record) })

	logger.Info("告警已派发: level=%s height=%.2fcm distance=%.2fcm", level, waterHeightCM, distanceCM)
	return record, StatusSent
}

// runTask 用于按配置选择同步或异步执行副作用 失败计入对应指标
func (d *Dispatcher) runTask(name string, run func() error) {
	counted := func() error {
		err := run()
		if err != nil {
			d.countFailure(name)
		}
		return err
	}
	if d.pool != nil {
		d.pool.Submit(name, counted)
		return
	}
	if err := counted(); err != nil {
		logger.Error("告警副作用 %s 失败: %v", name, err)
	}
}

func (d *Dispatcher) countFailure(name string) {
	switch name {
	case "store":
		d.collector.IncStoreFailure()
	case "notify":
		d.collector.IncNotifyFailure()
	}
}

// saveRecord 用于持久化告警记录
func (d *Dispatcher) saveRecord(record *models.AlertRecord) error {
	if d.store == nil {
		return nil
	}
	id, err := d.store.SaveAlert(context.Background(), record)
	if err != nil {
		return err
	}
	record.ID = id
	return nil
}

// playAudio 用于触发音频提示 音频缺失由播放器内部降级
func (d *Dispatcher) playAudio() error {
	if d.audio == nil || d.audioFile == "" {
		return nil
	}
	return d.audio.Play(context.Background(), d.audioFile)
}

// sendNotification 用于发送通知并处理异常回退
func (d *Dispatcher) sendNotification(record *models.AlertRecord) error {
	if d.notifier == nil {
		return nil
	}
	payload := NotifyPayload{
		Level:         Level(record.Level),
		WaterHeightCM: record.WaterHeightCM,
		DistanceCM:    record.DistanceCM,
		Confirmations: record.Confirmations,
		Time:          record.CreatedAt,
	}
	return d.notifier.Notify(context.Background(), payload)
}

// Close 停止派发器持有的工作池
func (d *Dispatcher) Close() {
	if d.pool != nil {
		d.pool.Shutdown()
	}
}
