// 本文件用于水位监控主循环
// 每个周期串行执行 采样 -> 推算水位 -> 级别判定 -> 连续确认 -> 告警派发
// 周期之间的等待是普通阻塞 不存在并发修改确认状态的路径
package flood

import (
	"context"
	"errors"
	"sync"
	"time"

	"flood-watch/internal/logger"
	"flood-watch/internal/metrics"
	"flood-watch/internal/sensor"
)

// MonitorOptions 表示监控循环的装配参数
type MonitorOptions struct {
	Sampler           *sensor.Sampler
	Classifier        *Classifier
	Tracker           *Tracker
	Dispatcher        *Dispatcher
	State             *State
	Collector         *metrics.Collector
	ContainerHeightCM float64
	PollInterval      time.Duration
}

// Monitor 负责驱动采样与告警的轮询循环
type Monitor struct {
	sampler           *sensor.Sampler
	tracker           *Tracker
	dispatcher        *Dispatcher
	state             *State
	collector         *metrics.Collector
	containerHeightCM float64
	interval          time.Duration

	classifierMu sync.RWMutex
	classifier   *Classifier
}

// NewMonitor 创建监控循环
func NewMonitor(opts MonitorOptions) *Monitor {
	monitor := &Monitor{
		sampler:           opts.Sampler,
		tracker:           opts.Tracker,
		dispatcher:        opts.Dispatcher,
		state:             opts.State,
		collector:         opts.Collector,
		containerHeightCM: opts.ContainerHeightCM,
		interval:          opts.PollInterval,
		classifier:        opts.Classifier,
	}
	if monitor.interval <= 0 {
		monitor.interval = 2 * time.Second
	}
	if monitor.state == nil {
		monitor.state = NewState()
	}
	if monitor.collector == nil {
		monitor.collector = metrics.Global()
	}
	return monitor
}

// Run 启动轮询循环 直到上下文取消
func (m *Monitor) Run(ctx context.Context) {
	logger.Info("水位监控已启动: interval=%s cooldown=%s", formatDuration(m.interval), formatDuration(m.dispatcher.Cooldown()))
	for {
		dispatched := m.CycleOnce(ctx, time.Now())

		wait := m.interval
		if dispatched {
			// 告警后先冷却 再恢复正常轮询节奏
			wait = m.dispatcher.Cooldown() + m.interval
		}
		select {
		case <-ctx.Done():
			logger.Info("水位监控已停止")
			return
		case <-time.After(wait):
		}
	}
}

// CycleOnce 执行单次采样周期 返回本周期是否派发了告警
func (m *Monitor) CycleOnce(ctx context.Context, now time.Time) bool {
	started := time.Now()
	defer func() {
		m.collector.ObserveCycle(time.Since(started))
	}()

	distanceCM, err := m.sampler.Acquire(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		// 采样失败只记录并等待下个周期 不触碰确认状态
		logger.Warn("采样失败 等待下个周期重试: %v", err)
		m.collector.IncSensorFailure()
		m.state.RecordCycle(now, 0, 0, LevelNone, m.tracker.Streak(), StatusSensorFailed, err.Error())
		m.updatePollSummary(now, err)
		return false
	}

	heightCM := EstimateHeight(distanceCM, m.containerHeightCM)
	level := m.CurrentClassifier().Classify(heightCM)
	logger.Info("距离: %.2fcm | 水位: %.2fcm | 级别: %s", distanceCM, heightCM, level)

	m.collector.SetWaterHeight(heightCM)
	m.collector.SetFloodLevel(level.Rank())

	status := StatusRecorded
	reason := ""
	dispatched := false
	if m.tracker.Observe(level) {
		_, st := m.dispatcher.Dispatch(now, level, heightCM, distanceCM)
		status = st
		switch st {
		case StatusSent:
			dispatched = true
			m.collector.IncAlertSent()
		case StatusSuppressed:
			reason = "冷却期内已告警"
			m.collector.IncAlertSuppressed()
		}
	}

	m.state.RecordCycle(now, distanceCM, heightCM, level, m.tracker.Streak(), status, reason)
	m.collector.SetCooldownActive(m.dispatcher.InCooldown(time.Now()))
	m.updatePollSummary(now, nil)
	return dispatched
}

// CurrentClassifier 返回当前生效的阈值判定器
func (m *Monitor) CurrentClassifier() *Classifier {
	m.classifierMu.RLock()
	defer m.classifierMu.RUnlock()
	return m.classifier
}

// UpdateThresholds 运行时更新阈值表
func (m *Monitor) UpdateThresholds(thresholds *Thresholds, source string) error {
	classifier, err := NewClassifier(thresholds)
	if err != nil {
		return err
	}
	if err := CheckAgainstContainer(thresholds, m.containerHeightCM); err != nil {
		return err
	}
	m.classifierMu.Lock()
	m.classifier = classifier
	m.classifierMu.Unlock()

	m.state.UpdateThresholdSummary(ThresholdSummary{
		Source:        source,
		LastLoaded:    formatTime(time.Now()),
		Entries:       classifier.Summary(),
		MinAlertLevel: string(m.tracker.MinAlertLevel()),
		ConfirmCount:  m.tracker.ConfirmCount(),
	})
	logger.Info("阈值表已更新: source=%s entries=%d", source, len(thresholds.Entries))
	return nil
}

// updatePollSummary 用于更新运行状态或配置
func (m *Monitor) updatePollSummary(at time.Time, pollErr error) {
	now := time.Now()
	summary := PollSummary{
		Interval:   formatDuration(m.interval),
		Cooldown:   formatDuration(m.dispatcher.Cooldown()),
		InCooldown: m.dispatcher.InCooldown(now),
		LastCycle:  formatTime(at),
		NextCycle:  formatTime(at.Add(m.interval)),
	}
	if remaining := m.dispatcher.CooldownRemaining(now); remaining > 0 {
		summary.CooldownLeft = formatDuration(remaining)
	}
	if pollErr != nil {
		summary.Error = pollErr.Error()
	}
	m.state.UpdatePollSummary(summary)
}
