// 本文件用于水位监控循环测试
package flood

import (
	"context"
	"testing"
	"time"

	"flood-watch/internal/metrics"
	"flood-watch/internal/sensor"
)

type queueDistancer struct {
	distances []float64
	idx       int
}

func (q *queueDistancer) ReadDistanceCM(ctx context.Context) (float64, error) {
	if q.idx >= len(q.distances) {
		return q.distances[len(q.distances)-1], nil
	}
	value := q.distances[q.idx]
	q.idx++
	return value, nil
}

type monitorFixture struct {
	monitor *Monitor
	store   *fakeStore
	state   *State
}

// 每周期一条读数 便于直接用距离序列驱动循环
func newMonitorFixture(t *testing.T, distances []float64) *monitorFixture {
	t.Helper()
	sampler, err := sensor.NewSampler(&queueDistancer{distances: distances}, sensor.SamplerOptions{
		Readings: 1,
		MinCM:    1,
		MaxCM:    400,
	})
	if err != nil {
		t.Fatalf("创建采样器失败: %v", err)
	}
	classifier, err := NewClassifier(DefaultThresholds())
	if err != nil {
		t.Fatalf("创建判定器失败: %v", err)
	}
	tracker, err := NewTracker(3, LevelMedium)
	if err != nil {
		t.Fatalf("创建跟踪器失败: %v", err)
	}
	store := &fakeStore{}
	dispatcher := NewDispatcher(DispatcherOptions{
		Store:    store,
		Cooldown: 10 * time.Second,
	})
	state := NewState()
	monitor := NewMonitor(MonitorOptions{
		Sampler:           sampler,
		Classifier:        classifier,
		Tracker:           tracker,
		Dispatcher:        dispatcher,
		State:             state,
		Collector:         metrics.NewCollector(),
		ContainerHeightCM: 20,
		PollInterval:      2 * time.Second,
	})
	return &monitorFixture{monitor: monitor, store: store, state: state}
}

func TestCycleConfirmThenDispatchOnce(t *testing.T) {
	// 容器高 20cm 距离 4cm 对应水位 16cm 即 medium
	fixture := newMonitorFixture(t, []float64{10, 10, 4, 4, 4, 4, 4})

	now := time.Now()
	var dispatches int
	for i := 0; i < 7; i++ {
		if fixture.monitor.CycleOnce(context.Background(), now.Add(time.Duration(i)*2*time.Second)) {
			dispatches++
		}
	}

	if dispatches != 1 {
		t.Fatalf("连续确认后应恰好派发一次: got=%d", dispatches)
	}
	if len(fixture.store.saved) != 1 {
		t.Fatalf("应恰好落库一条告警: got=%d", len(fixture.store.saved))
	}
	record := fixture.store.saved[0]
	if record.Level != "medium" || record.WaterHeightCM != 16 || record.DistanceCM != 4 {
		t.Fatalf("告警记录内容不匹配: %+v", record)
	}

	stats := fixture.state.Dashboard().Stats
	if stats.Cycles != 7 || stats.Sent != 1 {
		t.Fatalf("周期统计不匹配: %+v", stats)
	}
}

func TestCycleGlitchDoesNotAlert(t *testing.T) {
	// 两次 medium 后插入一个低水位周期 确认计数被清零
	fixture := newMonitorFixture(t, []float64{4, 4, 10, 4, 4})

	now := time.Now()
	for i := 0; i < 5; i++ {
		if fixture.monitor.CycleOnce(context.Background(), now.Add(time.Duration(i)*2*time.Second)) {
			t.Fatalf("被毛刺打断的序列不应派发告警")
		}
	}
	if len(fixture.store.saved) != 0 {
		t.Fatalf("不应有告警落库: got=%d", len(fixture.store.saved))
	}
}

func TestCycleSensorFailureKeepsStreak(t *testing.T) {
	// 读数 0 低于开区间下界 该周期采样失败 但不触碰确认状态
	fixture := newMonitorFixture(t, []float64{4, 4, 0, 4})

	now := time.Now()
	var dispatches int
	for i := 0; i < 4; i++ {
		if fixture.monitor.CycleOnce(context.Background(), now.Add(time.Duration(i)*2*time.Second)) {
			dispatches++
		}
	}

	// 采样失败的周期不推进也不清零 第四个周期完成第三次确认
	if dispatches != 1 {
		t.Fatalf("采样失败不应清空确认计数: dispatches=%d", dispatches)
	}
	stats := fixture.state.Dashboard().Stats
	if stats.SensorFailures != 1 {
		t.Fatalf("应记录一次采样失败: %+v", stats)
	}
}

func TestCycleSuppressedDuringCooldown(t *testing.T) {
	// 持续 critical 确认两轮 第二轮落在冷却期内被抑制
	fixture := newMonitorFixture(t, []float64{1.5, 1.5, 1.5, 1.5, 1.5, 1.5})

	now := time.Now()
	var sent, suppressed int
	for i := 0; i < 6; i++ {
		fixture.monitor.CycleOnce(context.Background(), now.Add(time.Duration(i)*2*time.Second))
	}
	stats := fixture.state.Dashboard().Stats
	sent = stats.Sent
	suppressed = stats.Suppressed
	if sent != 1 || suppressed != 1 {
		t.Fatalf("冷却期统计不匹配: sent=%d suppressed=%d", sent, suppressed)
	}
}

func TestUpdateThresholdsSwapsClassifier(t *testing.T) {
	fixture := newMonitorFixture(t, []float64{4})

	thresholds := &Thresholds{Entries: []ThresholdEntry{
		{Level: "low", HeightCM: 5},
		{Level: "medium", HeightCM: 8},
		{Level: "critical", HeightCM: 12},
	}}
	if err := fixture.monitor.UpdateThresholds(thresholds, "test"); err != nil {
		t.Fatalf("更新阈值失败: %v", err)
	}
	if got := fixture.monitor.CurrentClassifier().Classify(16); got != LevelCritical {
		t.Fatalf("新阈值应生效: got=%s", got)
	}

	invalid := &Thresholds{Entries: []ThresholdEntry{{Level: "none", HeightCM: 1}}}
	if err := fixture.monitor.UpdateThresholds(invalid, "test"); err == nil {
		t.Fatalf("无效阈值表应被拒绝")
	}
	// 容器高度 20cm 不低于它的阈值级别无法触达
	unreachable := &Thresholds{Entries: []ThresholdEntry{
		{Level: "low", HeightCM: 5},
		{Level: "medium", HeightCM: 10},
		{Level: "critical", HeightCM: 25},
	}}
	if err := fixture.monitor.UpdateThresholds(unreachable, "test"); err == nil {
		t.Fatalf("超出容器高度的阈值应被拒绝")
	}
	// 拒绝后仍然使用上一份有效阈值
	if got := fixture.monitor.CurrentClassifier().Classify(16); got != LevelCritical {
		t.Fatalf("拒绝后应保留旧阈值: got=%s", got)
	}
}
