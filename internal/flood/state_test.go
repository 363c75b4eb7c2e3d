// 本文件用于监控运行态测试
package flood

import (
	"testing"
	"time"
)

func TestDashboardAggregatesCycles(t *testing.T) {
	state := NewState()
	now := time.Now()

	state.RecordCycle(now.Add(-4*time.Second), 10, 10, LevelNone, 0, StatusRecorded, "")
	state.RecordCycle(now.Add(-2*time.Second), 4, 16, LevelMedium, 2, StatusRecorded, "")
	state.RecordCycle(now, 4, 16, LevelMedium, 3, StatusSent, "")

	dashboard := state.Dashboard()
	if dashboard.Stats.Cycles != 3 || dashboard.Stats.Sent != 1 {
		t.Fatalf("统计不匹配: %+v", dashboard.Stats)
	}
	if len(dashboard.Cycles) != 3 {
		t.Fatalf("周期列表长度不匹配: got=%d", len(dashboard.Cycles))
	}
	// 列表按时间倒序 最新周期在首位
	if dashboard.Cycles[0].Status != string(StatusSent) {
		t.Fatalf("最新周期应排在首位: %+v", dashboard.Cycles[0])
	}
	if dashboard.Overview.Risk != "高" {
		t.Fatalf("只有 medium 告警时风险应为高: got=%s", dashboard.Overview.Risk)
	}
	if dashboard.Overview.Sent != 1 || dashboard.Overview.Latest == "--" {
		t.Fatalf("概览派发信息不匹配: %+v", dashboard.Overview)
	}
}

func TestDashboardRiskEscalation(t *testing.T) {
	state := NewState()
	now := time.Now()
	state.RecordCycle(now, 1.5, 18.5, LevelCritical, 1, StatusRecorded, "")

	if risk := state.Dashboard().Overview.Risk; risk != "严重" {
		t.Fatalf("出现 critical 周期时风险应为严重: got=%s", risk)
	}
}

func TestRecordCycleRingLimit(t *testing.T) {
	state := NewState()
	now := time.Now()
	for i := 0; i < maxCycleRecords+20; i++ {
		state.RecordCycle(now.Add(time.Duration(i)*time.Second), 10, 10, LevelNone, 0, StatusRecorded, "")
	}

	dashboard := state.Dashboard()
	if len(dashboard.Cycles) != maxCycleRecords {
		t.Fatalf("周期列表应截断到上限: got=%d want=%d", len(dashboard.Cycles), maxCycleRecords)
	}
	// 截断只影响列表 累计统计保持完整
	if dashboard.Stats.Cycles != maxCycleRecords+20 {
		t.Fatalf("累计周期数不匹配: got=%d", dashboard.Stats.Cycles)
	}
}

func TestUpdateSummaries(t *testing.T) {
	state := NewState()
	state.UpdateThresholdSummary(ThresholdSummary{Source: "thresholds.yaml", ConfirmCount: 3})
	state.UpdatePollSummary(PollSummary{Interval: "2秒", Cooldown: "10秒"})

	dashboard := state.Dashboard()
	if dashboard.Thresholds.Source != "thresholds.yaml" {
		t.Fatalf("阈值摘要不匹配: %+v", dashboard.Thresholds)
	}
	if dashboard.Polling.Interval != "2秒" || dashboard.Polling.Cooldown != "10秒" {
		t.Fatalf("轮询摘要不匹配: %+v", dashboard.Polling)
	}
}
