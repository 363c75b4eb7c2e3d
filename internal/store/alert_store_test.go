// 本文件用于告警存储测试
package store

import (
	"context"
	"testing"
	"time"

	"flood-watch/internal/models"
)

func openTestStore(t *testing.T) *AlertStore {
	t.Helper()
	alertStore, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("打开告警存储失败: %v", err)
	}
	t.Cleanup(func() { _ = alertStore.Close() })
	return alertStore
}

func TestSaveAndQueryAlerts(t *testing.T) {
	alertStore := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		record := &models.AlertRecord{
			Sensor:        "flood",
			Level:         "medium",
			WaterHeightCM: 16,
			DistanceCM:    4,
			Confirmations: 3,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		id, err := alertStore.SaveAlert(ctx, record)
		if err != nil {
			t.Fatalf("写入告警失败: %v", err)
		}
		if id != int64(i+1) {
			t.Fatalf("自增主键不匹配: got=%d want=%d", id, i+1)
		}
	}

	records, err := alertStore.RecentAlerts(ctx, 10)
	if err != nil {
		t.Fatalf("查询告警失败: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("记录条数不匹配: got=%d", len(records))
	}
	// 按时间倒序 最新的记录在首位
	if !records[0].CreatedAt.After(records[2].CreatedAt) {
		t.Fatalf("记录未按时间倒序: first=%v last=%v", records[0].CreatedAt, records[2].CreatedAt)
	}
	if records[0].Level != "medium" || records[0].WaterHeightCM != 16 {
		t.Fatalf("记录内容不匹配: %+v", records[0])
	}
}

func TestRecentAlertsOrderWithTrimmedFractions(t *testing.T) {
	alertStore := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 5, 0, time.UTC)

	// 500ms 序列化为 .5 520ms 序列化为 .52 字符串比较会把 .5 排到 .52 之后
	early := &models.AlertRecord{Sensor: "flood", Level: "medium", CreatedAt: base.Add(500 * time.Millisecond)}
	late := &models.AlertRecord{Sensor: "flood", Level: "critical", CreatedAt: base.Add(520 * time.Millisecond)}
	if _, err := alertStore.SaveAlert(ctx, early); err != nil {
		t.Fatalf("写入告警失败: %v", err)
	}
	if _, err := alertStore.SaveAlert(ctx, late); err != nil {
		t.Fatalf("写入告警失败: %v", err)
	}

	records, err := alertStore.RecentAlerts(ctx, 10)
	if err != nil {
		t.Fatalf("查询告警失败: %v", err)
	}
	if len(records) != 2 || records[0].Level != "critical" {
		t.Fatalf("最新写入的记录应排在首位: %+v", records)
	}
	if !records[0].CreatedAt.After(records[1].CreatedAt) {
		t.Fatalf("记录未按产生顺序倒序: first=%v second=%v", records[0].CreatedAt, records[1].CreatedAt)
	}
}

func TestRecentAlertsLimit(t *testing.T) {
	alertStore := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		record := &models.AlertRecord{
			Sensor:        "flood",
			Level:         "low",
			WaterHeightCM: 13,
			DistanceCM:    7,
			Confirmations: 3,
			CreatedAt:     time.Now().Add(time.Duration(i) * time.Second),
		}
		if _, err := alertStore.SaveAlert(ctx, record); err != nil {
			t.Fatalf("写入告警失败: %v", err)
		}
	}

	records, err := alertStore.RecentAlerts(ctx, 2)
	if err != nil {
		t.Fatalf("查询告警失败: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("限制条数不生效: got=%d", len(records))
	}
}

func TestSaveAlertNilRecord(t *testing.T) {
	alertStore := openTestStore(t)
	if _, err := alertStore.SaveAlert(context.Background(), nil); err == nil {
		t.Fatalf("期望空记录返回错误")
	}
}

func TestStoreNotInitialized(t *testing.T) {
	var alertStore *AlertStore
	if _, err := alertStore.SaveAlert(context.Background(), &models.AlertRecord{}); err == nil {
		t.Fatalf("未初始化存储应返回错误")
	}
	if _, err := alertStore.RecentAlerts(context.Background(), 10); err == nil {
		t.Fatalf("未初始化存储应返回错误")
	}
	if err := alertStore.Close(); err != nil {
		t.Fatalf("未初始化存储关闭应为空操作: %v", err)
	}
}
