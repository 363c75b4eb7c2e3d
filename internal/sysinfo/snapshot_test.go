// 本文件用于主机快照采集测试
package sysinfo

import (
	"testing"
	"time"
)

func TestSnapshotBasics(t *testing.T) {
	collector := NewCollector(t.TempDir())
	snapshot := collector.Snapshot()

	if snapshot.Host == "" || snapshot.OS == "" {
		t.Fatalf("主机信息不应为空: %+v", snapshot)
	}
	if snapshot.CPUCores <= 0 || snapshot.Goroutines <= 0 {
		t.Fatalf("运行时信息不匹配: %+v", snapshot)
	}
	if snapshot.CapturedAt == "" {
		t.Fatalf("采集时间不应为空")
	}
}

func TestSnapshotUsesCache(t *testing.T) {
	collector := NewCollector(t.TempDir())
	first := collector.Snapshot()
	second := collector.Snapshot()

	// 缓存窗口内两次快照应完全一致
	if first.CapturedAt != second.CapturedAt || first.Goroutines != second.Goroutines {
		t.Fatalf("缓存未生效: first=%+v second=%+v", first, second)
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{512, "512B"},
		{2048, "2.0KB"},
		{1536 * 1024, "1.5MB"},
	}
	for _, tc := range cases {
		if got := formatBytes(tc.in); got != tc.want {
			t.Fatalf("字节格式化不匹配: got=%s want=%s", got, tc.want)
		}
	}
}

func TestFormatUptime(t *testing.T) {
	if got := formatUptime(0); got != "--" {
		t.Fatalf("零时长应显示占位: got=%s", got)
	}
	if got := formatUptime(26 * time.Hour); got != "1天2小时" {
		t.Fatalf("天级时长不匹配: got=%s", got)
	}
	if got := formatUptime(90 * time.Minute); got != "1小时30分" {
		t.Fatalf("小时级时长不匹配: got=%s", got)
	}
	if got := formatUptime(5 * time.Minute); got != "5分钟" {
		t.Fatalf("分钟级时长不匹配: got=%s", got)
	}
}

func TestClampPct(t *testing.T) {
	if got := clampPct(-3); got != 0 {
		t.Fatalf("负值应钳到零: got=%v", got)
	}
	if got := clampPct(150); got != 100 {
		t.Fatalf("超界应钳到一百: got=%v", got)
	}
}
