// 本文件用于告警归档导出测试
package oss

import (
	"strings"
	"testing"
	"time"

	"flood-watch/internal/models"
)

func TestEncodeAlertCSV(t *testing.T) {
	records := []models.AlertRecord{
		{
			ID:            1,
			Sensor:        "flood",
			Level:         "medium",
			WaterHeightCM: 16,
			DistanceCM:    4,
			Confirmations: 3,
			CreatedAt:     time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:            2,
			Sensor:        "flood",
			Level:         "critical",
			WaterHeightCM: 18.5,
			DistanceCM:    1.5,
			Confirmations: 3,
			CreatedAt:     time.Date(2026, 8, 1, 10, 5, 0, 0, time.UTC),
		},
	}

	payload, err := encodeAlertCSV(records)
	if err != nil {
		t.Fatalf("导出失败: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	if len(lines) != 3 {
		t.Fatalf("CSV 行数不匹配: got=%d", len(lines))
	}
	if lines[0] != "id,sensor,level,water_height_cm,distance_cm,confirmations,created_at" {
		t.Fatalf("表头不匹配: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "1,flood,medium,16.00,4.00,3,") {
		t.Fatalf("首行记录不匹配: %s", lines[1])
	}
	if !strings.Contains(lines[2], "critical,18.50,1.50") {
		t.Fatalf("次行记录不匹配: %s", lines[2])
	}
}

func TestNormalizeOSSEndpoint(t *testing.T) {
	cases := []struct {
		raw        string
		disableSSL bool
		want       string
	}{
		{"https://oss-cn-hangzhou.aliyuncs.com", false, "https://oss-cn-hangzhou.aliyuncs.com"},
		{"oss-cn-hangzhou.aliyuncs.com", false, "https://oss-cn-hangzhou.aliyuncs.com"},
		{"oss-cn-hangzhou.aliyuncs.com", true, "http://oss-cn-hangzhou.aliyuncs.com"},
	}
	for _, tc := range cases {
		got, err := normalizeOSSEndpoint(tc.raw, tc.disableSSL)
		if err != nil {
			t.Fatalf("归一化 %q 失败: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("Endpoint 不匹配: got=%s want=%s", got, tc.want)
		}
	}
	if _, err := normalizeOSSEndpoint("  ", false); err == nil {
		t.Fatalf("期望空 Endpoint 返回错误")
	}
}

func TestBuildObjectKeyLayout(t *testing.T) {
	client := &Client{hostName: "node-1"}
	key := client.buildObjectKey(time.Date(2026, 8, 31, 12, 30, 0, 0, time.UTC))
	if key != "flood-alerts/node-1/2026-08/alerts-20260831-123000.csv" {
		t.Fatalf("对象Key不匹配: %s", key)
	}
}
