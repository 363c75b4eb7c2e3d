// 本文件用于水位阈值表加载与级别判定测试
package flood

import (
	"os"
	"path/filepath"
	"testing"
)

func defaultClassifier(t *testing.T) *Classifier {
	t.Helper()
	classifier, err := NewClassifier(DefaultThresholds())
	if err != nil {
		t.Fatalf("创建默认判定器失败: %v", err)
	}
	return classifier
}

func TestClassifyDefaultThresholds(t *testing.T) {
	classifier := defaultClassifier(t)

	cases := []struct {
		heightCM float64
		want     Level
	}{
		{0, LevelNone},
		{12.99, LevelNone},
		{13, LevelLow},
		{14.9, LevelLow},
		{15, LevelMedium},
		{17.99, LevelMedium},
		{18, LevelCritical},
		{25, LevelCritical},
	}
	for _, tc := range cases {
		if got := classifier.Classify(tc.heightCM); got != tc.want {
			t.Fatalf("高度 %.2fcm 判定不匹配: got=%s want=%s", tc.heightCM, got, tc.want)
		}
	}
}

func TestNormalizeThresholdsRejectsInvalid(t *testing.T) {
	cases := []struct {
		name    string
		entries []ThresholdEntry
	}{
		{"空表", nil},
		{"包含none", []ThresholdEntry{{Level: "none", HeightCM: 5}}},
		{"未知级别", []ThresholdEntry{{Level: "extreme", HeightCM: 5}}},
		{"级别乱序", []ThresholdEntry{
			{Level: "medium", HeightCM: 10},
			{Level: "low", HeightCM: 12},
		}},
		{"高度非递增", []ThresholdEntry{
			{Level: "low", HeightCM: 15},
			{Level: "medium", HeightCM: 15},
		}},
		{"高度为零", []ThresholdEntry{{Level: "low", HeightCM: 0}}},
	}
	for _, tc := range cases {
		thresholds := &Thresholds{Version: 1, Entries: tc.entries}
		if err := NormalizeThresholds(thresholds); err == nil {
			t.Fatalf("期望 %s 校验失败", tc.name)
		}
	}
}

func TestNormalizeThresholdsCanonicalizesLevel(t *testing.T) {
	thresholds := &Thresholds{Entries: []ThresholdEntry{
		{Level: " Low ", HeightCM: 10},
		{Level: "MEDIUM", HeightCM: 12},
	}}
	if err := NormalizeThresholds(thresholds); err != nil {
		t.Fatalf("校验失败: %v", err)
	}
	if thresholds.Entries[0].Level != "low" || thresholds.Entries[1].Level != "medium" {
		t.Fatalf("级别未归一化: %+v", thresholds.Entries)
	}
	if thresholds.Version != 1 {
		t.Fatalf("缺省版本应为 1: got=%d", thresholds.Version)
	}
}

func TestCheckAgainstContainer(t *testing.T) {
	if err := CheckAgainstContainer(DefaultThresholds(), 20); err != nil {
		t.Fatalf("默认阈值均低于容器高度 不应报错: %v", err)
	}

	// 高度被钳制在容器高度以内 等于容器高度的级别永远无法触发
	tall := &Thresholds{Entries: []ThresholdEntry{
		{Level: "low", HeightCM: 13},
		{Level: "medium", HeightCM: 15},
		{Level: "critical", HeightCM: 20},
	}}
	if err := CheckAgainstContainer(tall, 20); err == nil {
		t.Fatalf("不低于容器高度的阈值应被拒绝")
	}
	if err := CheckAgainstContainer(nil, 20); err == nil {
		t.Fatalf("空阈值表应被拒绝")
	}
}

func TestLoadThresholdsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	content := "version: 2\nlevels:\n  - level: low\n    height_cm: 8\n  - level: medium\n    height_cm: 11\n  - level: critical\n    height_cm: 14\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入阈值文件失败: %v", err)
	}

	thresholds, err := LoadThresholds(path)
	if err != nil {
		t.Fatalf("加载阈值表失败: %v", err)
	}
	if thresholds.Version != 2 || len(thresholds.Entries) != 3 {
		t.Fatalf("阈值表内容不匹配: %+v", thresholds)
	}

	classifier, err := NewClassifier(thresholds)
	if err != nil {
		t.Fatalf("创建判定器失败: %v", err)
	}
	if got := classifier.Classify(12); got != LevelMedium {
		t.Fatalf("自定义阈值判定不匹配: got=%s want=medium", got)
	}
}

func TestLoadThresholdsMissingFile(t *testing.T) {
	if _, err := LoadThresholds(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("期望缺失文件返回错误")
	}
}

func TestEstimateHeightClampsAtZero(t *testing.T) {
	if got := EstimateHeight(25, 20); got != 0 {
		t.Fatalf("距离超过容器高度应推算为零: got=%v", got)
	}
	if got := EstimateHeight(4, 20); got != 16 {
		t.Fatalf("水位推算不匹配: got=%v want=16", got)
	}
}
