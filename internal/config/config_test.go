// 本文件用于配置加载与校验测试
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"flood-watch/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "api_bind: \":8080\"\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if cfg.ContainerHeightCM != 20 {
		t.Fatalf("默认容器高度不匹配: got=%v", cfg.ContainerHeightCM)
	}
	if cfg.SamplesPerCycle != 5 || cfg.MinDistanceCM != 1 || cfg.MaxDistanceCM != 400 {
		t.Fatalf("默认采样配置不匹配: %+v", cfg)
	}
	if cfg.PollInterval != "2s" || cfg.Cooldown != "10s" || cfg.ConfirmCount != 3 {
		t.Fatalf("默认轮询配置不匹配: %+v", cfg)
	}
	if cfg.MinAlertLevel != "medium" || cfg.SensorMode != "simulated" {
		t.Fatalf("默认告警配置不匹配: %+v", cfg)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("默认配置应通过校验: %v", err)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `container_height_cm: 30
samples_per_cycle: 7
confirm_count: 5
min_alert_level: low
poll_interval: 5s
cooldown: 30s
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if cfg.ContainerHeightCM != 30 || cfg.SamplesPerCycle != 7 || cfg.ConfirmCount != 5 {
		t.Fatalf("覆盖配置不匹配: %+v", cfg)
	}
	if cfg.MinAlertLevel != "low" || cfg.PollInterval != "5s" {
		t.Fatalf("覆盖配置不匹配: %+v", cfg)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("期望缺失配置文件返回错误")
	}
}

func validBase() *models.Config {
	cfg := &models.Config{}
	applyDefaults(cfg)
	return cfg
}

func TestValidateConfigRejectsInvalid(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(cfg *models.Config)
	}{
		{"区间倒置", func(cfg *models.Config) { cfg.MinDistanceCM = 400; cfg.MaxDistanceCM = 1 }},
		{"确认次数为零", func(cfg *models.Config) { cfg.ConfirmCount = -1; cfg.SamplesPerCycle = 5 }},
		{"轮询周期无效", func(cfg *models.Config) { cfg.PollInterval = "abc" }},
		{"冷却时长无效", func(cfg *models.Config) { cfg.Cooldown = "xyz" }},
		{"告警级别无效", func(cfg *models.Config) { cfg.MinAlertLevel = "extreme" }},
		{"传感器模式无效", func(cfg *models.Config) { cfg.SensorMode = "serial" }},
		{"file模式缺文件", func(cfg *models.Config) { cfg.SensorMode = "file" }},
		{"OSS缺认证", func(cfg *models.Config) { cfg.Bucket = "b"; cfg.Endpoint = "oss.example.com" }},
	}
	for _, tc := range cases {
		cfg := validBase()
		tc.mutate(cfg)
		if err := ValidateConfig(cfg); err == nil {
			t.Fatalf("期望 %s 校验失败", tc.name)
		}
	}
}

func TestValidateConfigNormalizesLevel(t *testing.T) {
	cfg := validBase()
	cfg.MinAlertLevel = " Medium "
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("校验失败: %v", err)
	}
	if cfg.MinAlertLevel != "medium" {
		t.Fatalf("级别未归一化: got=%s", cfg.MinAlertLevel)
	}
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Duration
	}{
		{"2s", 2 * time.Second},
		{"500ms", 500 * time.Millisecond},
		{"10", 10 * time.Second},
		{"5秒", 5 * time.Second},
		{"2分钟", 2 * time.Minute},
		{"", 7 * time.Second},
	}
	for _, tc := range cases {
		got, err := ParseDuration(tc.raw, 7*time.Second)
		if err != nil {
			t.Fatalf("解析 %q 失败: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("解析 %q 不匹配: got=%v want=%v", tc.raw, got, tc.want)
		}
	}
	if _, err := ParseDuration("abc", 0); err == nil {
		t.Fatalf("期望无效时长返回错误")
	}
}
