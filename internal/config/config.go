package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"flood-watch/internal/models"
)

// LoadConfig 加载配置文件
func LoadConfig(configFile string) (*models.Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %v", err)
	}

	var config models.Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %v", err)
	}

	applyDefaults(&config)
	return &config, nil
}

// applyDefaults 设置默认值
func applyDefaults(config *models.Config) {
	if config.ContainerHeightCM <= 0 {
		config.ContainerHeightCM = 20
	}
	if config.SamplesPerCycle <= 0 {
		config.SamplesPerCycle = 5
	}
	if config.MinDistanceCM <= 0 {
		config.MinDistanceCM = 1
	}
	if config.MaxDistanceCM <= 0 {
		config.MaxDistanceCM = 400
	}
	if config.ReadingDelay == "" {
		config.ReadingDelay = "50ms"
	}
	if config.PollInterval == "" {
		config.PollInterval = "2s"
	}
	if config.ConfirmCount <= 0 {
		config.ConfirmCount = 3
	}
	if config.Cooldown == "" {
		config.Cooldown = "10s"
	}
	if config.MinAlertLevel == "" {
		config.MinAlertLevel = "medium"
	}
	if config.SensorMode == "" {
		config.SensorMode = "simulated"
	}
	if config.SimulatedBaseCM <= 0 {
		config.SimulatedBaseCM = 10
	}
	if config.SimulatedDriftCM <= 0 {
		config.SimulatedDriftCM = 0.5
	}
	if config.AlertHistoryRows <= 0 {
		config.AlertHistoryRows = 50
	}
	if config.DispatchWorkers <= 0 {
		config.DispatchWorkers = 2
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
}

// ValidateConfig 验证配置 配置错误属于致命启动失败
func ValidateConfig(config *models.Config) error {
	if config.ContainerHeightCM <= 0 {
		return fmt.Errorf("容器高度必须大于零")
	}
	if config.SamplesPerCycle <= 0 {
		return fmt.Errorf("每周期采样次数必须大于零")
	}
	if config.MinDistanceCM < 0 || config.MaxDistanceCM <= config.MinDistanceCM {
		return fmt.Errorf("有效读数区间无效: (%.2f, %.2f)", config.MinDistanceCM, config.MaxDistanceCM)
	}
	if config.ConfirmCount < 1 {
		return fmt.Errorf("连续确认次数必须大于等于一")
	}
	if _, err := ParseDuration(config.ReadingDelay, 0); err != nil {
		return fmt.Errorf("读数间隔无效: %w", err)
	}
	if d, err := ParseDuration(config.PollInterval, 0); err != nil || d <= 0 {
		return fmt.Errorf("轮询周期无效: %s", config.PollInterval)
	}
	if d, err := ParseDuration(config.Cooldown, 0); err != nil || d <= 0 {
		return fmt.Errorf("冷却时长无效: %s", config.Cooldown)
	}
	level := strings.ToLower(strings.TrimSpace(config.MinAlertLevel))
	switch level {
	case "low", "medium", "critical":
		config.MinAlertLevel = level
	default:
		return fmt.Errorf("最低告警级别无效: %s", config.MinAlertLevel)
	}
	switch config.SensorMode {
	case "simulated":
	case "file":
		if strings.TrimSpace(config.SensorFile) == "" {
			return fmt.Errorf("file 模式必须配置传感器文件路径")
		}
	default:
		return fmt.Errorf("传感器模式无效: %s", config.SensorMode)
	}
	if config.EmailHost != "" && config.EmailPort <= 0 {
		return fmt.Errorf("邮件端口无效: %d", config.EmailPort)
	}
	if config.Bucket != "" {
		if config.AK == "" || config.SK == "" {
			return fmt.Errorf("OSS 认证信息不能为空")
		}
		if config.Endpoint == "" {
			return fmt.Errorf("OSS Endpoint不能为空")
		}
	}
	return nil
}

// ParseDuration 解析时长配置 支持纯数字按秒处理
func ParseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fallback, nil
	}
	clean := strings.ToLower(trimmed)
	clean = strings.ReplaceAll(clean, "秒钟", "秒")
	clean = strings.ReplaceAll(clean, "秒", "s")
	clean = strings.ReplaceAll(clean, "分钟", "m")
	clean = strings.ReplaceAll(clean, "分", "m")
	clean = strings.ReplaceAll(clean, "小时", "h")
	clean = strings.TrimSpace(clean)
	if d, err := time.ParseDuration(clean); err == nil && d >= 0 {
		return d, nil
	}
	numRe := regexp.MustCompile(`\d+`)
	if m := numRe.FindString(clean); m == clean && m != "" {
		if v, err := strconv.Atoi(m); err == nil && v >= 0 {
			return time.Duration(v) * time.Second, nil
		}
	}
	return 0, fmt.Errorf("无效时间: %s", raw)
}
