// 本文件用于水位阈值表的加载与级别判定
package flood

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// 未提供阈值文件时使用的默认阈值表
var defaultEntries = []ThresholdEntry{
	{Level: string(LevelLow), HeightCM: 13},
	{Level: string(LevelMedium), HeightCM: 15},
	{Level: string(LevelCritical), HeightCM: 18},
}

// Thresholds 表示水位阈值表
type Thresholds struct {
	Version int              `yaml:"version" json:"version"`
	Entries []ThresholdEntry `yaml:"levels" json:"levels"`
}

// ThresholdEntry 表示单个级别的触发高度
type ThresholdEntry struct {
	Level    string  `yaml:"level" json:"level"`
	HeightCM float64 `yaml:"height_cm" json:"height_cm"`
}

type compiledThreshold struct {
	level    Level
	heightCM float64
}

// Classifier 负责把水位高度映射为离散级别
type Classifier struct {
	entries []compiledThreshold
}

// DefaultThresholds 返回默认阈值表
func DefaultThresholds() *Thresholds {
	entries := make([]ThresholdEntry, len(defaultEntries))
	copy(entries, defaultEntries)
	return &Thresholds{Version: 1, Entries: entries}
}

// LoadThresholds 读取并解析阈值表文件
func LoadThresholds(path string) (*Thresholds, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取阈值表失败: %w", err)
	}

	var thresholds Thresholds
	if err := yaml.Unmarshal(data, &thresholds); err != nil {
		return nil, fmt.Errorf("解析阈值表失败: %w", err)
	}
	if err := NormalizeThresholds(&thresholds); err != nil {
		return nil, err
	}
	return &thresholds, nil
}

// NormalizeThresholds 校验阈值表 要求级别与高度严格递增
func NormalizeThresholds(thresholds *Thresholds) error {
	if thresholds == nil {
		return fmt.Errorf("阈值表为空")
	}
	if thresholds.Version == 0 {
		thresholds.Version = 1
	}
	if len(thresholds.Entries) == 0 {
		return fmt.Errorf("阈值表不能为空")
	}

	lastRank := 0
	lastHeight := 0.0
	for i := range thresholds.Entries {
		entry := &thresholds.Entries[i]
		entry.Level = strings.ToLower(strings.TrimSpace(entry.Level))
		level, ok := ParseLevel(entry.Level)
		if !ok || level == LevelNone {
			return fmt.Errorf("无效的水位级别: %s", entry.Level)
		}
		if i > 0 && level.Rank() <= lastRank {
			return fmt.Errorf("阈值表级别必须严格递增: %s", entry.Level)
		}
		if entry.HeightCM <= 0 {
			return fmt.Errorf("级别 %s 的触发高度必须大于零", entry.Level)
		}
		if i > 0 && entry.HeightCM <= lastHeight {
			return fmt.Errorf("阈值表高度必须严格递增: 级别 %s", entry.Level)
		}
		lastRank = level.Rank()
		lastHeight = entry.HeightCM
	}
	return nil
}

// CheckAgainstContainer 校验阈值高度均低于容器高度
// 水位高度不可能达到容器高度 等于或超过它的级别永远无法触发
func CheckAgainstContainer(thresholds *Thresholds, containerHeightCM float64) error {
	if thresholds == nil {
		return fmt.Errorf("阈值表为空")
	}
	for _, entry := range thresholds.Entries {
		if entry.HeightCM >= containerHeightCM {
			return fmt.Errorf("级别 %s 的触发高度 %.2fcm 不低于容器高度 %.2fcm", entry.Level, entry.HeightCM, containerHeightCM)
		}
	}
	return nil
}

// NewClassifier 编译阈值表为判定结构
func NewClassifier(thresholds *Thresholds) (*Classifier, error) {
	if err := NormalizeThresholds(thresholds); err != nil {
		return nil, err
	}
	entries := make([]compiledThreshold, 0, len(thresholds.Entries))
	for _, entry := range thresholds.Entries {
		level, _ := ParseLevel(entry.Level)
		entries = append(entries, compiledThreshold{level: level, heightCM: entry.HeightCM})
	}
	return &Classifier{entries: entries}, nil
}

// Classify 返回高度命中的最高级别 未达最低阈值时返回 none
func (c *Classifier) Classify(heightCM float64) Level {
	if c == nil {
		return LevelNone
	}
	// 从最高级别向下找第一个满足的阈值
	for i := len(c.entries) - 1; i >= 0; i-- {
		if heightCM >= c.entries[i].heightCM {
			return c.entries[i].level
		}
	}
	return LevelNone
}

// Summary 输出阈值表摘要 便于控制台展示
func (c *Classifier) Summary() []ThresholdEntry {
	if c == nil {
		return nil
	}
	out := make([]ThresholdEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		out = append(out, ThresholdEntry{Level: string(entry.level), HeightCM: entry.heightCM})
	}
	return out
}
