// 本文件用于维护监控运行态与控制台数据
package flood

import (
	"fmt"
	"sync"
	"time"
)

const (
	maxCycleRecords = 200
	overviewWindow  = 24 * time.Hour // 告警态势概览统计窗口
)

// Dashboard 表示监控控制台数据
type Dashboard struct {
	Overview   Overview         `json:"overview"`
	Cycles     []CycleView      `json:"cycles"`
	Stats      Stats            `json:"stats"`
	Thresholds ThresholdSummary `json:"thresholds"`
	Polling    PollSummary      `json:"polling"`
}

// Overview 表示告警态势概览
type Overview struct {
	Window     string `json:"window"`
	Risk       string `json:"risk"`
	Critical   int    `json:"critical"`
	Medium     int    `json:"medium"`
	Low        int    `json:"low"`
	Sent       int    `json:"sent"`
	Suppressed int    `json:"suppressed"`
	Latest     string `json:"latest"`
}

// CycleView 表示周期记录列表项
type CycleView struct {
	Time       string  `json:"time"`
	DistanceCM float64 `json:"distanceCm"`
	HeightCM   float64 `json:"heightCm"`
	Level      string  `json:"level"`
	Streak     int     `json:"streak"`
	Status     string  `json:"status"`
	Reason     string  `json:"reason,omitempty"`
}

// Stats 表示周期与告警统计
type Stats struct {
	Cycles         int `json:"cycles"`
	SensorFailures int `json:"sensorFailures"`
	Sent           int `json:"sent"`
	Suppressed     int `json:"suppressed"`
}

// ThresholdSummary 表示阈值表摘要
type ThresholdSummary struct {
	Source        string           `json:"source"`
	LastLoaded    string           `json:"lastLoaded"`
	Entries       []ThresholdEntry `json:"entries"`
	MinAlertLevel string           `json:"minAlertLevel"`
	ConfirmCount  int              `json:"confirmCount"`
	Error         string           `json:"error,omitempty"`
}

// PollSummary 表示轮询摘要
type PollSummary struct {
	Interval     string `json:"interval"`
	Cooldown     string `json:"cooldown"`
	InCooldown   bool   `json:"inCooldown"`
	CooldownLeft string `json:"cooldownLeft,omitempty"`
	LastCycle    string `json:"lastCycle"`
	NextCycle    string `json:"nextCycle"`
	Error        string `json:"error,omitempty"`
}

type cycleRecord struct {
	at         time.Time
	distanceCM float64
	heightCM   float64
	level      Level
	streak     int
	status     DecisionStatus
	reason     string
}

// State 维护监控循环运行态
type State struct {
	mu         sync.RWMutex
	records    []cycleRecord
	stats      Stats
	thresholds ThresholdSummary
	polling    PollSummary
}

// NewState 创建监控运行态
func NewState() *State {
	return &State{
		records: make([]cycleRecord, 0, maxCycleRecords),
	}
}

// RecordCycle 记录一次采样周期的处置结果
func (s *State) RecordCycle(at time.Time, distanceCM, heightCM float64, level Level, streak int, status DecisionStatus, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := cycleRecord{
		at:         at,
		distanceCM: distanceCM,
		heightCM:   heightCM,
		level:      level,
		streak:     streak,
		status:     status,
		reason:     reason,
	}
	s.records = append(s.records, record)
	if len(s.records) > maxCycleRecords {
		s.records = append([]cycleRecord(nil), s.records[len(s.records)-maxCycleRecords:]...)
	}

	s.stats.Cycles++
	switch status {
	case StatusSent:
		s.stats.Sent++
	case StatusSuppressed:
		s.stats.Suppressed++
	case StatusSensorFailed:
		s.stats.SensorFailures++
	}
}

// UpdateThresholdSummary 更新阈值表摘要
func (s *State) UpdateThresholdSummary(summary ThresholdSummary) {
	s.mu.Lock()
	s.thresholds = summary
	s.mu.Unlock()
}

// UpdatePollSummary 更新轮询摘要
func (s *State) UpdatePollSummary(summary PollSummary) {
	s.mu.Lock()
	s.polling = summary
	s.mu.Unlock()
}

// Dashboard 输出监控面板数据
func (s *State) Dashboard() Dashboard {
	s.mu.RLock()
	records := append([]cycleRecord(nil), s.records...)
	stats := s.stats
	thresholds := s.thresholds
	polling := s.polling
	s.mu.RUnlock()

	overview := buildOverview(records)
	cycles := make([]CycleView, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		cycles = append(cycles, CycleView{
			Time:       formatTime(rec.at),
			DistanceCM: rec.distanceCM,
			HeightCM:   rec.heightCM,
			Level:      string(rec.level),
			Streak:     rec.streak,
			Status:     string(rec.status),
			Reason:     rec.reason,
		})
	}

	return Dashboard{
		Overview:   overview,
		Cycles:     cycles,
		Stats:      stats,
		Thresholds: thresholds,
		Polling:    polling,
	}
}

func buildOverview(records []cycleRecord) Overview {
	now := time.Now()
	// 仅统计窗口内的记录用于概览
	windowStart := now.Add(-overviewWindow)

	var criticalCount, mediumCount, lowCount int
	var sentCount, suppressedCount int
	var latest string
	for _, record := range records {
		if record.at.Before(windowStart) {
			continue
		}
		switch record.level {
		case LevelCritical:
			criticalCount++
		case LevelMedium:
			mediumCount++
		case LevelLow:
			lowCount++
		}
		switch record.status {
		case StatusSent:
			sentCount++
			latest = formatTime(record.at)
		case StatusSuppressed:
			suppressedCount++
		}
	}

	risk := "低"
	if criticalCount > 0 {
		risk = "严重"
	} else if mediumCount > 0 {
		risk = "高"
	} else if lowCount > 0 {
		risk = "中"
	}

	return Overview{
		Window:     formatWindow(overviewWindow),
		Risk:       risk,
		Critical:   criticalCount,
		Medium:     mediumCount,
		Low:        lowCount,
		Sent:       sentCount,
		Suppressed: suppressedCount,
		Latest:     defaultTime(latest),
	}
}

// formatWindow 统一概览窗口的展示文案
func formatWindow(window time.Duration) string {
	if window%time.Hour == 0 {
		return fmt.Sprintf("最近%d小时", int(window.Hours()))
	}
	return fmt.Sprintf("最近%d分钟", int(window.Minutes()))
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Format("2006-01-02 15:04:05")
}

func defaultTime(raw string) string {
	if raw == "" {
		return "--"
	}
	return raw
}

// formatDuration 用于格式化输出内容
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0秒"
	}
	if d >= time.Hour {
		hours := int(d.Round(time.Minute).Hours())
		if hours <= 0 {
			hours = 1
		}
		return fmt.Sprintf("%d小时", hours)
	}
	if d >= time.Minute {
		minutes := int(d.Round(time.Second).Minutes())
		if minutes <= 0 {
			minutes = 1
		}
		return fmt.Sprintf("%d分钟", minutes)
	}
	seconds := int(d.Round(time.Second).Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return fmt.Sprintf("%d秒", seconds)
}
