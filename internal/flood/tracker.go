// 本文件用于连续确认状态机
// 水位级别需要连续出现指定次数才视为确认 避免单次毛刺触发告警
package flood

import "fmt"

// Tracker 维护 (当前级别, 连续次数) 的确认状态
// 单个监控循环独占使用 不做并发保护
type Tracker struct {
	confirmCount int
	minAlert     Level
	current      Level
	streak       int
}

// NewTracker 创建连续确认跟踪器
func NewTracker(confirmCount int, minAlert Level) (*Tracker, error) {
	if confirmCount < 1 {
		return nil, fmt.Errorf("确认次数必须大于等于一: %d", confirmCount)
	}
	if minAlert == LevelNone {
		return nil, fmt.Errorf("最低告警级别不能为 none")
	}
	return &Tracker{
		confirmCount: confirmCount,
		minAlert:     minAlert,
	}, nil
}

// Observe 送入本周期级别并推进状态机 返回是否达到确认阈值
// 级别切换的那个周期计为第一次确认 与确认后清零共同防止告警泛滥
func (t *Tracker) Observe(level Level) bool {
	if !level.AtLeast(t.minAlert) {
		// 低于告警门槛时清空连续计数
		t.current = LevelNone
		t.streak = 0
		return false
	}
	if level == t.current {
		t.streak++
	} else {
		t.current = level
		t.streak = 1
	}
	if t.streak < t.confirmCount {
		return false
	}
	// 确认后重置 要求重新累计完整的连续序列
	t.current = LevelNone
	t.streak = 0
	return true
}

// Current 返回当前累计中的级别
func (t *Tracker) Current() Level {
	if t.current == "" {
		return LevelNone
	}
	return t.current
}

// Streak 返回当前连续次数
func (t *Tracker) Streak() int {
	return t.streak
}

// ConfirmCount 返回配置的确认阈值
func (t *Tracker) ConfirmCount() int {
	return t.confirmCount
}

// MinAlertLevel 返回最低告警级别
func (t *Tracker) MinAlertLevel() Level {
	return t.minAlert
}

// Reset 清空确认状态
func (t *Tracker) Reset() {
	t.current = LevelNone
	t.streak = 0
}
