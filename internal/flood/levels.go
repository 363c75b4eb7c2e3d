// 本文件用于定义水位级别相关的数据结构
// 文件职责：实现当前模块的核心业务逻辑与数据流转
// 关键路径：入口参数先校验再执行业务处理 最后返回统一结果
// 边界与容错：异常场景显式返回错误 由上层决定重试或降级

package flood

// Level 表示水位级别
type Level string

const (
	// LevelNone 表示水位未达任何阈值
	LevelNone Level = "none"
	// LevelLow 表示低水位预警
	LevelLow Level = "low"
	// LevelMedium 表示中水位告警
	LevelMedium Level = "medium"
	// LevelCritical 表示严重水位告警
	LevelCritical Level = "critical"
)

// DecisionStatus 表示单个周期的处置状态
type DecisionStatus string

const (
	// StatusSent 表示已派发告警
	StatusSent DecisionStatus = "sent"
	// StatusSuppressed 表示处于冷却期被抑制
	StatusSuppressed DecisionStatus = "suppressed"
	// StatusRecorded 表示仅记录 未触发告警
	StatusRecorded DecisionStatus = "recorded"
	// StatusSensorFailed 表示本周期采样失败
	StatusSensorFailed DecisionStatus = "sensor_failed"
)

// levelRanks 约定级别全序 none < low < medium < critical
var levelRanks = map[Level]int{
	LevelNone:     0,
	LevelLow:      1,
	LevelMedium:   2,
	LevelCritical: 3,
}

// Rank 返回级别在全序中的位置
func (l Level) Rank() int {
	return levelRanks[l]
}

// AtLeast 判断级别是否达到给定级别
func (l Level) AtLeast(other Level) bool {
	return l.Rank() >= other.Rank()
}

// ParseLevel 用于解析输入参数或配置
func ParseLevel(raw string) (Level, bool) {
	switch Level(raw) {
	case LevelNone, LevelLow, LevelMedium, LevelCritical:
		return Level(raw), true
	default:
		return "", false
	}
}

// EstimateHeight 根据探测距离推算水位高度 结果不会为负
func EstimateHeight(distanceCM, containerHeightCM float64) float64 {
	height := containerHeightCM - distanceCM
	if height < 0 {
		return 0
	}
	return height
}
