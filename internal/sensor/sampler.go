// 本文件用于距离采样与噪声过滤
// 文件职责：实现当前模块的核心业务逻辑与数据流转
// 关键路径：入口参数先校验再执行业务处理 最后返回统一结果
// 边界与容错：异常场景显式返回错误 由上层决定重试或降级

package sensor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"flood-watch/internal/logger"
	"flood-watch/internal/metrics"
)

// ErrNoValidReading 表示本周期没有任何落在有效区间内的读数
// 调用方据此区分传感器毛刺与真实的大距离读数
var ErrNoValidReading = errors.New("传感器无有效读数")

// Distancer 表示距离传感器协作方
// 毛刺期间可能返回零 负数或远超量程的值 由采样器负责过滤
type Distancer interface {
	ReadDistanceCM(ctx context.Context) (float64, error)
}

// Sampler 负责采集多次原始读数并输出中位数
type Sampler struct {
	distancer    Distancer
	readings     int
	minCM        float64
	maxCM        float64
	readingDelay time.Duration
	collector    *metrics.Collector
}

// SamplerOptions 表示采样器配置
type SamplerOptions struct {
	Readings     int
	MinCM        float64
	MaxCM        float64
	ReadingDelay time.Duration
	Collector    *metrics.Collector
}

// NewSampler 创建距离采样器
func NewSampler(distancer Distancer, opts SamplerOptions) (*Sampler, error) {
	if distancer == nil {
		return nil, fmt.Errorf("距离传感器不能为空")
	}
	if opts.Readings <= 0 {
		return nil, fmt.Errorf("采样次数必须大于零: %d", opts.Readings)
	}
	if opts.MinCM < 0 || opts.MaxCM <= opts.MinCM {
		return nil, fmt.Errorf("有效读数区间无效: (%.2f, %.2f)", opts.MinCM, opts.MaxCM)
	}
	collector := opts.Collector
	if collector == nil {
		collector = metrics.Global()
	}
	return &Sampler{
		distancer:    distancer,
		readings:     opts.Readings,
		minCM:        opts.MinCM,
		maxCM:        opts.MaxCM,
		readingDelay: opts.ReadingDelay,
		collector:    collector,
	}, nil
}

// Acquire 采集一组原始读数 过滤掉区间外的毛刺后返回中位数
// 全部读数无效时返回 ErrNoValidReading
func (s *Sampler) Acquire(ctx context.Context) (float64, error) {
	valid := make([]float64, 0, s.readings)
	for i := 0; i < s.readings; i++ {
		if i > 0 && s.readingDelay > 0 {
			// 读数之间留出间隔 避免超声回波互相干扰
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(s.readingDelay):
			}
		}
		raw, err := s.distancer.ReadDistanceCM(ctx)
		if err != nil {
			logger.Debug("读取传感器失败 忽略本次读数: %v", err)
			s.collector.IncReadingDiscarded()
			continue
		}
		if math.IsNaN(raw) || math.IsInf(raw, 0) {
			s.collector.IncReadingDiscarded()
			continue
		}
		// 有效区间为开区间 排除毛刺返回的零值与超量程回波
		if raw <= s.minCM || raw >= s.maxCM {
			s.collector.IncReadingDiscarded()
			continue
		}
		valid = append(valid, raw)
	}
	if len(valid) == 0 {
		return 0, ErrNoValidReading
	}
	return median(valid), nil
}

// Readings 返回每周期的原始采样次数
func (s *Sampler) Readings() int {
	return s.readings
}

// median 取中位数 偶数个读数时取中间两数均值
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
