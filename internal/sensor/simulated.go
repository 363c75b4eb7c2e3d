// 本文件用于开发环境的模拟距离传感器
package sensor

import (
	"context"
	"math/rand"
	"sync"
)

// Simulated 在基准距离附近产生抖动读数 用于无硬件的开发与联调
type Simulated struct {
	mu      sync.Mutex
	baseCM  float64
	driftCM float64
	rng     *rand.Rand
}

// NewSimulated 创建模拟传感器
func NewSimulated(baseCM, driftCM float64, seed int64) *Simulated {
	if baseCM <= 0 {
		baseCM = 10
	}
	if driftCM < 0 {
		driftCM = 0
	}
	return &Simulated{
		baseCM:  baseCM,
		driftCM: driftCM,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// ReadDistanceCM 返回带抖动的模拟读数
func (s *Simulated) ReadDistanceCM(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	jitter := (s.rng.Float64()*2 - 1) * s.driftCM
	return s.baseCM + jitter, nil
}

// SetBase 调整基准距离 便于联调时模拟水位变化
func (s *Simulated) SetBase(baseCM float64) {
	s.mu.Lock()
	s.baseCM = baseCM
	s.mu.Unlock()
}
