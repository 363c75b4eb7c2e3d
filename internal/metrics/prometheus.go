// 本文件用于 Prometheus 指标聚合与导出 将运行时指标统一收口便于监控接入

package metrics

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Collector 聚合运行期指标，并以 Prometheus 文本格式输出。
type Collector struct {
	cyclesTotal        atomic.Uint64
	sensorFailureTotal atomic.Uint64
	readingsDiscarded  atomic.Uint64
	alertsSentTotal    atomic.Uint64
	alertsSuppressed   atomic.Uint64
	storeFailureTotal  atomic.Uint64
	notifyFailureTotal atomic.Uint64

	waterHeightBits atomic.Uint64 // float64 bits
	floodLevel      atomic.Int64
	cooldownActive  atomic.Int64

	mu               sync.RWMutex
	cycleDurationSec *histogram
}

type histogram struct {
	buckets []float64
	counts  []uint64 // 累计桶计数
	count   uint64
	sum     float64
}

var (
	globalCollector = NewCollector()
)

// Global 返回进程级全局指标收集器。
func Global() *Collector {
	return globalCollector
}

// NewCollector 创建指标收集器。
func NewCollector() *Collector {
	return &Collector{
		cycleDurationSec: newHistogram([]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}),
	}
}

func newHistogram(buckets []float64) *histogram {
	clean := make([]float64, 0, len(buckets))
	for _, bucket := range buckets {
		if bucket <= 0 {
			continue
		}
		clean = append(clean, bucket)
	}
	sort.Float64s(clean)
	return &histogram{
		buckets: clean,
		counts:  make([]uint64, len(clean)),
	}
}

func (h *histogram) observe(v float64) {
	if h == nil {
		return
	}
	for idx, bound := range h.buckets {
		if v <= bound {
			h.counts[idx]++
		}
	}
	h.count++
	h.sum += v
}

func (h *histogram) writePrometheus(builder *strings.Builder, metric string) {
	if h == nil {
		return
	}
	for idx, bound := range h.buckets {
		builder.WriteString(metric)
		builder.WriteString(`_bucket{le="`)
		builder.WriteString(trimFloat(bound))
		builder.WriteString(`"} `)
		builder.WriteString(strconv.FormatUint(h.counts[idx], 10))
		builder.WriteByte('\n')
	}
	builder.WriteString(metric)
	builder.WriteString(`_bucket{le="+Inf"} `)
	builder.WriteString(strconv.FormatUint(h.count, 10))
	builder.WriteByte('\n')

	builder.WriteString(metric)
	builder.WriteString("_sum ")
	builder.WriteString(trimFloat(h.sum))
	builder.WriteByte('\n')

	builder.WriteString(metric)
	builder.WriteString("_count ")
	builder.WriteString(strconv.FormatUint(h.count, 10))
	builder.WriteByte('\n')
}

// ObserveCycle 记录一次采样周期与耗时。
func (c *Collector) ObserveCycle(latency time.Duration) {
	if c == nil {
		return
	}
	c.cyclesTotal.Add(1)
	c.mu.Lock()
	c.cycleDurationSec.observe(latency.Seconds())
	c.mu.Unlock()
}

// IncSensorFailure 记录一次采样失败。
func (c *Collector) IncSensorFailure() {
	if c == nil {
		return
	}
	c.sensorFailureTotal.Add(1)
}

// IncReadingDiscarded 记录一次被过滤的无效原始读数。
func (c *Collector) IncReadingDiscarded() {
	if c == nil {
		return
	}
	c.readingsDiscarded.Add(1)
}

// IncAlertSent 记录一次已派发告警。
func (c *Collector) IncAlertSent() {
	if c == nil {
		return
	}
	c.alertsSentTotal.Add(1)
}

// IncAlertSuppressed 记录一次冷却期抑制。
func (c *Collector) IncAlertSuppressed() {
	if c == nil {
		return
	}
	c.alertsSuppressed.Add(1)
}

// IncStoreFailure 记录一次告警落库失败。
func (c *Collector) IncStoreFailure() {
	if c == nil {
		return
	}
	c.storeFailureTotal.Add(1)
}

// IncNotifyFailure 记录一次通知发送失败。
func (c *Collector) IncNotifyFailure() {
	if c == nil {
		return
	}
	c.notifyFailureTotal.Add(1)
}

// SetWaterHeight 刷新最近一次水位高度。
func (c *Collector) SetWaterHeight(heightCM float64) {
	if c == nil {
		return
	}
	c.waterHeightBits.Store(floatBits(heightCM))
}

// SetFloodLevel 刷新最近一次水位级别的序号。
func (c *Collector) SetFloodLevel(rank int) {
	if c == nil {
		return
	}
	c.floodLevel.Store(int64(rank))
}

// SetCooldownActive 刷新冷却状态。
func (c *Collector) SetCooldownActive(active bool) {
	if c == nil {
		return
	}
	if active {
		c.cooldownActive.Store(1)
	} else {
		c.cooldownActive.Store(0)
	}
}

// RenderPrometheus 以 text exposition 格式导出指标。
func (c *Collector) RenderPrometheus() string {
	if c == nil {
		return ""
	}
	builder := strings.Builder{}
	builder.Grow(2048)

	writeMetricHeader(&builder, "fw_cycles_total", "counter", "Total sampling cycles executed by the monitor loop.")
	writeCounter(&builder, "fw_cycles_total", c.cyclesTotal.Load())

	writeMetricHeader(&builder, "fw_sensor_failure_total", "counter", "Total cycles without any valid sensor reading.")
	writeCounter(&builder, "fw_sensor_failure_total", c.sensorFailureTotal.Load())

	writeMetricHeader(&builder, "fw_readings_discarded_total", "counter", "Total raw sensor readings discarded by the plausibility filter.")
	writeCounter(&builder, "fw_readings_discarded_total", c.readingsDiscarded.Load())

	writeMetricHeader(&builder, "fw_alerts_sent_total", "counter", "Total dispatched flood alerts.")
	writeCounter(&builder, "fw_alerts_sent_total", c.alertsSentTotal.Load())

	writeMetricHeader(&builder, "fw_alerts_suppressed_total", "counter", "Total confirmations suppressed by cooldown.")
	writeCounter(&builder, "fw_alerts_suppressed_total", c.alertsSuppressed.Load())

	writeMetricHeader(&builder, "fw_store_failure_total", "counter", "Total alert persistence failures.")
	writeCounter(&builder, "fw_store_failure_total", c.storeFailureTotal.Load())

	writeMetricHeader(&builder, "fw_notify_failure_total", "counter", "Total alert notification failures.")
	writeCounter(&builder, "fw_notify_failure_total", c.notifyFailureTotal.Load())

	writeMetricHeader(&builder, "fw_water_height_cm", "gauge", "Latest estimated water height in centimeters.")
	writeGaugeFloat(&builder, "fw_water_height_cm", floatFromBits(c.waterHeightBits.Load()))

	writeMetricHeader(&builder, "fw_flood_level", "gauge", "Latest flood level rank (0 none, 1 low, 2 medium, 3 critical).")
	writeGaugeInt(&builder, "fw_flood_level", c.floodLevel.Load())

	writeMetricHeader(&builder, "fw_cooldown_active", "gauge", "Whether the alert dispatcher is in cooldown.")
	writeGaugeInt(&builder, "fw_cooldown_active", c.cooldownActive.Load())

	var cycleDurationCopy histogram
	c.mu.RLock()
	cycleDurationCopy = cloneHistogram(c.cycleDurationSec)
	c.mu.RUnlock()

	writeMetricHeader(&builder, "fw_cycle_duration_seconds", "histogram", "Sampling cycle latency distribution in seconds.")
	cycleDurationCopy.writePrometheus(&builder, "fw_cycle_duration_seconds")

	return builder.String()
}

func cloneHistogram(h *histogram) histogram {
	if h == nil {
		return histogram{}
	}
	copyHist := histogram{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		count:   h.count,
		sum:     h.sum,
	}
	return copyHist
}

func writeMetricHeader(builder *strings.Builder, metric, metricType, help string) {
	builder.WriteString("# HELP ")
	builder.WriteString(metric)
	builder.WriteByte(' ')
	builder.WriteString(help)
	builder.WriteByte('\n')
	builder.WriteString("# TYPE ")
	builder.WriteString(metric)
	builder.WriteByte(' ')
	builder.WriteString(metricType)
	builder.WriteByte('\n')
}

func writeCounter(builder *strings.Builder, metric string, value uint64) {
	builder.WriteString(metric)
	builder.WriteByte(' ')
	builder.WriteString(strconv.FormatUint(value, 10))
	builder.WriteByte('\n')
}

func writeGaugeInt(builder *strings.Builder, metric string, value int64) {
	builder.WriteString(metric)
	builder.WriteByte(' ')
	builder.WriteString(strconv.FormatInt(value, 10))
	builder.WriteByte('\n')
}

func writeGaugeFloat(builder *strings.Builder, metric string, value float64) {
	builder.WriteString(metric)
	builder.WriteByte(' ')
	builder.WriteString(trimFloat(value))
	builder.WriteByte('\n')
}

func trimFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func floatBits(value float64) uint64 {
	return math.Float64bits(value)
}

func floatFromBits(bits uint64) float64 {
	return math.Float64frombits(bits)
}

// ResetForTest 仅用于测试，避免跨用例污染。
func (c *Collector) ResetForTest() {
	if c == nil {
		return
	}
	c.cyclesTotal.Store(0)
	c.sensorFailureTotal.Store(0)
	c.readingsDiscarded.Store(0)
	c.alertsSentTotal.Store(0)
	c.alertsSuppressed.Store(0)
	c.storeFailureTotal.Store(0)
	c.notifyFailureTotal.Store(0)
	c.waterHeightBits.Store(0)
	c.floodLevel.Store(0)
	c.cooldownActive.Store(0)

	c.mu.Lock()
	c.cycleDurationSec = newHistogram([]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5})
	c.mu.Unlock()
}
