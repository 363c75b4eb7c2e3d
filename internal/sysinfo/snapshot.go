// 本文件用于采集监测进程所在主机的资源快照，供健康检查接口输出。
package sysinfo

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

const defaultCacheTTL = 2 * time.Second

// HostSnapshot 主机资源快照
type HostSnapshot struct {
	Host       string  `json:"host"`
	OS         string  `json:"os"`
	Uptime     string  `json:"uptime"`
	Load       string  `json:"load"`
	CPUPct     float64 `json:"cpu_pct"`
	CPUCores   int     `json:"cpu_cores"`
	MemUsedPct float64 `json:"mem_used_pct"`
	MemUsed    string  `json:"mem_used"`
	MemTotal   string  `json:"mem_total"`
	DiskPct    float64 `json:"disk_pct"`
	DiskUsed   string  `json:"disk_used"`
	DiskTotal  string  `json:"disk_total"`
	DiskPath   string  `json:"disk_path"`
	Goroutines int     `json:"goroutines"`
	CapturedAt string  `json:"captured_at"`
}

// Collector 采集主机快照 带短时缓存避免健康检查打满系统调用
type Collector struct {
	mu       sync.Mutex
	cacheTTL time.Duration
	dataDir  string

	last   HostSnapshot
	lastAt time.Time
}

// NewCollector 创建快照采集器 dataDir 用于磁盘用量统计
func NewCollector(dataDir string) *Collector {
	if strings.TrimSpace(dataDir) == "" {
		dataDir = "."
	}
	return &Collector{
		cacheTTL: defaultCacheTTL,
		dataDir:  dataDir,
	}
}

// Snapshot 返回主机资源快照
func (c *Collector) Snapshot() HostSnapshot {
	now := time.Now()
	c.mu.Lock()
	if now.Sub(c.lastAt) < c.cacheTTL && !c.lastAt.IsZero() {
		snapshot := c.last
		c.mu.Unlock()
		return snapshot
	}
	c.mu.Unlock()

	snapshot := HostSnapshot{
		CPUCores:   runtime.NumCPU(),
		Goroutines: runtime.NumGoroutine(),
		CapturedAt: now.Format("2006-01-02 15:04:05"),
		Load:       "--",
		Uptime:     "--",
		DiskPath:   c.dataDir,
	}

	if info, err := host.Info(); err == nil {
		snapshot.Host = fallbackString(info.Hostname, "--")
		snapshot.OS = fallbackString(strings.TrimSpace(info.Platform+" "+info.PlatformVersion), runtime.GOOS)
		snapshot.Uptime = formatUptime(time.Duration(info.Uptime) * time.Second)
	} else {
		name, _ := os.Hostname()
		snapshot.Host = fallbackString(name, "--")
		snapshot.OS = runtime.GOOS
	}

	if avg, err := load.Avg(); err == nil {
		snapshot.Load = fmt.Sprintf("%.2f / %.2f / %.2f", avg.Load1, avg.Load5, avg.Load15)
	}

	if percents, err := cpu.Percent(120*time.Millisecond, false); err == nil && len(percents) > 0 {
		snapshot.CPUPct = clampPct(percents[0])
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		snapshot.MemUsedPct = clampPct(vm.UsedPercent)
		snapshot.MemUsed = formatBytes(float64(vm.Used))
		snapshot.MemTotal = formatBytes(float64(vm.Total))
	}

	if usage, err := disk.Usage(c.dataDir); err == nil && usage.Total > 0 {
		snapshot.DiskPct = clampPct(usage.UsedPercent)
		snapshot.DiskUsed = formatBytes(float64(usage.Used))
		snapshot.DiskTotal = formatBytes(float64(usage.Total))
	}

	c.mu.Lock()
	c.last = snapshot
	c.lastAt = now
	c.mu.Unlock()
	return snapshot
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func formatBytes(v float64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	idx := 0
	for v >= 1024 && idx < len(units)-1 {
		v /= 1024
		idx++
	}
	if idx == 0 {
		return fmt.Sprintf("%.0f%s", v, units[idx])
	}
	return fmt.Sprintf("%.1f%s", v, units[idx])
}

func formatUptime(d time.Duration) string {
	if d <= 0 {
		return "--"
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%d天%d小时", days, hours)
	}
	if hours > 0 {
		return fmt.Sprintf("%d小时%d分", hours, minutes)
	}
	return fmt.Sprintf("%d分钟", minutes)
}

func fallbackString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
