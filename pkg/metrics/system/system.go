package system

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Collector 系统指标收集器
// 采集进程级别的 CPU、内存数据，供指标快照使用
type Collector struct {
	proc      *process.Process
	startedAt time.Time

	mu      sync.RWMutex
	stats   Stats
	stopCh  chan struct{}
	running bool
}

// Stats 系统统计数据
type Stats struct {
	// 进程运行时长（秒）
	UptimeSeconds float64 `json:"uptime_seconds"`
	// CPU 使用率 (0-100)
	CPUPercent float64 `json:"cpu_percent"`
	// 内存使用率 (0-100)
	MemoryPercent float64 `json:"memory_percent"`
	// 内存使用字节数
	MemoryBytes uint64 `json:"memory_bytes"`
	// Goroutine 数量
	Goroutines int `json:"goroutines"`
	// 更新时间
	UpdatedAt time.Time `json:"updated_at"`
}

// New 创建系统指标收集器
func New() (*Collector, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}

	return &Collector{
		proc:      proc,
		startedAt: time.Now(),
		stopCh:    make(chan struct{}),
	}, nil
}

// Start 启动定期采集
func (c *Collector) Start(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	// 立即采集一次
	c.collect()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Stop 停止采集
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		close(c.stopCh)
		c.running = false
	}
}

// collect 执行一次采集
func (c *Collector) collect() {
	var stats Stats

	if cpuPercent, err := c.proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpuPercent
	}

	if memInfo, err := c.proc.MemoryInfo(); err == nil {
		stats.MemoryBytes = memInfo.RSS
		if virtualMem, err := mem.VirtualMemory(); err == nil && virtualMem.Total > 0 {
			stats.MemoryPercent = float64(memInfo.RSS) / float64(virtualMem.Total) * 100
		}
	}

	stats.Goroutines = runtime.NumGoroutine()
	stats.UptimeSeconds = time.Since(c.startedAt).Seconds()
	stats.UpdatedAt = time.Now()

	c.mu.Lock()
	c.stats = stats
	c.mu.Unlock()
}

// GetStats 获取当前统计数据
// 未采集到数据时运行时长按当前时间计算
func (c *Collector) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	if stats.UpdatedAt.IsZero() {
		stats.Goroutines = runtime.NumGoroutine()
		stats.UptimeSeconds = time.Since(c.startedAt).Seconds()
	}
	return stats
}
