// Package gpuload 提供后端利用率信号源
package gpuload

import (
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"tts-gateway/internal/config"
)

// StaticSignal 固定利用率，用于演练与测试
type StaticSignal struct {
	value float64
}

// NewStaticSignal 创建固定信号源
func NewStaticSignal(value float64) *StaticSignal {
	return &StaticSignal{value: value}
}

// Sample 返回固定利用率
func (s *StaticSignal) Sample() float64 {
	return s.value
}

// SimulatedSignal 围绕基准值随机漂移的模拟信号
// 无真实探针可用时提供可观察的波动
type SimulatedSignal struct {
	mu   sync.Mutex
	rng  *rand.Rand
	base float64
}

// NewSimulatedSignal 创建模拟信号源
func NewSimulatedSignal(base float64, seed int64) *SimulatedSignal {
	return &SimulatedSignal{
		rng:  rand.New(rand.NewSource(seed)),
		base: base,
	}
}

// Sample 返回 [base-15, base+15] 内的利用率，截断到 [0, 100]
func (s *SimulatedSignal) Sample() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.base + (s.rng.Float64()-0.5)*30
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// FileSignal 从文件读取利用率百分比
// 文件由外部探针写入单个数值；读取失败按满载处理，宁可误熔断
type FileSignal struct {
	path string
}

// NewFileSignal 创建文件信号源
func NewFileSignal(path string) *FileSignal {
	return &FileSignal{path: path}
}

// Sample 读取并解析利用率
func (s *FileSignal) Sample() float64 {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return 100
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 100
	}
	return v
}

// Signal 信号源接口的本地别名，避免反向依赖应用层
type Signal interface {
	Sample() float64
}

// FromConfig 按配置构造信号源，未知来源回落到静态零负载
func FromConfig(cfg *config.LoadSignalConfig) Signal {
	switch cfg.Source {
	case "file":
		return NewFileSignal(cfg.Path)
	case "simulated":
		return NewSimulatedSignal(cfg.Static, time.Now().UnixNano())
	default:
		return NewStaticSignal(cfg.Static)
	}
}
