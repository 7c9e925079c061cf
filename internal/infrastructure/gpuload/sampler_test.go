package gpuload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tts-gateway/internal/config"
)

func TestStaticSignal(t *testing.T) {
	assert.Equal(t, 42.5, NewStaticSignal(42.5).Sample())
}

func TestSimulatedSignalBounded(t *testing.T) {
	signal := NewSimulatedSignal(50, 1)
	for i := 0; i < 100; i++ {
		v := signal.Sample()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestFileSignal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gpu_util")
	require.NoError(t, os.WriteFile(path, []byte(" 73.5 \n"), 0o644))

	assert.Equal(t, 73.5, NewFileSignal(path).Sample())
}

func TestFileSignalFailsSafe(t *testing.T) {
	// 读取失败按满载处理，宁可误熔断也不放量
	assert.Equal(t, 100.0, NewFileSignal("/nonexistent/gpu_util").Sample())

	path := filepath.Join(t.TempDir(), "garbage")
	require.NoError(t, os.WriteFile(path, []byte("not-a-number"), 0o644))
	assert.Equal(t, 100.0, NewFileSignal(path).Sample())
}

func TestFromConfig(t *testing.T) {
	static := FromConfig(&config.LoadSignalConfig{Source: "static", Static: 10})
	assert.IsType(t, &StaticSignal{}, static)

	file := FromConfig(&config.LoadSignalConfig{Source: "file", Path: "/tmp/x"})
	assert.IsType(t, &FileSignal{}, file)

	simulated := FromConfig(&config.LoadSignalConfig{Source: "simulated", Static: 50})
	assert.IsType(t, &SimulatedSignal{}, simulated)

	// 未知来源回落到静态信号
	fallback := FromConfig(&config.LoadSignalConfig{Source: "bogus", Static: 5})
	assert.IsType(t, &StaticSignal{}, fallback)
}
