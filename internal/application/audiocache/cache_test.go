package audiocache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tts-gateway/internal/infrastructure/persistence/memory"
)

// failingStore 模拟存储后端故障
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("backend down")
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("backend down")
}

func (failingStore) Ping(context.Context) error {
	return errors.New("backend down")
}

func newTestCache() (*Cache, *memory.Store) {
	store := memory.NewStore()
	return New(store, 24*time.Hour, 2*time.Hour, 200), store
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache()
	ctx := context.Background()

	audio := []byte("fake-mp3-bytes")
	cache.Put(ctx, "tts:abc", audio, 50)

	got, ok := cache.Get(ctx, "tts:abc")
	require.True(t, ok)
	assert.Equal(t, audio, got)
}

func TestCacheMiss(t *testing.T) {
	cache, _ := newTestCache()

	got, ok := cache.Get(context.Background(), "tts:missing")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestCacheTTLTiering(t *testing.T) {
	cache, store := newTestCache()
	ctx := context.Background()
	now := time.Now()

	// 短文本走默认 24h，长文本压到 2h
	cache.Put(ctx, "tts:short", []byte("a"), 50)
	cache.Put(ctx, "tts:long", []byte("b"), 500)

	shortExp, ok := store.ExpiresAt("tts:short")
	require.True(t, ok)
	longExp, ok := store.ExpiresAt("tts:long")
	require.True(t, ok)

	assert.WithinDuration(t, now.Add(24*time.Hour), shortExp, time.Minute)
	assert.WithinDuration(t, now.Add(2*time.Hour), longExp, time.Minute)
}

func TestTTLForBoundary(t *testing.T) {
	cache, _ := newTestCache()

	assert.Equal(t, 24*time.Hour, cache.TTLFor(199))
	assert.Equal(t, 2*time.Hour, cache.TTLFor(200))
	assert.Equal(t, 2*time.Hour, cache.TTLFor(800))
}

func TestGetOrSynthesizeFillsOnMiss(t *testing.T) {
	cache, _ := newTestCache()
	ctx := context.Background()

	var calls int32
	synth := func() ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("synthesized"), nil
	}

	audio, hit, err := cache.GetOrSynthesize(ctx, "tts:k", 50, synth)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []byte("synthesized"), audio)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	// 第二次命中，合成函数不再被调用
	audio, hit, err = cache.GetOrSynthesize(ctx, "tts:k", 50, synth)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte("synthesized"), audio)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestGetOrSynthesizeCoalescesConcurrentMisses(t *testing.T) {
	cache, _ := newTestCache()
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	synth := func() ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []byte("once"), nil
	}

	var wg sync.WaitGroup
	results := make([][]byte, 8)
	hits := make([]bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			audio, hit, err := cache.GetOrSynthesize(ctx, "tts:same", 50, synth)
			assert.NoError(t, err)
			results[i] = audio
			hits[i] = hit
		}(i)
	}

	// 给并发请求时间挂到同一次飞行中的合成上
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "concurrent misses must share one synthesis")
	misses := 0
	for i, audio := range results {
		assert.Equal(t, []byte("once"), audio, "request %d got wrong bytes", i)
		if !hits[i] {
			misses++
		}
	}
	// 只有实际执行合成的请求计为未命中，搭乘者都算命中
	assert.Equal(t, 1, misses, "exactly the synthesizing request must report a miss")
}

func TestCacheDegradesWhenStoreFails(t *testing.T) {
	cache := New(failingStore{}, 24*time.Hour, 2*time.Hour, 200)
	ctx := context.Background()

	// 读写故障都折叠为未命中/静默降级
	_, ok := cache.Get(ctx, "tts:k")
	assert.False(t, ok)

	audio, hit, err := cache.GetOrSynthesize(ctx, "tts:k", 50, func() ([]byte, error) {
		return []byte("fresh"), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []byte("fresh"), audio)

	assert.Error(t, cache.Healthy(ctx))
}
