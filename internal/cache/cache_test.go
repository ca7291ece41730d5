package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemoryCache 测试内存缓存的基本功能
func TestMemoryCache(t *testing.T) {
	config := Config{
		Type:            "memory",
		DefaultTTL:      time.Second * 2,
		CleanupInterval: time.Second,
	}
	cache, err := NewMemoryCache(config)
	assert.NoError(t, err)
	assert.NotNil(t, cache)

	// 测试Set和Get
	err = cache.Set("key1", "extracted text", 0)
	assert.NoError(t, err)

	val, found, err := cache.Get("key1")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "extracted text", val)

	// 测试不存在的键
	val, found, err = cache.Get("non-existent")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, val)

	// 测试过期
	err = cache.Set("expire-soon", "temp-value", time.Millisecond*500)
	assert.NoError(t, err)

	time.Sleep(time.Second)

	val, found, err = cache.Get("expire-soon")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, val)

	// 测试删除
	err = cache.Set("to-delete", "delete-me", 0)
	assert.NoError(t, err)

	err = cache.Delete("to-delete")
	assert.NoError(t, err)

	_, found, err = cache.Get("to-delete")
	assert.NoError(t, err)
	assert.False(t, found)

	// 测试清空
	err = cache.Set("key2", "value2", 0)
	assert.NoError(t, err)

	err = cache.Clear()
	assert.NoError(t, err)

	_, found, err = cache.Get("key2")
	assert.NoError(t, err)
	assert.False(t, found)
}

// TestRedisCache 使用miniredis测试Redis缓存
func TestRedisCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cache, err := NewRedisCache(Config{
		Type:      "redis",
		RedisAddr: mr.Addr(),
	})
	require.NoError(t, err)

	err = cache.Set("hash1", "cached extraction", time.Minute)
	assert.NoError(t, err)

	val, found, err := cache.Get("hash1")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "cached extraction", val)

	_, found, err = cache.Get("missing")
	assert.NoError(t, err)
	assert.False(t, found)

	err = cache.Delete("hash1")
	assert.NoError(t, err)

	_, found, err = cache.Get("hash1")
	assert.NoError(t, err)
	assert.False(t, found)
}

// TestNewCacheFactory 测试缓存工厂
func TestNewCacheFactory(t *testing.T) {
	cache, err := NewCache(Config{Type: "memory"})
	assert.NoError(t, err)
	assert.NotNil(t, cache)

	// 未知类型回退到内存缓存
	cache, err = NewCache(Config{Type: "unknown"})
	assert.NoError(t, err)
	assert.NotNil(t, cache)
}

// TestExtractionKey 测试缓存键生成
func TestExtractionKey(t *testing.T) {
	assert.Equal(t, "extract:abc123", ExtractionKey("abc123"))
}
