package policymodule

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mediamesh/playadvisor/internal/database"
)

func TestClientCacheGetSet(t *testing.T) {
	cache := NewClientCache(time.Minute)
	profile := &database.ClientProfile{DeviceID: "dev-1", Category: "web"}

	assert.Nil(t, cache.Get("dev-1"))

	cache.Set("dev-1", profile)
	assert.Same(t, profile, cache.Get("dev-1"))
	assert.Equal(t, 1, cache.Len())
}

func TestClientCacheExpiry(t *testing.T) {
	cache := NewClientCache(10 * time.Millisecond)
	cache.Set("dev-1", &database.ClientProfile{DeviceID: "dev-1"})

	time.Sleep(25 * time.Millisecond)

	assert.Nil(t, cache.Get("dev-1"))
	assert.Equal(t, 0, cache.Len(), "expired entry is removed on read")
}

func TestClientCacheInvalidate(t *testing.T) {
	cache := NewClientCache(time.Minute)
	cache.Set("dev-1", &database.ClientProfile{DeviceID: "dev-1"})
	cache.Set("dev-2", &database.ClientProfile{DeviceID: "dev-2"})

	cache.Invalidate("dev-1")

	assert.Nil(t, cache.Get("dev-1"))
	assert.NotNil(t, cache.Get("dev-2"))
}

func TestClientCachePurge(t *testing.T) {
	cache := NewClientCache(time.Minute)
	cache.Set("dev-1", &database.ClientProfile{DeviceID: "dev-1"})
	cache.Set("dev-2", &database.ClientProfile{DeviceID: "dev-2"})

	cache.Purge()

	assert.Equal(t, 0, cache.Len())
}

func TestClientCacheDisabled(t *testing.T) {
	cache := NewClientCache(0)
	cache.Set("dev-1", &database.ClientProfile{DeviceID: "dev-1"})

	assert.Nil(t, cache.Get("dev-1"))
	assert.Equal(t, 0, cache.Len())
}

func TestClientCacheConcurrentAccess(t *testing.T) {
	cache := NewClientCache(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := fmt.Sprintf("dev-%d", j%10)
				cache.Set(id, &database.ClientProfile{DeviceID: id})
				cache.Get(id)
				if j%7 == 0 {
					cache.Invalidate(id)
				}
			}
		}(i)
	}
	wg.Wait()
}
