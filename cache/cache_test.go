package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/jsonpick/models"
)

func TestCache_GetSet(t *testing.T) {
	c := New(10, time.Hour)
	defer c.Stop()

	key := Key(&models.ExtractRequest{URL: "https://example.com"})
	_, hit := c.Get(key, 1000)
	assert.False(t, hit)

	c.Set(key, models.ExtractResponse{Success: true, SourceURL: "https://example.com"})
	got, hit := c.Get(key, 1000)
	require.True(t, hit)
	assert.Equal(t, "https://example.com", got.SourceURL)

	// Mutating the returned copy does not touch the cached value.
	got.CacheStatus = "hit"
	again, _ := c.Get(key, 1000)
	assert.Empty(t, again.CacheStatus)

	_, hit = c.Get(key, 0)
	assert.False(t, hit)
}

func TestCache_MaxAge(t *testing.T) {
	c := New(10, time.Hour)
	defer c.Stop()

	key := Key(&models.ExtractRequest{URL: "https://example.com"})
	c.Set(key, models.ExtractResponse{Success: true})
	time.Sleep(5 * time.Millisecond)

	_, hit := c.Get(key, 1)
	assert.False(t, hit)
}

func TestCache_Capacity(t *testing.T) {
	c := New(2, time.Hour)
	defer c.Stop()

	c.Set("a", models.ExtractResponse{})
	c.Set("b", models.ExtractResponse{})
	c.Set("b", models.ExtractResponse{Success: true})
	assert.Equal(t, 2, c.Len())
	c.Set("c", models.ExtractResponse{})
	assert.Equal(t, 2, c.Len())
}

func TestCache_EvictOlderThan(t *testing.T) {
	c := New(10, time.Hour)
	defer c.Stop()

	c.Set("a", models.ExtractResponse{})
	c.evictOlderThan(time.Now().Add(time.Second))
	assert.Equal(t, 0, c.Len())
}

func TestKey(t *testing.T) {
	base := &models.ExtractRequest{URL: "https://a"}
	assert.Equal(t, Key(base), Key(&models.ExtractRequest{URL: "https://a", FetchMode: "auto"}))
	assert.NotEqual(t, Key(base), Key(&models.ExtractRequest{URL: "https://a", WaitFor: ".x"}))
	assert.NotEqual(t, Key(base), Key(&models.ExtractRequest{URL: "https://a", FetchMode: "http"}))
	assert.NotEqual(t, Key(&models.ExtractRequest{URL: "https://a", WaitFor: "b"}),
		Key(&models.ExtractRequest{URL: "https://ab"}))
}

func TestCacheable(t *testing.T) {
	tests := []struct {
		name string
		req  models.ExtractRequest
		want bool
	}{
		{"max age set", models.ExtractRequest{URL: "https://a", MaxAge: 10}, true},
		{"no max age", models.ExtractRequest{URL: "https://a"}, false},
		{"provided html", models.ExtractRequest{URL: "https://a", MaxAge: 10, HTML: "<p>"}, false},
		{"own browser", models.ExtractRequest{URL: "https://a", MaxAge: 10, CDPURL: "ws://x"}, false},
		{"cookies", models.ExtractRequest{URL: "https://a", MaxAge: 10, Cookies: []models.Cookie{{Name: "sid", Value: "1"}}}, false},
		{"headers", models.ExtractRequest{URL: "https://a", MaxAge: 10, Headers: map[string]string{"Authorization": "Bearer t"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Cacheable(&tt.req))
		})
	}
}
