package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainMemory_SetGetExpire(t *testing.T) {
	m := NewDomainMemory(20 * time.Millisecond)
	defer m.Stop()

	m.Set("example.com", "rod")
	assert.Equal(t, "rod", m.Get("example.com"))
	assert.Equal(t, 1, m.Len())

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, "", m.Get("example.com"))
	assert.Equal(t, 0, m.Len())
}

func TestDomainMemory_ForgetOnlyMatchingEngine(t *testing.T) {
	m := NewDomainMemory(time.Hour)
	defer m.Stop()

	m.Set("example.com", "http")
	assert.False(t, m.Forget("example.com", "rod"))
	assert.Equal(t, "http", m.Get("example.com"))

	assert.True(t, m.Forget("example.com", "http"))
	assert.Equal(t, "", m.Get("example.com"))
	assert.False(t, m.Forget("missing", "http"))
}

func TestDomainMemory_Sweep(t *testing.T) {
	m := NewDomainMemory(time.Hour)
	defer m.Stop()

	m.Set("a", "http")
	m.Set("b", "rod")
	m.sweep(time.Now().Add(2 * time.Hour))
	assert.Equal(t, 0, m.Len())
}

func TestDomainMemory_StopTwice(t *testing.T) {
	m := NewDomainMemory(time.Hour)
	m.Stop()
	assert.NotPanics(t, m.Stop)
}

func TestDispatcher_RememberedEngineFailsFallsBackToRace(t *testing.T) {
	httpEng := &fakeEngine{name: "http"}
	rodEng := &fakeEngine{name: "rod", err: errors.New("crashed")}
	d, memory := newTestDispatcher(httpEng, rodEng)
	defer memory.Stop()
	memory.Set("example.com", "rod")

	res, err := d.Dispatch(context.Background(), &FetchRequest{URL: "https://example.com/c"})
	require.NoError(t, err)
	assert.Equal(t, "http", res.EngineName)
	assert.Equal(t, "http", memory.Get("example.com"))
}
