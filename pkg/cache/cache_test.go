package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient is an in-memory Client with scriptable failures.
type fakeClient struct {
	data   map[string]string
	getErr error
	setErr error
	getN   int
	setN   int
}

func newFakeClient() *fakeClient {
	return &fakeClient{data: make(map[string]string)}
}

func (f *fakeClient) Get(key string) (string, bool, error) {
	f.getN++
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeClient) Set(key, value string, ttl int32) error {
	f.setN++
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	return nil
}

func newTestCache(t *testing.T) (*Cache, *fakeClient, *time.Time) {
	t.Helper()
	client := newFakeClient()
	c := NewWithClient(client, Config{Host: "test:11211", DefaultTTL: 3600})
	now := time.Unix(1700000000, 0)
	c.now = func() time.Time { return now }
	return c, client, &now
}

func TestGetPut(t *testing.T) {
	c, client, _ := newTestCache(t)

	_, found := c.Get("callsign", "N0CALL")
	assert.False(t, found)

	require.True(t, c.Put("callsign", "N0CALL", "42"))

	v, found := c.Get("callsign", "N0CALL")
	require.True(t, found)
	assert.Equal(t, "42", v)

	// Namespaces do not collide.
	_, found = c.Get("dest", "N0CALL")
	assert.False(t, found)

	assert.Contains(t, client.data, "callsign:N0CALL")
}

func TestBreakerSuppressesTraffic(t *testing.T) {
	c, client, now := newTestCache(t)
	client.getErr = errors.New("connection refused")

	_, found := c.Get("duplicates", "abc")
	assert.False(t, found)
	assert.False(t, c.Ok())

	// Ops inside the window never reach the client.
	client.getErr = nil
	calls := client.getN
	_, found = c.Get("duplicates", "abc")
	assert.False(t, found)
	assert.False(t, c.Put("duplicates", "abc", "x"))
	assert.Equal(t, calls, client.getN)
	assert.Equal(t, 0, client.setN)

	// At exactly 60s the window still holds; past it traffic resumes.
	*now = now.Add(60 * time.Second)
	assert.False(t, c.Ok())
	*now = now.Add(time.Second)
	assert.True(t, c.Ok())
	assert.True(t, c.Put("duplicates", "abc", "x"))
	_, found = c.Get("duplicates", "abc")
	assert.True(t, found)
}

func TestBreakerTripsOnSetFailure(t *testing.T) {
	c, client, _ := newTestCache(t)
	client.setErr = errors.New("broken pipe")

	assert.False(t, c.Put("position", "n0call", "x"))
	assert.False(t, c.Ok())
}

func TestStatsAccounting(t *testing.T) {
	c, _, _ := newTestCache(t)

	c.Get("callsign", "a")      // miss
	c.Put("callsign", "a", "1") // stored
	c.Get("callsign", "a")      // hit
	c.Get("dest", "b")          // miss, other ns

	cs := c.Stats().NS("callsign")
	assert.Equal(t, uint64(2), cs.Tries)
	assert.Equal(t, uint64(1), cs.Hits)
	assert.Equal(t, uint64(1), cs.Misses)
	assert.Equal(t, uint64(1), cs.Stored)
	assert.Equal(t, 50.0, cs.HitRate())

	assert.Equal(t, uint64(1), c.Stats().NS("dest").Misses)
	assert.Equal(t, []string{"callsign", "dest"}, c.Stats().Namespaces())

	// Both cadence sets see the same traffic; resetting one leaves the other.
	assert.Equal(t, uint64(2), c.EmitStats().NS("callsign").Tries)
	c.EmitStats().Reset()
	assert.Equal(t, uint64(0), c.EmitStats().NS("callsign").Tries)
	assert.Equal(t, uint64(2), c.Stats().NS("callsign").Tries)
}

func TestProfileRunningMean(t *testing.T) {
	p := &Profile{}
	p.Add(1)
	p.Add(2)
	p.Add(3)
	assert.Equal(t, uint64(3), p.Count)
	assert.InDelta(t, 2.0, p.Mean, 0.0001)
}
