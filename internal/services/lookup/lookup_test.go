package lookup

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/subul/order-gateway/internal/models"
)

type fakeFinder struct {
	mu        sync.Mutex
	calls     []string
	customers map[string]*models.Customer
	err       error
	gates     map[string]chan struct{}
}

func (f *fakeFinder) FindCustomerByPhone(ctx context.Context, p string) (*models.Customer, error) {
	f.mu.Lock()
	f.calls = append(f.calls, p)
	c := f.customers[p]
	var g chan struct{}
	if f.gates != nil {
		g = f.gates[p]
	}
	err := f.err
	f.mu.Unlock()
	if g != nil {
		<-g
	}
	return c, err
}

func (f *fakeFinder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newFakeCache() *fakeCache { return &fakeCache{m: map[string][]byte{}} }

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[key]
	return b, ok, nil
}
func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
	return nil
}

func TestResolver_invalidPhoneSkipsLookup(t *testing.T) {
	f := &fakeFinder{}
	r := NewResolver(f, nil, 0)

	res := r.Resolve(context.Background(), "1234567", true)
	require.True(t, res.Invalid)
	require.False(t, res.Found)
	require.Zero(t, f.callCount())
}

func TestResolver_foundExpandsLocationsInCreateMode(t *testing.T) {
	cust := &models.Customer{ID: 3, Name: "أحمد", Phone: "0599123456",
		Locations: []models.Location{{ID: 5, Name: "Home"}}}
	f := &fakeFinder{customers: map[string]*models.Customer{"0599123456": cust}}
	r := NewResolver(f, nil, 0)

	res := r.Resolve(context.Background(), "+972599123456", true)
	require.False(t, res.Invalid)
	require.True(t, res.Found)
	require.Equal(t, "0599123456", res.Normalized)
	require.Equal(t, "+972599123456", res.Raw)
	require.True(t, res.ExpandLocations)

	// В режиме редактирования список не раскрываем.
	res = r.Resolve(context.Background(), "0599123456", false)
	require.True(t, res.Found)
	require.False(t, res.ExpandLocations)
}

func TestResolver_notFound(t *testing.T) {
	f := &fakeFinder{}
	r := NewResolver(f, nil, 0)

	res := r.Resolve(context.Background(), "0591234567", true)
	require.False(t, res.Invalid)
	require.False(t, res.Found)
	require.Nil(t, res.Customer)
}

func TestResolver_lookupErrorFallsBackToNotFound(t *testing.T) {
	f := &fakeFinder{err: errors.New("backend down")}
	r := NewResolver(f, nil, 0)

	res := r.Resolve(context.Background(), "0591234567", true)
	require.False(t, res.Invalid)
	require.False(t, res.Found)
}

func TestResolver_cacheHitSkipsBackend(t *testing.T) {
	cust := &models.Customer{ID: 9, Phone: "0591234567"}
	b, _ := json.Marshal(cust)
	c := newFakeCache()
	c.m["customer:phone:0591234567"] = b

	f := &fakeFinder{}
	r := NewResolver(f, c, time.Minute)

	res := r.Resolve(context.Background(), "0591234567", false)
	require.True(t, res.Found)
	require.Equal(t, uint64(9), res.Customer.ID)
	require.Zero(t, f.callCount())
}

func TestResolver_invalidateDropsCachedEntry(t *testing.T) {
	cust := &models.Customer{ID: 9, Phone: "0591234567"}
	f := &fakeFinder{customers: map[string]*models.Customer{"0591234567": cust}}
	c := newFakeCache()
	r := NewResolver(f, c, time.Minute)

	_ = r.Resolve(context.Background(), "0591234567", false)
	require.Contains(t, c.m, "customer:phone:0591234567")

	r.Invalidate(context.Background(), "0591234567")
	require.NotContains(t, c.m, "customer:phone:0591234567")
}

func TestSession_debounceCollapsesKeystrokes(t *testing.T) {
	f := &fakeFinder{}
	r := NewResolver(f, nil, 0)

	var mu sync.Mutex
	var applied []Result
	s := NewSession(context.Background(), r, 30*time.Millisecond, true, func(res Result) {
		mu.Lock()
		applied = append(applied, res)
		mu.Unlock()
	})
	defer s.Close()

	s.Search("059")
	s.Search("05912")
	s.Search("0591234567")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(applied) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, applied, 1)
	require.Equal(t, "0591234567", applied[0].Normalized)
	require.Equal(t, 1, f.callCount())
}

func TestSession_staleResponseSuppressed(t *testing.T) {
	gate1 := make(chan struct{})
	gate2 := make(chan struct{})
	f := &fakeFinder{
		customers: map[string]*models.Customer{
			"0591111111": {ID: 1, Phone: "0591111111"},
			"0592222222": {ID: 2, Phone: "0592222222"},
		},
		gates: map[string]chan struct{}{"0591111111": gate1, "0592222222": gate2},
	}
	r := NewResolver(f, nil, 0)

	var mu sync.Mutex
	var applied []Result
	s := NewSession(context.Background(), r, time.Millisecond, false, func(res Result) {
		mu.Lock()
		applied = append(applied, res)
		mu.Unlock()
	})

	s.SearchNow("0591111111")
	require.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, time.Millisecond)

	s.SearchNow("0592222222")
	require.Eventually(t, func() bool { return f.callCount() == 2 }, time.Second, time.Millisecond)

	// Второй запрос завершается раньше первого.
	close(gate2)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(applied) == 1
	}, time.Second, time.Millisecond)

	close(gate1)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, applied, 1)
	require.Equal(t, "0592222222", applied[0].Normalized)
}
