package orders

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/subul/order-gateway/internal/models"
)

func TestInflightGroup_reusesPendingCall(t *testing.T) {
	g := newInflightGroup()

	var calls atomic.Int64
	gate := make(chan struct{})

	var wg sync.WaitGroup
	results := make([]*models.Order, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o, err := g.do("confirm-7", func() (*models.Order, error) {
				calls.Add(1)
				<-gate
				return &models.Order{ID: 7}, nil
			})
			require.NoError(t, err)
			results[i] = o
		}(i)
	}

	// Даём всем горутинам встать в очередь за одним вызовом.
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	close(gate)
	wg.Wait()

	require.Equal(t, int64(1), calls.Load())
	for _, o := range results {
		require.Equal(t, uint64(7), o.ID)
	}
}

func TestInflightGroup_differentKeysRunIndependently(t *testing.T) {
	g := newInflightGroup()

	var calls atomic.Int64
	_, _ = g.do("update-1", func() (*models.Order, error) {
		calls.Add(1)
		return nil, nil
	})
	_, _ = g.do("update-2", func() (*models.Order, error) {
		calls.Add(1)
		return nil, nil
	})
	require.Equal(t, int64(2), calls.Load())
}
