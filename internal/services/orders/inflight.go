package orders

import (
	"sync"

	"github.com/subul/order-gateway/internal/models"
)

// inflightGroup дедуплицирует повторные запросы: операция с тем же ключом
// (confirm-<id>, update-<id>, delete-<id>...) переиспользует результат уже
// выполняющегося вызова вместо отправки дубля.
type inflightGroup struct {
	mu    sync.Mutex
	calls map[string]*inflightCall
}

type inflightCall struct {
	done  chan struct{}
	order *models.Order
	err   error
}

func newInflightGroup() *inflightGroup {
	return &inflightGroup{calls: map[string]*inflightCall{}}
}

func (g *inflightGroup) do(key string, fn func() (*models.Order, error)) (*models.Order, error) {
	g.mu.Lock()
	if c, ok := g.calls[key]; ok {
		g.mu.Unlock()
		<-c.done
		return c.order, c.err
	}
	c := &inflightCall{done: make(chan struct{})}
	g.calls[key] = c
	g.mu.Unlock()

	c.order, c.err = fn()

	g.mu.Lock()
	delete(g.calls, key)
	g.mu.Unlock()
	close(c.done)

	return c.order, c.err
}
