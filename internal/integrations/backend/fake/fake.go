package fake

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/subul/order-gateway/internal/integrations/backend"
	"github.com/subul/order-gateway/internal/models"
)

// Backend — in-memory замена legacy-бэкенда: раздаёт идентификаторы
// и хранит клиентов/заказы. Используется в тестах и локальном режиме.
type Backend struct {
	mu sync.Mutex

	customers map[uint64]*models.Customer
	orders    map[uint64]*models.Order

	nextCustomerID uint64
	nextLocationID uint64
	nextOrderID    uint64

	// Счётчики вызовов для тестов.
	ConfirmCalls int
	CreateCalls  int
	UpdateCalls  int
}

func New() *Backend {
	return &Backend{
		customers:      map[uint64]*models.Customer{},
		orders:         map[uint64]*models.Order{},
		nextCustomerID: 1,
		nextLocationID: 1,
		nextOrderID:    1,
	}
}

func (b *Backend) FindCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.customers {
		if c.Phone == phone {
			cp := cloneCustomer(*c)
			return &cp, nil
		}
	}
	return nil, nil
}

func (b *Backend) CreateCustomer(ctx context.Context, c models.Customer) (*models.Customer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c.ID = b.nextCustomerID
	b.nextCustomerID++
	b.assignLocationIDs(&c)

	stored := cloneCustomer(c)
	b.customers[c.ID] = &stored
	out := cloneCustomer(c)
	return &out, nil
}

func (b *Backend) UpdateCustomer(ctx context.Context, c models.Customer) (*models.Customer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.customers[c.ID]; !ok {
		return nil, errors.Errorf("customer %d not found", c.ID)
	}
	b.assignLocationIDs(&c)

	stored := cloneCustomer(c)
	b.customers[c.ID] = &stored
	out := cloneCustomer(c)
	return &out, nil
}

func (b *Backend) UpdateCustomerLocation(ctx context.Context, customerID, locationID uint64, loc models.Location) (*models.Customer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.customers[customerID]
	if !ok {
		return nil, errors.Errorf("customer %d not found", customerID)
	}
	for i := range c.Locations {
		if c.Locations[i].ID == locationID {
			c.Locations[i].Name = loc.Name
			c.Locations[i].Coordinates = loc.Coordinates
			c.Locations[i].Address = loc.Address
			out := cloneCustomer(*c)
			return &out, nil
		}
	}
	return nil, errors.Errorf("location %d not found", locationID)
}

func (b *Backend) CreateOrder(ctx context.Context, req backend.OrderRequest) (*models.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.CreateCalls++

	o := b.orderFromRequest(req)
	o.ID = b.nextOrderID
	b.nextOrderID++
	o.CreatedAt = time.Now().UTC()

	b.orders[o.ID] = o
	out := *o
	return &out, nil
}

func (b *Backend) UpdateOrder(ctx context.Context, req backend.OrderRequest) (*models.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.UpdateCalls++

	prev, ok := b.orders[req.ID]
	if !ok {
		return nil, errors.Errorf("order %d not found", req.ID)
	}
	o := b.orderFromRequest(req)
	o.ID = prev.ID
	o.CreatedAt = prev.CreatedAt
	o.ConfirmedAt = prev.ConfirmedAt

	b.orders[o.ID] = o
	out := *o
	return &out, nil
}

func (b *Backend) ConfirmOrder(ctx context.Context, orderID uint64) (*models.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ConfirmCalls++

	o, ok := b.orders[orderID]
	if !ok {
		return nil, errors.Errorf("order %d not found", orderID)
	}
	if o.Status != models.OrderStatusConfirmed {
		o.Status = models.OrderStatusConfirmed
		now := time.Now().UTC()
		o.ConfirmedAt = &now
	}
	out := *o
	return &out, nil
}

func (b *Backend) DeleteOrder(ctx context.Context, orderID uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.orders[orderID]; !ok {
		return errors.Errorf("order %d not found", orderID)
	}
	delete(b.orders, orderID)
	return nil
}

func (b *Backend) ListOrders(ctx context.Context, f models.OrderListFilter) (*models.OrderPage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var all []*models.Order
	for _, o := range b.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.DistributorID != nil && (o.Distributor == nil || o.Distributor.ID != *f.DistributorID) {
			continue
		}
		if f.DateFrom != nil && o.CreatedAt.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && o.CreatedAt.After(*f.DateTo) {
			continue
		}
		cp := *o
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	page := f.Page
	if page < 1 {
		page = 1
	}
	size := f.PageSize
	if size < 1 {
		size = 10
	}
	total := len(all)
	totalPages := (total + size - 1) / size

	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	return &models.OrderPage{
		Items:      all[start:end],
		TotalCount: total,
		PageNumber: page,
		PageSize:   size,
		TotalPages: totalPages,
	}, nil
}

// Order возвращает копию заказа по id (хелпер для тестов).
func (b *Backend) Order(id uint64) (models.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	if !ok {
		return models.Order{}, false
	}
	return *o, true
}

// Customer возвращает копию клиента по id (хелпер для тестов).
func (b *Backend) Customer(id uint64) (models.Customer, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.customers[id]
	if !ok {
		return models.Customer{}, false
	}
	return cloneCustomer(*c), true
}

func (b *Backend) assignLocationIDs(c *models.Customer) {
	for i := range c.Locations {
		if c.Locations[i].ID == 0 {
			c.Locations[i].ID = b.nextLocationID
			b.nextLocationID++
		}
	}
}

func (b *Backend) orderFromRequest(req backend.OrderRequest) *models.Order {
	o := &models.Order{
		OrderNumber: req.OrderNumber,
		Cost:        req.Cost,
		Status:      req.StatusString,
	}
	if c, ok := b.customers[req.CustomerID]; ok {
		o.Customer = cloneCustomer(*c)
		for _, l := range c.Locations {
			if l.ID == req.LocationID {
				o.Location = l
				break
			}
		}
	}
	if req.DistributorID != 0 {
		o.Distributor = &models.Distributor{ID: req.DistributorID}
	}
	return o
}

func cloneCustomer(c models.Customer) models.Customer {
	locs := make([]models.Location, len(c.Locations))
	copy(locs, c.Locations)
	c.Locations = locs
	return c
}
