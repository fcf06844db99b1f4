package backend

import (
	"context"
	"fmt"

	"github.com/subul/order-gateway/internal/models"
)

// OrderRequest — payload записи заказа в том виде, который принимает бэкенд.
type OrderRequest struct {
	ID            uint64   `json:"id,omitempty"`
	OrderNumber   string   `json:"orderNumber"`
	CustomerID    uint64   `json:"customerId"`
	LocationID    uint64   `json:"locationId,omitempty"`
	Cost          *float64 `json:"cost"`
	StatusString  string   `json:"statusString"`
	DistributorID uint64   `json:"distributorId,omitempty"`
}

// Client — контракт legacy-бэкенда Subul. Идентификаторы назначает только бэкенд.
type Client interface {
	// FindCustomerByPhone возвращает (nil, nil), если клиент не найден.
	FindCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error)
	CreateCustomer(ctx context.Context, c models.Customer) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, c models.Customer) (*models.Customer, error)
	UpdateCustomerLocation(ctx context.Context, customerID, locationID uint64, loc models.Location) (*models.Customer, error)
	CreateOrder(ctx context.Context, req OrderRequest) (*models.Order, error)
	UpdateOrder(ctx context.Context, req OrderRequest) (*models.Order, error)
	ConfirmOrder(ctx context.Context, orderID uint64) (*models.Order, error)
	DeleteOrder(ctx context.Context, orderID uint64) error
	ListOrders(ctx context.Context, f models.OrderListFilter) (*models.OrderPage, error)
}

// APIError — структурированная 4xx-ошибка бэкенда; Message показывается пользователю как есть.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend http %d: %s", e.StatusCode, e.Message)
}
