package models

import "time"

// Статусы заказа (закрытый набор; Pending — legacy, бэкенд может его вернуть,
// но воркфлоу его никогда не вычисляет).
const (
	OrderStatusDraft     = "Draft"
	OrderStatusNew       = "New"
	OrderStatusPending   = "Pending"
	OrderStatusConfirmed = "Confirmed"
)

// Роли пользователей.
const (
	RoleAdmin       = "admin"
	RoleDistributor = "distributor"
)

type Location struct {
	ID          uint64 // 0 = ещё не сохранена на бэкенде
	Name        string
	Coordinates string // "lat,lng", может быть пустой
	Address     string
}

type Customer struct {
	ID        uint64 // 0 = provisional (ещё не сохранён)
	Name      string
	Phone     string
	Locations []Location
}

type Distributor struct {
	ID    uint64
	Name  string
	Phone string
}

// LocationRef — ссылка формы на локацию: либо уже сохранённая (по id),
// либо новая, которую бэкенд ещё не видел. Явный tag вместо "id == 0".
type LocationRef struct {
	Saved       bool
	ID          uint64 // валиден при Saved
	Name        string
	Coordinates string
	Address     string
}

func PersistedLocation(id uint64) LocationRef {
	return LocationRef{Saved: true, ID: id}
}

func UnsavedLocation(name, coordinates, address string) LocationRef {
	return LocationRef{Name: name, Coordinates: coordinates, Address: address}
}

type Order struct {
	ID          uint64 // 0 = ещё не сохранён
	OrderNumber string
	Customer    Customer
	Location    Location
	Distributor *Distributor
	Cost        *float64
	Status      string
	CreatedAt   time.Time
	ConfirmedAt *time.Time
}

// NewOrderNumber генерирует клиентский номер заказа: ORD + yyyyMMddHHmmss.
func NewOrderNumber(t time.Time) string {
	return "ORD" + t.UTC().Format("20060102150405")
}

type OrderListFilter struct {
	DistributorID *uint64
	Status        string
	DateFrom      *time.Time
	DateTo        *time.Time
	Page          int
	PageSize      int
}

type OrderPage struct {
	Items      []*Order
	TotalCount int
	PageNumber int
	PageSize   int
	TotalPages int
}
