package orders

import (
	"reflect"

	"github.com/subul/order-gateway/internal/models"
)

// SubmitInput — состояние формы заказа на момент действия пользователя.
// OrderID == 0 означает режим создания.
type SubmitInput struct {
	OrderID       uint64
	OrderNumber   string // пусто в режиме создания: номер сгенерирует шлюз
	CurrentStatus string // статус редактируемого заказа ("" при создании)

	Customer      models.Customer // ID == 0 — новый клиент
	Location      models.LocationRef
	Cost          *float64
	DistributorID *uint64
	Role          string

	// Snapshot — снимок на момент начала редактирования; nil при создании.
	Snapshot *EditSnapshot
}

// EditSnapshot фиксирует исходное состояние сессии редактирования.
// Два независимых набора: идентичность клиента и поля заказа.
type EditSnapshot struct {
	Customer CustomerFields
	Order    OrderFields
}

type CustomerFields struct {
	Name      string
	Phone     string
	Locations []models.Location
}

type OrderFields struct {
	Cost          *float64
	Status        string
	DistributorID *uint64
	LocationID    uint64
}

func (in SubmitInput) editMode() bool { return in.OrderID != 0 }

func customerFields(c models.Customer) CustomerFields {
	return CustomerFields{Name: c.Name, Phone: c.Phone, Locations: c.Locations}
}

// customerChanged — глубокое сравнение идентичности клиента со снимком.
func customerChanged(snap *EditSnapshot, c models.Customer) bool {
	if snap == nil {
		return true
	}
	return !reflect.DeepEqual(snap.Customer, customerFields(c))
}

// orderChanged — глубокое сравнение полей заказа со снимком. LocationID в
// составе набора покрывает и случай, когда сохранение локаций тихо сменило
// идентификатор «той же» локации.
func orderChanged(snap *EditSnapshot, cur OrderFields) bool {
	if snap == nil {
		return true
	}
	return !reflect.DeepEqual(snap.Order, cur)
}
