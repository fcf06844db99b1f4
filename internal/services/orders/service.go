package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/subul/order-gateway/internal/broker/messages"
	"github.com/subul/order-gateway/internal/integrations/backend"
	"github.com/subul/order-gateway/internal/models"
	"github.com/subul/order-gateway/internal/phone"
)

type LookupInvalidator interface {
	Invalidate(ctx context.Context, normalizedPhone string)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Service ведёт жизненный цикл заказа: сначала клиент, затем локация,
// затем запись заказа, затем (опционально) подтверждение. Шаги строго
// последовательны, сетевые сбои не ретраятся.
type Service struct {
	backend     backend.Client
	invalidator LookupInvalidator
	producer    Producer
	topic       string
	inflight    *inflightGroup
	now         func() time.Time
}

func New(b backend.Client) *Service {
	return &Service{backend: b, inflight: newInflightGroup(), now: time.Now}
}

func (s *Service) WithLookupInvalidator(inv LookupInvalidator) *Service {
	s.invalidator = inv
	return s
}

func (s *Service) WithEvents(p Producer, topic string) *Service {
	s.producer = p
	s.topic = topic
	return s
}

type SubmitOutcome struct {
	Order    *models.Order
	Customer *models.Customer

	Confirmed bool
	// ShortCircuit: наружу не ушло ни одного вызова (заказ уже подтверждён
	// или сохранять нечего), пользователя просто уводим к списку.
	ShortCircuit bool
}

// Submit — основное действие формы.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*SubmitOutcome, error) {
	// Единственный жёсткий локальный гейт: без телефона в сеть не ходим.
	if strings.TrimSpace(in.Customer.Phone) == "" {
		return nil, fieldErr("phone", msgPhoneRequired)
	}
	if in.editMode() && in.CurrentStatus == models.OrderStatusConfirmed {
		return &SubmitOutcome{ShortCircuit: true}, nil
	}

	auth, err := s.syncCustomer(ctx, in)
	if err != nil {
		return nil, err
	}

	locID := s.resolveLocationID(auth, in)
	target := TargetStatus(in)

	var order *models.Order
	issued := false
	if in.editMode() {
		cur := OrderFields{Cost: in.Cost, Status: target, DistributorID: in.DistributorID, LocationID: locID}
		if orderChanged(in.Snapshot, cur) {
			order, err = s.updateOrder(ctx, in, auth.ID, locID, target)
			issued = true
		}
	} else {
		order, err = s.createOrder(ctx, in, auth.ID, locID, target)
		issued = true
	}
	if err != nil {
		return nil, err
	}

	out := &SubmitOutcome{Order: order, Customer: auth}

	if issued && target == models.OrderStatusNew && in.CurrentStatus != models.OrderStatusConfirmed {
		id := in.OrderID
		if order != nil {
			id = order.ID
		}
		confirmed, err := s.confirmOrder(ctx, id, in.Role)
		if err != nil {
			// Заказ сохранён, но не подтверждён — допустимый частичный успех.
			return out, userErr(msgConfirmFailed, err)
		}
		out.Order = confirmed
		out.Confirmed = true
	}
	return out, nil
}

// SaveDraftOnBack сохраняет незавершённое состояние при уходе со страницы:
// черновик в режиме создания, diff-апдейт в режиме редактирования.
// Ошибка возвращается для показа, но навигацию никогда не блокирует.
func (s *Service) SaveDraftOnBack(ctx context.Context, in SubmitInput) (*SubmitOutcome, error) {
	if in.editMode() && in.CurrentStatus == models.OrderStatusConfirmed {
		return &SubmitOutcome{ShortCircuit: true}, nil
	}
	if strings.TrimSpace(in.Customer.Phone) == "" {
		// Без телефона черновик не к кому привязать.
		return &SubmitOutcome{ShortCircuit: true}, nil
	}

	auth, err := s.syncCustomer(ctx, in)
	if err != nil {
		return nil, err
	}
	locID := s.resolveLocationID(auth, in)

	if in.editMode() {
		target := TargetStatus(in)
		cur := OrderFields{Cost: in.Cost, Status: target, DistributorID: in.DistributorID, LocationID: locID}
		if !orderChanged(in.Snapshot, cur) {
			return &SubmitOutcome{Customer: auth}, nil
		}
		order, err := s.updateOrder(ctx, in, auth.ID, locID, target)
		if err != nil {
			return nil, err
		}
		return &SubmitOutcome{Order: order, Customer: auth}, nil
	}

	order, err := s.createOrder(ctx, in, auth.ID, locID, models.OrderStatusDraft)
	if err != nil {
		return nil, err
	}
	return &SubmitOutcome{Order: order, Customer: auth}, nil
}

// Confirm — явное подтверждение заказа (действие админа из списка).
func (s *Service) Confirm(ctx context.Context, orderID uint64, role string) (*models.Order, error) {
	o, err := s.confirmOrder(ctx, orderID, role)
	if err != nil {
		return nil, userErr(msgConfirmFailed, err)
	}
	return o, nil
}

// Delete — явное удаление; подтверждённый заказ удалить нельзя.
func (s *Service) Delete(ctx context.Context, orderID uint64, currentStatus, role string) error {
	if currentStatus == models.OrderStatusConfirmed {
		return &WorkflowError{UserMessage: msgDeleteConfirmed}
	}
	_, err := s.inflight.do(fmt.Sprintf("delete-%d", orderID), func() (*models.Order, error) {
		return nil, s.backend.DeleteOrder(ctx, orderID)
	})
	if err != nil {
		return userErr(msgDeleteFailed, err)
	}
	s.publishEvent(ctx, messages.OrderEvent{
		Type:       messages.OrderEventDeleted,
		OrderID:    orderID,
		ActorRole:  role,
		OccurredAt: s.now().UTC(),
	})
	return nil
}

func (s *Service) List(ctx context.Context, f models.OrderListFilter) (*models.OrderPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 10
	}
	page, err := s.backend.ListOrders(ctx, f)
	if err != nil {
		return nil, userErr(msgListFailed, err)
	}
	return page, nil
}

// syncCustomer приводит клиента на бэкенде в соответствие с формой и
// возвращает авторитетную запись. Новая несохранённая локация из формы
// попадает в список клиента; список дедуплицируется перед отправкой.
func (s *Service) syncCustomer(ctx context.Context, in SubmitInput) (*models.Customer, error) {
	c := in.Customer
	if !in.Location.Saved && strings.TrimSpace(in.Location.Name) != "" {
		present := false
		for _, l := range c.Locations {
			if l.Name == in.Location.Name && l.Coordinates == in.Location.Coordinates {
				present = true
				break
			}
		}
		if !present {
			locs := make([]models.Location, 0, len(c.Locations)+1)
			locs = append(locs, c.Locations...)
			locs = append(locs, models.Location{
				Name:        in.Location.Name,
				Coordinates: in.Location.Coordinates,
				Address:     in.Location.Address,
			})
			c.Locations = locs
		}
	}

	if in.editMode() && !customerChanged(in.Snapshot, c) {
		// Клиент не менялся; правки выбранной сохранённой локации
		// уходят отдельным вызовом.
		if upd, pushed, err := s.pushLocationEdits(ctx, c, in); err != nil {
			return nil, err
		} else if pushed {
			return upd, nil
		}
		return &c, nil
	}

	c.Locations = DedupLocations(c.Locations)

	var (
		saved *models.Customer
		err   error
	)
	if c.ID == 0 {
		saved, err = s.backend.CreateCustomer(ctx, c)
	} else {
		saved, err = s.backend.UpdateCustomer(ctx, c)
	}
	if err != nil {
		return nil, userErr(msgCustomerSaveFailed, err)
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, phone.Normalize(saved.Phone))
	}
	return saved, nil
}

func (s *Service) pushLocationEdits(ctx context.Context, c models.Customer, in SubmitInput) (*models.Customer, bool, error) {
	if !in.Location.Saved || in.Location.ID == 0 || strings.TrimSpace(in.Location.Name) == "" {
		return nil, false, nil
	}
	for _, l := range c.Locations {
		if l.ID != in.Location.ID {
			continue
		}
		if l.Name == in.Location.Name && l.Coordinates == in.Location.Coordinates && l.Address == in.Location.Address {
			return nil, false, nil
		}
		upd, err := s.backend.UpdateCustomerLocation(ctx, c.ID, l.ID, models.Location{
			Name:        in.Location.Name,
			Coordinates: in.Location.Coordinates,
			Address:     in.Location.Address,
		})
		if err != nil {
			return nil, false, userErr(msgCustomerSaveFailed, err)
		}
		if s.invalidator != nil {
			s.invalidator.Invalidate(ctx, phone.Normalize(upd.Phone))
		}
		return upd, true, nil
	}
	return nil, false, nil
}

func (s *Service) resolveLocationID(auth *models.Customer, in SubmitInput) uint64 {
	if loc, ok := ReconcileLocation(auth.Locations, in.Location); ok {
		return loc.ID
	}
	return 0
}

func (s *Service) buildRequest(in SubmitInput, customerID, locID uint64, target string) backend.OrderRequest {
	num := in.OrderNumber
	if num == "" {
		num = models.NewOrderNumber(s.now())
	}
	req := backend.OrderRequest{
		ID:           in.OrderID,
		OrderNumber:  num,
		CustomerID:   customerID,
		LocationID:   locID,
		Cost:         in.Cost,
		StatusString: target,
	}
	if in.DistributorID != nil {
		req.DistributorID = *in.DistributorID
	}
	return req
}

func (s *Service) createOrder(ctx context.Context, in SubmitInput, customerID, locID uint64, target string) (*models.Order, error) {
	req := s.buildRequest(in, customerID, locID, target)
	order, err := s.inflight.do("add-"+req.OrderNumber, func() (*models.Order, error) {
		return s.backend.CreateOrder(ctx, req)
	})
	if err != nil {
		return nil, userErr(msgOrderSaveFailed, err)
	}
	s.publishOrder(ctx, messages.OrderEventCreated, order, in.Role)
	return order, nil
}

func (s *Service) updateOrder(ctx context.Context, in SubmitInput, customerID, locID uint64, target string) (*models.Order, error) {
	req := s.buildRequest(in, customerID, locID, target)
	order, err := s.inflight.do(fmt.Sprintf("update-%d", req.ID), func() (*models.Order, error) {
		return s.backend.UpdateOrder(ctx, req)
	})
	if err != nil {
		return nil, userErr(msgOrderSaveFailed, err)
	}
	s.publishOrder(ctx, messages.OrderEventUpdated, order, in.Role)
	return order, nil
}

func (s *Service) confirmOrder(ctx context.Context, orderID uint64, role string) (*models.Order, error) {
	order, err := s.inflight.do(fmt.Sprintf("confirm-%d", orderID), func() (*models.Order, error) {
		return s.backend.ConfirmOrder(ctx, orderID)
	})
	if err != nil {
		return nil, err
	}
	s.publishOrder(ctx, messages.OrderEventConfirmed, order, role)
	return order, nil
}

func (s *Service) publishOrder(ctx context.Context, typ string, order *models.Order, role string) {
	if order == nil {
		return
	}
	s.publishEvent(ctx, messages.OrderEvent{
		Type:        typ,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		CustomerID:  order.Customer.ID,
		ActorRole:   role,
		ConfirmedAt: order.ConfirmedAt,
		OccurredAt:  s.now().UTC(),
	})
}

// publishEvent шлёт событие best-effort: сбой брокера не должен ломать
// действие пользователя, оставляем его в логах.
func (s *Service) publishEvent(ctx context.Context, ev messages.OrderEvent) {
	if s.producer == nil {
		return
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	key := []byte(fmt.Sprintf("%d", ev.OrderID))
	if err := s.producer.Publish(ctx, s.topic, key, b); err != nil {
		slog.Error("publish order event", "order_id", ev.OrderID, "type", ev.Type, "error", err.Error())
	}
}
