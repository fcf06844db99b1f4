package ordersapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/subul/order-gateway/internal/models"
	"github.com/subul/order-gateway/internal/services/lookup"
	"github.com/subul/order-gateway/internal/services/orders"
)

type API struct {
	svc      *orders.Service
	resolver *lookup.Resolver
}

func New(svc *orders.Service, resolver *lookup.Resolver) *API {
	return &API{svc: svc, resolver: resolver}
}

func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/customers/lookup", a.lookupCustomer)
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", a.listOrders)
		r.Post("/submit", a.submitOrder)
		r.Post("/draft", a.saveDraft)
		r.Post("/{orderID}/confirm", a.confirmOrder)
		r.Delete("/{orderID}", a.deleteOrder)
	})
	return r
}

const msgUnexpected = "حدث خطأ غير متوقع"

// errorEnvelope — контракт ошибок для фронта: канал SET_ERROR.
type errorEnvelope struct {
	Type    string `json:"type"`
	Payload string `json:"payload"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func envelopeFor(err error) (errorEnvelope, int) {
	var wf *orders.WorkflowError
	if errors.As(err, &wf) {
		status := http.StatusBadGateway
		switch {
		case wf.Field != "":
			status = http.StatusBadRequest
		case wf.Err == nil:
			// Локальный guard (например, удаление подтверждённого заказа).
			status = http.StatusConflict
		}
		return errorEnvelope{Type: "SET_ERROR", Payload: wf.UserMessage, Field: wf.Field}, status
	}
	return errorEnvelope{Type: "SET_ERROR", Payload: msgUnexpected}, http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	env, status := envelopeFor(err)
	writeJSON(w, status, env)
}

type locationDTO struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Coordinates string `json:"coordinates"`
	Address     string `json:"address"`
}

type customerDTO struct {
	ID        uint64        `json:"id"`
	Name      string        `json:"name"`
	Phone     string        `json:"phone"`
	Locations []locationDTO `json:"locations"`
}

type distributorDTO struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type orderDTO struct {
	ID          uint64          `json:"id"`
	OrderNumber string          `json:"orderNumber"`
	Customer    customerDTO     `json:"customer"`
	Location    locationDTO     `json:"location"`
	Distributor *distributorDTO `json:"distributor,omitempty"`
	Cost        *float64        `json:"cost"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	ConfirmedAt *time.Time      `json:"confirmedAt,omitempty"`
}

type locationRefDTO struct {
	Saved       bool   `json:"saved"`
	ID          uint64 `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Coordinates string `json:"coordinates,omitempty"`
	Address     string `json:"address,omitempty"`
}

type orderFieldsDTO struct {
	Cost          *float64 `json:"cost"`
	Status        string   `json:"status"`
	DistributorID *uint64  `json:"distributorId,omitempty"`
	LocationID    uint64   `json:"locationId"`
}

type snapshotDTO struct {
	Customer customerDTO    `json:"customer"`
	Order    orderFieldsDTO `json:"order"`
}

type submitRequest struct {
	OrderID       uint64         `json:"orderId"`
	OrderNumber   string         `json:"orderNumber"`
	CurrentStatus string         `json:"currentStatus"`
	Customer      customerDTO    `json:"customer"`
	Location      locationRefDTO `json:"location"`
	Cost          *float64       `json:"cost"`
	DistributorID *uint64        `json:"distributorId"`
	Role          string         `json:"role"`
	Snapshot      *snapshotDTO   `json:"snapshot"`
}

type submitResponse struct {
	Order        *orderDTO    `json:"order,omitempty"`
	Customer     *customerDTO `json:"customer,omitempty"`
	Confirmed    bool         `json:"confirmed"`
	ShortCircuit bool         `json:"shortCircuit"`
}

type lookupResponse struct {
	Normalized      string       `json:"normalized"`
	Invalid         bool         `json:"invalid"`
	Found           bool         `json:"found"`
	Customer        *customerDTO `json:"customer,omitempty"`
	ExpandLocations bool         `json:"expandLocations"`
}

type orderPageDTO struct {
	Items      []orderDTO `json:"items"`
	TotalCount int        `json:"totalCount"`
	PageNumber int        `json:"pageNumber"`
	PageSize   int        `json:"pageSize"`
	TotalPages int        `json:"totalPages"`
}

func (a *API) lookupCustomer(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("phone")
	createMode := r.URL.Query().Get("mode") != "edit"

	res := a.resolver.Resolve(r.Context(), raw, createMode)

	out := lookupResponse{
		Normalized:      res.Normalized,
		Invalid:         res.Invalid,
		Found:           res.Found,
		ExpandLocations: res.ExpandLocations,
	}
	if res.Customer != nil {
		d := fromCustomer(*res.Customer)
		out.Customer = &d
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) submitOrder(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeSubmit(w, r)
	if !ok {
		return
	}
	out, err := a.svc.Submit(r.Context(), in)
	if err != nil {
		// В том числе частичный успех: заказ сохранён, подтверждение не прошло.
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubmitResponse(out))
}

func (a *API) saveDraft(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeSubmit(w, r)
	if !ok {
		return
	}
	out, err := a.svc.SaveDraftOnBack(r.Context(), in)
	if err != nil {
		// Ошибку показываем, но навигацию назад она не блокирует.
		env, _ := envelopeFor(err)
		writeJSON(w, http.StatusOK, env)
		return
	}
	writeJSON(w, http.StatusOK, toSubmitResponse(out))
}

func (a *API) confirmOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{Type: "SET_ERROR", Payload: msgUnexpected})
		return
	}
	order, err := a.svc.Confirm(r.Context(), id, r.URL.Query().Get("role"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fromOrder(order))
}

func (a *API) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{Type: "SET_ERROR", Payload: msgUnexpected})
		return
	}
	q := r.URL.Query()
	if err := a.svc.Delete(r.Context(), id, q.Get("status"), q.Get("role")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.OrderListFilter{Status: q.Get("status")}
	if v := q.Get("distributorId"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			f.DistributorID = &id
		}
	}
	if v := q.Get("dateFrom"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.DateFrom = &t
		}
	}
	if v := q.Get("dateTo"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.DateTo = &t
		}
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.PageSize, _ = strconv.Atoi(q.Get("pageSize"))

	page, err := a.svc.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]orderDTO, 0, len(page.Items))
	for _, o := range page.Items {
		items = append(items, *fromOrder(o))
	}
	writeJSON(w, http.StatusOK, orderPageDTO{
		Items:      items,
		TotalCount: page.TotalCount,
		PageNumber: page.PageNumber,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	})
}

func decodeSubmit(w http.ResponseWriter, r *http.Request) (orders.SubmitInput, bool) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{Type: "SET_ERROR", Payload: msgUnexpected})
		return orders.SubmitInput{}, false
	}

	in := orders.SubmitInput{
		OrderID:       req.OrderID,
		OrderNumber:   req.OrderNumber,
		CurrentStatus: req.CurrentStatus,
		Customer:      toCustomer(req.Customer),
		Location: models.LocationRef{
			Saved:       req.Location.Saved,
			ID:          req.Location.ID,
			Name:        req.Location.Name,
			Coordinates: req.Location.Coordinates,
			Address:     req.Location.Address,
		},
		Cost:          req.Cost,
		DistributorID: req.DistributorID,
		Role:          req.Role,
	}
	if req.Snapshot != nil {
		in.Snapshot = &orders.EditSnapshot{
			Customer: orders.CustomerFields{
				Name:      req.Snapshot.Customer.Name,
				Phone:     req.Snapshot.Customer.Phone,
				Locations: toCustomer(req.Snapshot.Customer).Locations,
			},
			Order: orders.OrderFields{
				Cost:          req.Snapshot.Order.Cost,
				Status:        req.Snapshot.Order.Status,
				DistributorID: req.Snapshot.Order.DistributorID,
				LocationID:    req.Snapshot.Order.LocationID,
			},
		}
	}
	return in, true
}

func toSubmitResponse(out *orders.SubmitOutcome) submitResponse {
	resp := submitResponse{Confirmed: out.Confirmed, ShortCircuit: out.ShortCircuit}
	if out.Order != nil {
		resp.Order = fromOrder(out.Order)
	}
	if out.Customer != nil {
		d := fromCustomer(*out.Customer)
		resp.Customer = &d
	}
	return resp
}

func toCustomer(d customerDTO) models.Customer {
	locs := make([]models.Location, 0, len(d.Locations))
	for _, l := range d.Locations {
		locs = append(locs, models.Location(l))
	}
	return models.Customer{ID: d.ID, Name: d.Name, Phone: d.Phone, Locations: locs}
}

func fromCustomer(c models.Customer) customerDTO {
	locs := make([]locationDTO, 0, len(c.Locations))
	for _, l := range c.Locations {
		locs = append(locs, locationDTO(l))
	}
	return customerDTO{ID: c.ID, Name: c.Name, Phone: c.Phone, Locations: locs}
}

func fromOrder(o *models.Order) *orderDTO {
	d := &orderDTO{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Customer:    fromCustomer(o.Customer),
		Location:    locationDTO(o.Location),
		Cost:        o.Cost,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
		ConfirmedAt: o.ConfirmedAt,
	}
	if o.Distributor != nil {
		d.Distributor = &distributorDTO{ID: o.Distributor.ID, Name: o.Distributor.Name, Phone: o.Distributor.Phone}
	}
	return d
}
