package resthttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/subul/order-gateway/internal/integrations/backend"
	"github.com/subul/order-gateway/internal/models"
)

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:5000"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
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
	ID           uint64          `json:"id"`
	OrderNumber  string          `json:"orderNumber"`
	Customer     customerDTO     `json:"customer"`
	Location     locationDTO     `json:"location"`
	Distributor  *distributorDTO `json:"distributor"`
	Cost         *float64        `json:"cost"`
	StatusString string          `json:"statusString"`
	CreatedAt    time.Time       `json:"createdAt"`
	ConfirmedAt  *time.Time      `json:"confirmedAt"`
}

type orderPageDTO struct {
	Items      []orderDTO `json:"items"`
	TotalCount int        `json:"totalCount"`
	PageNumber int        `json:"pageNumber"`
	PageSize   int        `json:"pageSize"`
	TotalPages int        `json:"totalPages"`
}

type errorBody struct {
	Message string `json:"message"`
}

// doJSON выполняет запрос и декодирует 2xx-ответ в out (если out != nil).
// 4xx со структурированным телом превращается в backend.APIError.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return errors.Wrap(err, "parse base url")
	}
	u.Path = path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal body")
		}
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 == 4 {
		var eb errorBody
		if json.NewDecoder(resp.Body).Decode(&eb) == nil && eb.Message != "" {
			return &backend.APIError{StatusCode: resp.StatusCode, Message: eb.Message}
		}
		return &backend.APIError{StatusCode: resp.StatusCode}
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("backend http %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode")
	}
	return nil
}

func (c *Client) FindCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	q := url.Values{}
	q.Set("phone", phone)

	var dto customerDTO
	err := c.doJSON(ctx, http.MethodGet, "/api/customers/by-phone", q, nil, &dto)
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	cust := toCustomer(dto)
	return &cust, nil
}

func (c *Client) CreateCustomer(ctx context.Context, cust models.Customer) (*models.Customer, error) {
	var dto customerDTO
	if err := c.doJSON(ctx, http.MethodPost, "/api/customers", nil, fromCustomer(cust), &dto); err != nil {
		return nil, err
	}
	out := toCustomer(dto)
	return &out, nil
}

func (c *Client) UpdateCustomer(ctx context.Context, cust models.Customer) (*models.Customer, error) {
	path := fmt.Sprintf("/api/customers/%d", cust.ID)
	var dto customerDTO
	if err := c.doJSON(ctx, http.MethodPut, path, nil, fromCustomer(cust), &dto); err != nil {
		return nil, err
	}
	out := toCustomer(dto)
	return &out, nil
}

func (c *Client) UpdateCustomerLocation(ctx context.Context, customerID, locationID uint64, loc models.Location) (*models.Customer, error) {
	path := fmt.Sprintf("/api/customers/%d/locations/%d", customerID, locationID)
	body := locationDTO{Name: loc.Name, Coordinates: loc.Coordinates, Address: loc.Address}
	var dto customerDTO
	if err := c.doJSON(ctx, http.MethodPut, path, nil, body, &dto); err != nil {
		return nil, err
	}
	out := toCustomer(dto)
	return &out, nil
}

func (c *Client) CreateOrder(ctx context.Context, req backend.OrderRequest) (*models.Order, error) {
	var dto orderDTO
	if err := c.doJSON(ctx, http.MethodPost, "/api/orders", nil, req, &dto); err != nil {
		return nil, err
	}
	out := toOrder(dto)
	return &out, nil
}

func (c *Client) UpdateOrder(ctx context.Context, req backend.OrderRequest) (*models.Order, error) {
	path := fmt.Sprintf("/api/orders/%d", req.ID)
	var dto orderDTO
	if err := c.doJSON(ctx, http.MethodPut, path, nil, req, &dto); err != nil {
		return nil, err
	}
	out := toOrder(dto)
	return &out, nil
}

func (c *Client) ConfirmOrder(ctx context.Context, orderID uint64) (*models.Order, error) {
	path := fmt.Sprintf("/api/orders/%d/confirm", orderID)
	var dto orderDTO
	if err := c.doJSON(ctx, http.MethodPost, path, nil, nil, &dto); err != nil {
		return nil, err
	}
	out := toOrder(dto)
	return &out, nil
}

func (c *Client) DeleteOrder(ctx context.Context, orderID uint64) error {
	path := fmt.Sprintf("/api/orders/%d", orderID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) ListOrders(ctx context.Context, f models.OrderListFilter) (*models.OrderPage, error) {
	q := url.Values{}
	if f.DistributorID != nil {
		q.Set("distributorId", strconv.FormatUint(*f.DistributorID, 10))
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.DateFrom != nil {
		q.Set("dateFrom", f.DateFrom.UTC().Format(time.RFC3339))
	}
	if f.DateTo != nil {
		q.Set("dateTo", f.DateTo.UTC().Format(time.RFC3339))
	}
	q.Set("page", strconv.Itoa(f.Page))
	q.Set("pageSize", strconv.Itoa(f.PageSize))

	var dto orderPageDTO
	if err := c.doJSON(ctx, http.MethodGet, "/api/orders", q, nil, &dto); err != nil {
		return nil, err
	}

	items := make([]*models.Order, 0, len(dto.Items))
	for _, o := range dto.Items {
		ord := toOrder(o)
		items = append(items, &ord)
	}
	return &models.OrderPage{
		Items:      items,
		TotalCount: dto.TotalCount,
		PageNumber: dto.PageNumber,
		PageSize:   dto.PageSize,
		TotalPages: dto.TotalPages,
	}, nil
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

func toOrder(d orderDTO) models.Order {
	o := models.Order{
		ID:          d.ID,
		OrderNumber: d.OrderNumber,
		Customer:    toCustomer(d.Customer),
		Location:    models.Location(d.Location),
		Cost:        d.Cost,
		Status:      d.StatusString,
		CreatedAt:   d.CreatedAt,
		ConfirmedAt: d.ConfirmedAt,
	}
	if d.Distributor != nil {
		o.Distributor = &models.Distributor{ID: d.Distributor.ID, Name: d.Distributor.Name, Phone: d.Distributor.Phone}
	}
	return o
}
