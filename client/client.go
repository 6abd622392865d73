// Package client talks to the ordering API the way the table and kitchen
// front ends do: it submits carts over HTTP and follows rooms over websocket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yeremiapane/tableorder/cart"
	"github.com/yeremiapane/tableorder/models"
	"github.com/yeremiapane/tableorder/services"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
	dialer  *websocket.Dialer
	token   string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithToken authenticates requests as a staff member.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		dialer:  websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		}
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

// Login exchanges staff credentials for a token used by later calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/login", body, &out); err != nil {
		return err
	}
	c.token = out.Token
	return nil
}

func (c *Client) Menu(ctx context.Context, category string) ([]models.MenuItem, error) {
	path := "/api/menu"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}
	var items []models.MenuItem
	if err := c.do(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) MenuItem(ctx context.Context, id uint) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/menu/%d", id), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// SubmitCart places the cart as a new order for table. The cart is cleared
// only once the server has accepted the order.
func (c *Client) SubmitCart(ctx context.Context, ct *cart.Cart, table string, payment models.PaymentMethod, note string) (*models.Order, error) {
	if ct.Len() == 0 {
		return nil, fmt.Errorf("%w: cart is empty", models.ErrValidation)
	}
	var order models.Order
	if err := c.do(ctx, http.MethodPost, "/api/orders", ct.Submission(table, payment, note), &order); err != nil {
		return nil, err
	}
	if err := ct.Clear(ctx); err != nil {
		return &order, fmt.Errorf("order %d placed but cart not cleared: %w", order.ID, err)
	}
	return &order, nil
}

// SubmitEdit replaces the items of a Pending order with the cart contents.
func (c *Client) SubmitEdit(ctx context.Context, orderID uint, ct *cart.Cart, payment models.PaymentMethod, note string) (*models.Order, error) {
	if ct.Len() == 0 {
		return nil, fmt.Errorf("%w: cart is empty", models.ErrValidation)
	}
	in := ct.Submission("", payment, note)
	patch := services.PatchInput{Items: in.Items, TotalPrice: in.TotalPrice, PaymentMethod: &in.PaymentMethod}
	if note != "" {
		patch.Note = &note
	}
	var order models.Order
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/orders/%d", orderID), patch, &order); err != nil {
		return nil, err
	}
	if err := ct.Clear(ctx); err != nil {
		return &order, fmt.Errorf("order %d updated but cart not cleared: %w", order.ID, err)
	}
	return &order, nil
}

func (c *Client) Order(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/orders/%d", id), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Orders lists every order, newest first. Staff only.
func (c *Client) Orders(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	path := "/api/orders"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var orders []models.Order
	if err := c.do(ctx, http.MethodGet, path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) OrdersForTable(ctx context.Context, table string) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders/table/"+url.PathEscape(table), nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) Cancel(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/orders/%d/cancel", id), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Advance moves an order to its next status. An empty to lets the server
// pick the next one. Staff only.
func (c *Client) Advance(ctx context.Context, id uint, to models.OrderStatus) (*models.Order, error) {
	var body interface{}
	if to != "" {
		body = map[string]models.OrderStatus{"status": to}
	}
	var order models.Order
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/orders/%d/advance", id), body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) RemoveItem(ctx context.Context, id uint, index int) (*models.Order, error) {
	var order models.Order
	path := fmt.Sprintf("/api/orders/%d/items/%s", id, strconv.Itoa(index))
	if err := c.do(ctx, http.MethodDelete, path, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}
