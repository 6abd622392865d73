package kds

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/tableorder/metrics"
	"github.com/yeremiapane/tableorder/models"
	"github.com/yeremiapane/tableorder/utils"
)

// Event names shared with the kitchen and table front ends.
const (
	EventJoinRoom      = "join-room"
	EventLeaveRoom     = "leave-room"
	EventNewOrder      = "new-order"
	EventUpdateStatus  = "update-status"
	EventStatusChanged = "status-changed"
	EventError         = "error"
)

const KitchenRoom = "kitchen"

const tableRoomPrefix = "table-"

func TableRoom(table string) string {
	return tableRoomPrefix + table
}

// ValidRoom accepts "kitchen" and "table-<id>".
func ValidRoom(room string) bool {
	if room == KitchenRoom {
		return true
	}
	id, ok := strings.CutPrefix(room, tableRoomPrefix)
	return ok && id != "" && len(id) <= 50
}

type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func NewMessage(event string, data interface{}) (Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, err
	}
	return Message{Event: event, Data: raw}, nil
}

func (m Message) Decode(v interface{}) error {
	return json.Unmarshal(m.Data, v)
}

// StatusUpdate is the payload of update-status and status-changed.
type StatusUpdate struct {
	OrderID     uint               `json:"orderId"`
	TableNumber string             `json:"tableNumber"`
	Status      models.OrderStatus `json:"status"`
}

// Hub groups subscribers into rooms and fans messages out to them. Delivery is
// best effort: a subscriber whose buffer is full misses the message.
type Hub struct {
	id         string
	mu         sync.RWMutex
	rooms      map[string]map[*Subscription]struct{}
	relay      Relay
	bufferSize int
}

type Option func(*Hub)

// WithRelay shares published messages with other instances through r.
func WithRelay(r Relay) Option {
	return func(h *Hub) { h.relay = r }
}

func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		id:         uuid.NewString(),
		rooms:      make(map[string]map[*Subscription]struct{}),
		bufferSize: 32,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Start begins receiving relayed messages. It returns once the relay
// subscription is in place; without a relay it does nothing.
func (h *Hub) Start(ctx context.Context) error {
	if h.relay == nil {
		return nil
	}
	envs, err := h.relay.Listen(ctx)
	if err != nil {
		return err
	}
	go func() {
		for env := range envs {
			if env.Origin == h.id {
				continue
			}
			h.deliver(env.Message, env.Rooms)
		}
	}()
	return nil
}

// Join opens a subscription already joined to rooms.
func (h *Hub) Join(rooms ...string) *Subscription {
	s := &Subscription{
		hub:   h,
		ch:    make(chan Message, h.bufferSize),
		rooms: make(map[string]struct{}),
	}
	metrics.Subscribers.Inc()
	for _, r := range rooms {
		s.Join(r)
	}
	return s
}

// Publish delivers msg to every subscriber of the given rooms, once per
// subscriber even if it sits in several of them.
func (h *Hub) Publish(ctx context.Context, msg Message, rooms ...string) {
	h.deliver(msg, rooms)
	if h.relay == nil {
		return
	}
	if err := h.relay.Publish(ctx, Envelope{Origin: h.id, Rooms: rooms, Message: msg}); err != nil {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"event": msg.Event,
			"rooms": rooms,
		}).Errorf("relay publish failed: %v", err)
	}
}

// PublishNewOrder announces a freshly created order to the kitchen.
func (h *Hub) PublishNewOrder(ctx context.Context, order models.Order) error {
	msg, err := NewMessage(EventNewOrder, order)
	if err != nil {
		return err
	}
	h.Publish(ctx, msg, KitchenRoom)
	return nil
}

// PublishStatus re-publishes an update-status as status-changed to the
// kitchen and to the order's table.
func (h *Hub) PublishStatus(ctx context.Context, upd StatusUpdate) error {
	msg, err := NewMessage(EventStatusChanged, upd)
	if err != nil {
		return err
	}
	h.Publish(ctx, msg, KitchenRoom, TableRoom(upd.TableNumber))
	return nil
}

func (h *Hub) SubscriberCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) deliver(msg Message, rooms []string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := make(map[*Subscription]struct{})
	for _, r := range rooms {
		for s := range h.rooms[r] {
			targets[s] = struct{}{}
		}
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"event":       msg.Event,
		"rooms":       rooms,
		"subscribers": len(targets),
	}).Debug("broadcasting")

	for s := range targets {
		select {
		case s.ch <- msg:
			metrics.Delivered.WithLabelValues(msg.Event).Inc()
		default:
			metrics.Dropped.WithLabelValues(msg.Event).Inc()
			utils.InfoLogger.WithField("event", msg.Event).Debug("subscriber buffer full, message dropped")
		}
	}
}

func (h *Hub) add(s *Subscription, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Subscription]struct{})
	}
	h.rooms[room][s] = struct{}{}
}

func (h *Hub) remove(s *Subscription, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(s, room)
}

func (h *Hub) removeLocked(s *Subscription, room string) {
	members := h.rooms[room]
	delete(members, s)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}
