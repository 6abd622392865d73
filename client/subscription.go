package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/yeremiapane/tableorder/kds"
)

// Subscription is a live websocket joined to one or more rooms.
type Subscription struct {
	conn   *websocket.Conn
	events chan kds.Message
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Subscribe connects to the realtime channel and joins rooms.
func (c *Client) Subscribe(ctx context.Context, rooms ...string) (*Subscription, error) {
	u, err := url.Parse(c.baseURL + "/ws")
	if err != nil {
		return nil, err
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	if c.token != "" {
		q := u.Query()
		q.Set("token", c.token)
		u.RawQuery = q.Encode()
	}

	conn, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}

	s := &Subscription{conn: conn, events: make(chan kds.Message, 64), done: make(chan struct{})}
	for _, room := range rooms {
		if err := s.Join(room); err != nil {
			conn.Close()
			return nil, err
		}
	}
	go s.readLoop()
	return s, nil
}

// Events yields messages until the connection ends.
func (s *Subscription) Events() <-chan kds.Message {
	return s.events
}

func (s *Subscription) Join(room string) error {
	return s.send(kds.EventJoinRoom, room)
}

func (s *Subscription) Leave(room string) error {
	return s.send(kds.EventLeaveRoom, room)
}

// SendStatus asks the server to apply and announce a status change.
func (s *Subscription) SendStatus(upd kds.StatusUpdate) error {
	return s.send(kds.EventUpdateStatus, upd)
}

func (s *Subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.writeMu.Lock()
		s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}

func (s *Subscription) send(event string, data interface{}) error {
	msg, err := kds.NewMessage(event, data)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(msg)
}

func (s *Subscription) readLoop() {
	defer close(s.events)
	for {
		var msg kds.Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			return
		}
		select {
		case s.events <- msg:
		case <-s.done:
			return
		}
	}
}
