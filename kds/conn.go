package kds

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/tableorder/models"
	"github.com/yeremiapane/tableorder/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// StatusHandler applies a status change requested over the socket. It is
// expected to publish the resulting status-changed itself.
type StatusHandler func(ctx context.Context, upd StatusUpdate) error

// Serve runs one websocket client until it disconnects or ctx ends. With a
// nil onStatus, update-status and new-order are re-published as received.
func (h *Hub) Serve(ctx context.Context, ws *websocket.Conn, onStatus StatusHandler) {
	sub := h.Join()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan string, 8)
	go h.writePump(ctx, ws, sub, errs)

	defer func() {
		sub.Close()
		ws.Close()
	}()

	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.ErrorLogger.Printf("Websocket read error: %v", err)
			}
			return
		}
		if reason := h.handleInbound(ctx, sub, msg, onStatus); reason != "" {
			select {
			case errs <- reason:
			default:
			}
		}
	}
}

func (h *Hub) handleInbound(ctx context.Context, sub *Subscription, msg Message, onStatus StatusHandler) string {
	log := utils.InfoLogger.WithField("event", msg.Event)

	switch msg.Event {
	case EventJoinRoom, EventLeaveRoom:
		var room string
		if err := msg.Decode(&room); err != nil || !ValidRoom(room) {
			return "invalid room"
		}
		if msg.Event == EventJoinRoom {
			sub.Join(room)
		} else {
			sub.Leave(room)
		}
		log.WithField("room", room).Debug("room membership changed")

	case EventUpdateStatus:
		var upd StatusUpdate
		if err := msg.Decode(&upd); err != nil || upd.OrderID == 0 || !upd.Status.Valid() {
			return "invalid status update"
		}
		if onStatus != nil {
			if err := onStatus(ctx, upd); err != nil {
				log.WithFields(logrus.Fields{"order_id": upd.OrderID, "status": upd.Status}).
					Infof("status update rejected: %v", err)
				return err.Error()
			}
			return ""
		}
		if err := h.PublishStatus(ctx, upd); err != nil {
			return err.Error()
		}

	case EventNewOrder:
		// Orders created through the API are announced by the server.
		if onStatus != nil {
			return ""
		}
		var order models.Order
		if err := msg.Decode(&order); err != nil {
			return "invalid order"
		}
		if err := h.PublishNewOrder(ctx, order); err != nil {
			return err.Error()
		}

	default:
		return "unknown event"
	}
	return ""
}

func (h *Hub) writePump(ctx context.Context, ws *websocket.Conn, sub *Subscription, errs <-chan string) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(msg); err != nil {
				return
			}
		case reason := <-errs:
			msg, _ := NewMessage(EventError, reason)
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
