package controllers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yeremiapane/tableorder/kds"
	"github.com/yeremiapane/tableorder/models"
	"github.com/yeremiapane/tableorder/services"
	"github.com/yeremiapane/tableorder/utils"
)

type KDSController struct {
	Hub      *kds.Hub
	Orders   *services.OrderService
	upgrader websocket.Upgrader
}

func NewKDSController(hub *kds.Hub, orders *services.OrderService, allowedOrigin string) *KDSController {
	return &KDSController{
		Hub:    hub,
		Orders: orders,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "" || allowedOrigin == "*" || origin == "" || origin == allowedOrigin
			},
		},
	}
}

// KDSHandler -> websocket endpoint shared by kitchen and table views
func (kc *KDSController) KDSHandler(c *gin.Context) {
	ws, err := kc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Printf("Websocket upgrade failed: %v", err)
		return
	}

	role := c.GetString("role")
	who := actor(c)
	utils.InfoLogger.WithField("actor", who).Debug("Websocket client connected")

	kc.Hub.Serve(c.Request.Context(), ws, func(ctx context.Context, upd kds.StatusUpdate) error {
		return kc.applyStatus(ctx, role, who, upd)
	})
	utils.InfoLogger.WithField("actor", who).Debug("Websocket client disconnected")
}

// applyStatus lets customers cancel or re-announce, and staff move orders
// along the chain.
func (kc *KDSController) applyStatus(ctx context.Context, role, who string, upd kds.StatusUpdate) error {
	if role == "" && upd.Status != models.StatusCancelled {
		current, err := kc.Orders.Get(ctx, upd.OrderID)
		if err != nil {
			return err
		}
		if current.Status != upd.Status {
			return fmt.Errorf("%w: kitchen access required", errForbidden)
		}
	}
	_, err := kc.Orders.SetStatus(ctx, upd.OrderID, upd.Status, who)
	return err
}
