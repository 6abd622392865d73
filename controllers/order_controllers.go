package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/tableorder/models"
	"github.com/yeremiapane/tableorder/services"
	"github.com/yeremiapane/tableorder/utils"
)

type OrderController struct {
	Orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{Orders: orders}
}

// CreateOrder -> customer submits a cart
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var input models.OrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.Create(c.Request.Context(), input, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

// GetAllOrders -> newest first, ?status= filters
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	orders, err := oc.Orders.List(c.Request.Context(), models.OrderStatus(c.Query("status")))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

func (oc *OrderController) GetOrderByID(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		respondServiceError(c, err)
		return
	}
	order, err := oc.Orders.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

func (oc *OrderController) GetOrderHistory(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		respondServiceError(c, err)
		return
	}
	logs, err := oc.Orders.History(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status history", logs)
}

func (oc *OrderController) GetOrdersByTable(c *gin.Context) {
	orders, err := oc.Orders.ListByTable(c.Request.Context(), c.Param("table_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Orders for table", orders)
}

// PatchOrder -> generic update of status, items, note or payment method
func (oc *OrderController) PatchOrder(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		respondServiceError(c, err)
		return
	}
	var input services.PatchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	// Only staff move an order along the kitchen chain.
	if input.Status != nil && *input.Status != models.StatusCancelled && c.GetString("role") == "" {
		current, err := oc.Orders.Get(c.Request.Context(), id)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		if current.Status != *input.Status {
			utils.RespondError(c, http.StatusForbidden, errors.New("kitchen access required"))
			return
		}
	}

	order, err := oc.Orders.Patch(c.Request.Context(), id, input, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order updated", order)
}

// AdvanceOrder -> kitchen moves the order one step; the body may name the
// expected next status.
func (oc *OrderController) AdvanceOrder(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		respondServiceError(c, err)
		return
	}
	var body struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.Advance(c.Request.Context(), id, body.Status, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order advanced to "+string(order.Status), order)
}

func (oc *OrderController) CancelOrder(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		respondServiceError(c, err)
		return
	}
	order, err := oc.Orders.Cancel(c.Request.Context(), id, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order cancelled", order)
}

func (oc *OrderController) RemoveOrderItem(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		respondServiceError(c, err)
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid item index"))
		return
	}

	order, err := oc.Orders.RemoveItem(c.Request.Context(), id, index, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	msg := "Item removed"
	if order.Status == models.StatusCancelled {
		msg = "Last item removed, order cancelled"
	}
	utils.RespondJSON(c, http.StatusOK, msg, order)
}
