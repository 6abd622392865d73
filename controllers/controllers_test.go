package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/tableorder/controllers"
	"github.com/yeremiapane/tableorder/database"
	"github.com/yeremiapane/tableorder/kds"
	"github.com/yeremiapane/tableorder/models"
	"github.com/yeremiapane/tableorder/repository"
	"github.com/yeremiapane/tableorder/services"
	"github.com/yeremiapane/tableorder/utils"
)

func setupOrderRouter(t *testing.T) (*gin.Engine, models.MenuItem) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenMemory()
	require.NoError(t, err)
	catalog := repository.NewMenuCatalog(db)
	menu := models.MenuItem{Name: "Test Food", Category: "Mains", Price: decimal.NewFromInt(10), Available: true}
	require.NoError(t, catalog.Create(context.Background(), &menu))

	orders := services.NewOrderService(repository.NewOrderStore(db), catalog, kds.NewHub())
	orderCtrl := controllers.NewOrderController(orders)
	tableCtrl := controllers.NewTableController(services.NewReportService(db, orders.Orders, catalog), "https://eat.example.com/")

	router := gin.New()
	// Stand-in for the auth middleware.
	router.Use(func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set("role", role)
			c.Set("userID", uint(1))
		}
	})
	router.POST("/orders", orderCtrl.CreateOrder)
	router.GET("/orders/:id", orderCtrl.GetOrderByID)
	router.PATCH("/orders/:id", orderCtrl.PatchOrder)
	router.POST("/orders/:id/advance", orderCtrl.AdvanceOrder)
	router.DELETE("/orders/:id/items/:index", orderCtrl.RemoveOrderItem)
	router.GET("/tables/:table_id/qr", tableCtrl.GetTableQR)
	return router, menu
}

func send(r http.Handler, method, path, role string, body interface{}) (*httptest.ResponseRecorder, utils.JSONResponse) {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp utils.JSONResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestCreateAndGetOrder(t *testing.T) {
	router, menu := setupOrderRouter(t)

	payload := map[string]interface{}{
		"tableNumber": "1",
		"items": []map[string]interface{}{
			{"menuId": menu.ID, "name": "Test Food", "price": 10, "quantity": 2},
		},
	}
	w, resp := send(router, http.MethodPost, "/orders", "", payload)
	require.Equal(t, http.StatusCreated, w.Code, resp.Message)
	assert.True(t, resp.Status)
	assert.Equal(t, "Order created", resp.Message)

	w, _ = send(router, http.MethodGet, "/orders/1", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"totalPrice":20`)

	w, _ = send(router, http.MethodGet, "/orders/99", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = send(router, http.MethodGet, "/orders/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrderValidation(t *testing.T) {
	router, menu := setupOrderRouter(t)

	cases := map[string]interface{}{
		"no items": map[string]interface{}{"tableNumber": "1", "items": []interface{}{}},
		"no table": map[string]interface{}{"items": []map[string]interface{}{{"menuId": menu.ID, "name": "Test Food", "price": 10, "quantity": 1}}},
		"zero qty": map[string]interface{}{"tableNumber": "1", "items": []map[string]interface{}{{"menuId": menu.ID, "name": "Test Food", "price": 10, "quantity": 0}}},
		"bad total": map[string]interface{}{"tableNumber": "1", "totalPrice": 5,
			"items": []map[string]interface{}{{"menuId": menu.ID, "name": "Test Food", "price": 10, "quantity": 1}}},
		"not json": "{",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w, resp := send(router, http.MethodPost, "/orders", "", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, resp.Status)
		})
	}
}

func TestAdvanceAndPatchStatusCodes(t *testing.T) {
	router, menu := setupOrderRouter(t)

	w, _ := send(router, http.MethodPost, "/orders", "", map[string]interface{}{
		"tableNumber": "1",
		"items": []map[string]interface{}{
			{"menuId": menu.ID, "name": "Test Food", "price": 10, "quantity": 1},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp := send(router, http.MethodPost, "/orders/1/advance", models.RoleKitchen, nil)
	require.Equal(t, http.StatusOK, w.Code, resp.Message)
	assert.Equal(t, "Order advanced to Cooking", resp.Message)

	w, _ = send(router, http.MethodPost, "/orders/1/advance", models.RoleKitchen, map[string]string{"status": "Completed"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = send(router, http.MethodPatch, "/orders/1", "", map[string]string{"status": "Cancelled"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = send(router, http.MethodPatch, "/orders/1", models.RoleKitchen, map[string]string{"status": "Boiling"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = send(router, http.MethodDelete, "/orders/1/items/0", "", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = send(router, http.MethodDelete, "/orders/1/items/x", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTableQR(t *testing.T) {
	router, _ := setupOrderRouter(t)

	w, _ := send(router, http.MethodGet, "/tables/12/qr?size=128", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w, _ = send(router, http.MethodGet, "/tables/12/qr?size=5", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	tc := controllers.NewTableController(nil, "https://eat.example.com/")
	assert.Equal(t, "https://eat.example.com/table/12", tc.TableURL("12"))
}
