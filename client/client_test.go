package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yeremiapane/tableorder/cart"
	"github.com/yeremiapane/tableorder/database"
	"github.com/yeremiapane/tableorder/kds"
	"github.com/yeremiapane/tableorder/models"
	"github.com/yeremiapane/tableorder/repository"
	"github.com/yeremiapane/tableorder/router"
)

type testServer struct {
	*httptest.Server
	hub     *kds.Hub
	biryani models.MenuItem
	curry   models.MenuItem
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenMemory()
	require.NoError(t, err)
	ctx := context.Background()

	catalog := repository.NewMenuCatalog(db)
	biryani := models.MenuItem{Name: "Biryani", Category: "Mains", Price: decimal.NewFromInt(100), Available: true}
	curry := models.MenuItem{
		Name: "Curry", Category: "Mains", Price: decimal.NewFromInt(50), Available: true,
		Options: []models.OptionGroup{{
			Name: "Spice Level", Type: models.SelectionSingle,
			Choices: []models.Choice{
				{Name: "Mild", Available: true},
				{Name: "Hot", Price: decimal.NewFromInt(20), Available: true},
			},
		}},
	}
	require.NoError(t, catalog.Create(ctx, &biryani))
	require.NoError(t, catalog.Create(ctx, &curry))

	hash, err := bcrypt.GenerateFromPassword([]byte("kitchen-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, repository.NewUserStore(db).Create(ctx, &models.User{
		Username: "chef", PasswordHash: string(hash), Role: models.RoleKitchen,
	}))

	hub := kds.NewHub()
	srv := httptest.NewServer(router.SetupRouter(router.Options{DB: db, Hub: hub}))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, hub: hub, biryani: biryani, curry: curry}
}

func receive(t *testing.T, sub *Subscription) kds.Message {
	t.Helper()
	select {
	case msg, ok := <-sub.Events():
		require.True(t, ok, "subscription ended")
		return msg
	case <-time.After(3 * time.Second):
		t.Fatal("no event received")
	}
	return kds.Message{}
}

func fillCart(t *testing.T, ts *testServer, c *cart.Cart) {
	t.Helper()
	ctx := context.Background()
	_, err := c.AddItem(ctx, ts.biryani, 2, nil)
	require.NoError(t, err)
	hot := []models.SelectedOption{{Name: "Spice Level", Choice: "Hot", Price: decimal.NewFromInt(20)}}
	_, err = c.AddItem(ctx, ts.curry, 1, hot)
	require.NoError(t, err)
}

func TestOrderFlowWithRooms(t *testing.T) {
	ts := setupServer(t)
	ctx := context.Background()

	customer := New(ts.URL)
	staff := New(ts.URL)
	require.NoError(t, staff.Login(ctx, "chef", "kitchen-pass"))

	kitchenSub, err := staff.Subscribe(ctx, kds.KitchenRoom)
	require.NoError(t, err)
	defer kitchenSub.Close()
	table7, err := customer.Subscribe(ctx, kds.TableRoom("7"))
	require.NoError(t, err)
	defer table7.Close()
	table8, err := customer.Subscribe(ctx, kds.TableRoom("8"))
	require.NoError(t, err)
	defer table8.Close()

	assert.Eventually(t, func() bool {
		return ts.hub.SubscriberCount(kds.KitchenRoom) == 1 &&
			ts.hub.SubscriberCount(kds.TableRoom("7")) == 1 &&
			ts.hub.SubscriberCount(kds.TableRoom("8")) == 1
	}, 3*time.Second, 10*time.Millisecond)

	menu, err := customer.Menu(ctx, "Mains")
	require.NoError(t, err)
	require.Len(t, menu, 2)

	c, err := cart.New(ctx, "table-7-session", cart.NewMemoryStorage())
	require.NoError(t, err)
	fillCart(t, ts, c)
	assert.True(t, c.TotalPrice().Equal(decimal.NewFromInt(270)))

	order, err := customer.SubmitCart(ctx, c, "7", "", "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.True(t, order.TotalPrice.Equal(decimal.NewFromInt(270)))
	assert.Equal(t, 0, c.Len())

	msg := receive(t, kitchenSub)
	assert.Equal(t, kds.EventNewOrder, msg.Event)

	chain := []models.OrderStatus{models.StatusCooking, models.StatusPlating, models.StatusServing, models.StatusCompleted}
	for _, want := range chain {
		got, err := staff.Advance(ctx, order.ID, "")
		require.NoError(t, err)
		assert.Equal(t, want, got.Status)
		assert.True(t, got.TotalPrice.Equal(decimal.NewFromInt(270)))

		for _, sub := range []*Subscription{kitchenSub, table7} {
			msg := receive(t, sub)
			assert.Equal(t, kds.EventStatusChanged, msg.Event)
			var upd kds.StatusUpdate
			require.NoError(t, msg.Decode(&upd))
			assert.Equal(t, want, upd.Status)
			assert.Equal(t, "7", upd.TableNumber)
		}
	}

	select {
	case msg := <-table8.Events():
		t.Fatalf("table 8 received %q for another table", msg.Event)
	case <-time.After(100 * time.Millisecond):
	}

	orders, err := customer.OrdersForTable(ctx, "7")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, models.StatusCompleted, orders[0].Status)
}

func TestFailedSubmissionKeepsCart(t *testing.T) {
	ts := setupServer(t)
	ctx := context.Background()
	customer := New(ts.URL)

	c, err := cart.New(ctx, "s1", cart.NewMemoryStorage())
	require.NoError(t, err)
	gone := ts.biryani
	gone.ID = 999
	_, err = c.AddItem(ctx, gone, 1, nil)
	require.NoError(t, err)

	_, err = customer.SubmitCart(ctx, c, "3", models.PaymentCash, "")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, 1, c.Len())

	empty, err := cart.New(ctx, "s2", cart.NewMemoryStorage())
	require.NoError(t, err)
	_, err = customer.SubmitCart(ctx, empty, "3", models.PaymentCash, "")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCustomerEditsAndCancels(t *testing.T) {
	ts := setupServer(t)
	ctx := context.Background()
	customer := New(ts.URL)

	c, err := cart.New(ctx, "s1", cart.NewMemoryStorage())
	require.NoError(t, err)
	fillCart(t, ts, c)
	order, err := customer.SubmitCart(ctx, c, "4", models.PaymentOnline, "")
	require.NoError(t, err)

	require.NoError(t, c.LoadOrder(ctx, *order))
	lines := c.Lines()
	require.Len(t, lines, 2)
	require.NoError(t, c.UpdateQuantity(ctx, lines[0].ID, -1))

	edited, err := customer.SubmitEdit(ctx, order.ID, c, models.PaymentOnline, "less rice")
	require.NoError(t, err)
	assert.Equal(t, order.ID, edited.ID)
	assert.True(t, edited.TotalPrice.Equal(decimal.NewFromInt(170)))
	assert.Equal(t, "less rice", edited.Note)

	removed, err := customer.RemoveItem(ctx, order.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, removed.Status)
	assert.True(t, removed.TotalPrice.Equal(decimal.NewFromInt(70)))

	cancelled, err := customer.RemoveItem(ctx, order.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	_, err = customer.Cancel(ctx, order.ID)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
}

func TestCustomerCannotAdvance(t *testing.T) {
	ts := setupServer(t)
	ctx := context.Background()
	customer := New(ts.URL)

	c, err := cart.New(ctx, "s1", cart.NewMemoryStorage())
	require.NoError(t, err)
	fillCart(t, ts, c)
	order, err := customer.SubmitCart(ctx, c, "5", models.PaymentCash, "")
	require.NoError(t, err)

	_, err = customer.Advance(ctx, order.ID, models.StatusCooking)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	staff := New(ts.URL)
	require.NoError(t, staff.Login(ctx, "chef", "kitchen-pass"))
	_, err = staff.Advance(ctx, order.ID, models.StatusServing)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)

	got, err := customer.Order(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)

	err = New(ts.URL).Login(ctx, "chef", "wrong")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestStatusOverWebsocket(t *testing.T) {
	ts := setupServer(t)
	ctx := context.Background()
	customer := New(ts.URL)

	c, err := cart.New(ctx, "s1", cart.NewMemoryStorage())
	require.NoError(t, err)
	fillCart(t, ts, c)
	order, err := customer.SubmitCart(ctx, c, "6", models.PaymentCash, "")
	require.NoError(t, err)

	sub, err := customer.Subscribe(ctx, kds.TableRoom("6"))
	require.NoError(t, err)
	defer sub.Close()

	// Customers may not move the order into the kitchen chain.
	require.NoError(t, sub.SendStatus(kds.StatusUpdate{OrderID: order.ID, TableNumber: "6", Status: models.StatusCooking}))
	assert.Equal(t, kds.EventError, receive(t, sub).Event)

	require.NoError(t, sub.SendStatus(kds.StatusUpdate{OrderID: order.ID, TableNumber: "6", Status: models.StatusCancelled}))
	msg := receive(t, sub)
	assert.Equal(t, kds.EventStatusChanged, msg.Event)

	got, err := customer.Order(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
}
