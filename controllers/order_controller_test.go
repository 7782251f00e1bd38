package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"checkout-service/controllers"
	"checkout-service/middleware"
	"checkout-service/models"
	"checkout-service/routes"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// asUser injects the caller's identity the way the auth middleware would.
func asUser(userID uuid.UUID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserContextKey, userID)
		c.Set(middleware.RoleContextKey, role)
		c.Next()
	}
}

// ---- concrete mock implementing services.OrderService ----

type stubOrderService struct {
	order  *models.Order
	listed *services.OrderResponse
	svcErr *services.ServiceError

	gotRequester models.Requester
	gotCreateReq *services.CreateOrderRequest
	gotOrderID   uuid.UUID
	gotOpts      services.ListOrdersOptions
}

func (s *stubOrderService) CreateOrder(_ context.Context, requester models.Requester, req *services.CreateOrderRequest) (*models.Order, *services.ServiceError) {
	s.gotRequester = requester
	s.gotCreateReq = req
	if s.svcErr != nil {
		return nil, s.svcErr
	}
	return s.order, nil
}

func (s *stubOrderService) GetOrder(_ context.Context, requester models.Requester, orderID uuid.UUID) (*models.Order, *services.ServiceError) {
	s.gotRequester = requester
	s.gotOrderID = orderID
	if s.svcErr != nil {
		return nil, s.svcErr
	}
	return s.order, nil
}

func (s *stubOrderService) ListOrders(_ context.Context, requester models.Requester, opts services.ListOrdersOptions) (*services.OrderResponse, *services.ServiceError) {
	s.gotRequester = requester
	s.gotOpts = opts
	if s.svcErr != nil {
		return nil, s.svcErr
	}
	return s.listed, nil
}

func (s *stubOrderService) CancelOrder(_ context.Context, requester models.Requester, orderID uuid.UUID) (*models.Order, *services.ServiceError) {
	s.gotRequester = requester
	s.gotOrderID = orderID
	if s.svcErr != nil {
		return nil, s.svcErr
	}
	return s.order, nil
}

func setupOrderRouter(svc services.OrderService, mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	oc := controllers.NewOrderController(svc)
	pc := controllers.NewPaymentController(&stubPaymentService{})
	routes.RegisterOrderRoutes(r, oc, pc, mw...)
	return r
}

// ---- tests ----

func TestCreateOrderEndpoint_Created(t *testing.T) {
	userID := uuid.New()
	svc := &stubOrderService{order: &models.Order{ID: uuid.New(), OwnerID: userID}}
	r := setupOrderRouter(svc, asUser(userID, models.RoleCustomer))

	body, _ := json.Marshal(services.CreateOrderRequest{
		Items:           []services.CreateOrderItem{{ProductID: uuid.New(), Quantity: 2}},
		ShippingAddress: "1 Main St",
	})
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", "attempt-1")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Contains(t, resp, "order")

	assert.Equal(t, userID, svc.gotRequester.UserID)
	assert.Equal(t, "attempt-1", svc.gotCreateReq.IdempotencyKey)
}

func TestCreateOrderEndpoint_BadJSON(t *testing.T) {
	svc := &stubOrderService{}
	r := setupOrderRouter(svc, asUser(uuid.New(), models.RoleCustomer))

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader([]byte("not-json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrderEndpoint_ServiceErrorCode(t *testing.T) {
	svc := &stubOrderService{svcErr: &services.ServiceError{
		Code:       services.CodeInsufficientStock,
		StatusCode: http.StatusConflict,
		Message:    `insufficient stock for product "Monitor"`,
	}}
	r := setupOrderRouter(svc, asUser(uuid.New(), models.RoleCustomer))

	body, _ := json.Marshal(services.CreateOrderRequest{
		Items:           []services.CreateOrderItem{{ProductID: uuid.New(), Quantity: 1}},
		ShippingAddress: "1 Main St",
	})
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), services.CodeInsufficientStock)
	assert.Contains(t, w.Body.String(), "Monitor")
}

func TestCreateOrderEndpoint_Unauthenticated(t *testing.T) {
	r := setupOrderRouter(&stubOrderService{})

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetOrderEndpoint_Success(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrderService{order: &models.Order{ID: orderID}}
	r := setupOrderRouter(svc, asUser(uuid.New(), models.RoleCustomer))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/"+orderID.String(), nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, orderID, svc.gotOrderID)
}

func TestGetOrderEndpoint_InvalidID(t *testing.T) {
	r := setupOrderRouter(&stubOrderService{}, asUser(uuid.New(), models.RoleCustomer))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid order ID")
}

func TestListOrdersEndpoint_PassesQuery(t *testing.T) {
	svc := &stubOrderService{listed: &services.OrderResponse{
		Orders: []models.Order{},
		Meta:   services.MetaData{Page: 2, Limit: 100},
	}}
	r := setupOrderRouter(svc, asUser(uuid.New(), models.RoleAdmin))

	target := "/orders?page=2&limit=500&status=paid&user_id=" + uuid.NewString()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, svc.gotOpts.Page)
	assert.Equal(t, 100, svc.gotOpts.Limit)
	assert.Equal(t, "paid", svc.gotOpts.Status)
	assert.NotEmpty(t, svc.gotOpts.UserID)
}

func TestCancelOrderEndpoint_Success(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrderService{order: &models.Order{ID: orderID, Status: models.OrderStatusCancelled}}
	r := setupOrderRouter(svc, asUser(uuid.New(), models.RoleCustomer))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/cancel", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, orderID, svc.gotOrderID)
	assert.Contains(t, w.Body.String(), "CANCELLED")
}
