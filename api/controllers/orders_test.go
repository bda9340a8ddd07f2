package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/modaro-shop/modaro-backend/api/middleware"
	internalorders "github.com/modaro-shop/modaro-backend/internal/orders"
	"github.com/modaro-shop/modaro-backend/pkg/db/models"
	"github.com/modaro-shop/modaro-backend/pkg/enums"
	"github.com/modaro-shop/modaro-backend/pkg/pagination"
)

type stubOrderService struct {
	create       func(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error)
	cancel       func(ctx context.Context, input internalorders.CancelOrderInput) (*models.Order, error)
	updateStatus func(ctx context.Context, input internalorders.UpdateStatusInput) (*models.Order, error)
	get          func(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	listByUser   func(ctx context.Context, userID uuid.UUID, params pagination.Params) (*internalorders.OrderPage, error)
}

func (s *stubOrderService) Create(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
	if s.create != nil {
		return s.create(ctx, input)
	}
	return &models.Order{}, nil
}

func (s *stubOrderService) Cancel(ctx context.Context, input internalorders.CancelOrderInput) (*models.Order, error) {
	if s.cancel != nil {
		return s.cancel(ctx, input)
	}
	return &models.Order{}, nil
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, input internalorders.UpdateStatusInput) (*models.Order, error) {
	if s.updateStatus != nil {
		return s.updateStatus(ctx, input)
	}
	return &models.Order{}, nil
}

func (s *stubOrderService) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.get != nil {
		return s.get(ctx, orderID)
	}
	return &models.Order{}, nil
}

func (s *stubOrderService) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*internalorders.OrderPage, error) {
	if s.listByUser != nil {
		return s.listByUser(ctx, userID, params)
	}
	return &internalorders.OrderPage{}, nil
}

func authenticate(req *http.Request, userID uuid.UUID, role enums.ActorRole) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(role))
	return req.WithContext(ctx)
}

func TestCreateOrderSuccess(t *testing.T) {
	userID := uuid.New()
	variantID := uuid.New()
	orderID := uuid.New()
	called := false
	svc := &stubOrderService{
		create: func(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
			if input.UserID != userID {
				t.Fatalf("unexpected user id %s", input.UserID)
			}
			if input.ShippingAddressRef != "addr-42" {
				t.Fatalf("unexpected address ref %q", input.ShippingAddressRef)
			}
			if len(input.Items) != 1 || input.Items[0].VariantID != variantID || input.Items[0].Quantity != 2 {
				t.Fatalf("unexpected items %+v", input.Items)
			}
			called = true
			return &models.Order{ID: orderID, UserID: userID, Status: enums.OrderStatusPending}, nil
		},
	}

	body := `{"shipping_address_ref":"addr-42","items":[{"variant_id":"` + variantID.String() + `","quantity":2}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = authenticate(req, userID, enums.ActorRoleCustomer)

	resp := httptest.NewRecorder()
	CreateOrder(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if !called {
		t.Fatalf("service not invoked")
	}

	var envelope struct {
		Data models.Order `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != orderID {
		t.Fatalf("unexpected order id %s", envelope.Data.ID)
	}
}

func TestCreateOrderRequiresAuth(t *testing.T) {
	body := `{"shipping_address_ref":"addr-42","items":[{"variant_id":"` + uuid.NewString() + `","quantity":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp := httptest.NewRecorder()
	CreateOrder(&stubOrderService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCreateOrderRejectsEmptyItems(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"shipping_address_ref":"addr-42","items":[]}`))
	req.Header.Set("Content-Type", "application/json")
	req = authenticate(req, uuid.New(), enums.ActorRoleCustomer)

	resp := httptest.NewRecorder()
	CreateOrder(&stubOrderService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestGetOrderHiddenFromOtherUsers(t *testing.T) {
	ownerID := uuid.New()
	orderID := uuid.New()
	svc := &stubOrderService{
		get: func(ctx context.Context, incoming uuid.UUID) (*models.Order, error) {
			return &models.Order{ID: orderID, UserID: ownerID}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil)
	req = withRouteParam(req, "orderID", orderID.String())
	req = authenticate(req, uuid.New(), enums.ActorRoleCustomer)

	resp := httptest.NewRecorder()
	GetOrder(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestGetOrderVisibleToAdmin(t *testing.T) {
	ownerID := uuid.New()
	orderID := uuid.New()
	svc := &stubOrderService{
		get: func(ctx context.Context, incoming uuid.UUID) (*models.Order, error) {
			return &models.Order{ID: orderID, UserID: ownerID}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil)
	req = withRouteParam(req, "orderID", orderID.String())
	req = authenticate(req, uuid.New(), enums.ActorRoleAdmin)

	resp := httptest.NewRecorder()
	GetOrder(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestListOrdersScopedToCaller(t *testing.T) {
	userID := uuid.New()
	svc := &stubOrderService{
		listByUser: func(ctx context.Context, incoming uuid.UUID, params pagination.Params) (*internalorders.OrderPage, error) {
			if incoming != userID {
				t.Fatalf("unexpected user id %s", incoming)
			}
			if params.Page != 3 || params.PageSize != 5 {
				t.Fatalf("pagination not parsed: %+v", params)
			}
			return &internalorders.OrderPage{Total: 11, Page: 3, PageSize: 5}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?page=3&page_size=5", nil)
	req = authenticate(req, userID, enums.ActorRoleCustomer)

	resp := httptest.NewRecorder()
	ListOrders(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestCancelOrderPassesReason(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	called := false
	svc := &stubOrderService{
		get: func(ctx context.Context, incoming uuid.UUID) (*models.Order, error) {
			return &models.Order{ID: orderID, UserID: userID, Status: enums.OrderStatusPending}, nil
		},
		cancel: func(ctx context.Context, input internalorders.CancelOrderInput) (*models.Order, error) {
			if input.OrderID != orderID {
				t.Fatalf("unexpected order id %s", input.OrderID)
			}
			if input.Reason == nil || *input.Reason != "changed my mind" {
				t.Fatalf("reason not passed: %v", input.Reason)
			}
			called = true
			return &models.Order{ID: orderID, UserID: userID, Status: enums.OrderStatusCancelled}, nil
		},
	}

	body := `{"reason":"changed my mind"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/cancel", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = withRouteParam(req, "orderID", orderID.String())
	req = authenticate(req, userID, enums.ActorRoleCustomer)

	resp := httptest.NewRecorder()
	CancelOrder(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !called {
		t.Fatalf("service not invoked")
	}
}

func TestCancelOrderWithoutBody(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	svc := &stubOrderService{
		get: func(ctx context.Context, incoming uuid.UUID) (*models.Order, error) {
			return &models.Order{ID: orderID, UserID: userID}, nil
		},
		cancel: func(ctx context.Context, input internalorders.CancelOrderInput) (*models.Order, error) {
			if input.Reason != nil {
				t.Fatalf("expected nil reason, got %q", *input.Reason)
			}
			return &models.Order{ID: orderID, UserID: userID, Status: enums.OrderStatusCancelled}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/cancel", nil)
	req = withRouteParam(req, "orderID", orderID.String())
	req = authenticate(req, userID, enums.ActorRoleCustomer)

	resp := httptest.NewRecorder()
	CancelOrder(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestUpdateOrderStatusSuccess(t *testing.T) {
	orderID := uuid.New()
	called := false
	svc := &stubOrderService{
		updateStatus: func(ctx context.Context, input internalorders.UpdateStatusInput) (*models.Order, error) {
			if input.OrderID != orderID {
				t.Fatalf("unexpected order id %s", input.OrderID)
			}
			if input.NextStatus != enums.OrderStatusShipped {
				t.Fatalf("unexpected status %s", input.NextStatus)
			}
			called = true
			return &models.Order{ID: orderID, Status: enums.OrderStatusShipped}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/orders/"+orderID.String()+"/status", strings.NewReader(`{"status":"shipped"}`))
	req.Header.Set("Content-Type", "application/json")
	req = withRouteParam(req, "orderID", orderID.String())
	req = authenticate(req, uuid.New(), enums.ActorRoleAdmin)

	resp := httptest.NewRecorder()
	UpdateOrderStatus(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !called {
		t.Fatalf("service not invoked")
	}
}

func TestUpdateOrderStatusRejectsUnknown(t *testing.T) {
	orderID := uuid.New()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/orders/"+orderID.String()+"/status", strings.NewReader(`{"status":"teleported"}`))
	req.Header.Set("Content-Type", "application/json")
	req = withRouteParam(req, "orderID", orderID.String())
	req = authenticate(req, uuid.New(), enums.ActorRoleAdmin)

	resp := httptest.NewRecorder()
	UpdateOrderStatus(&stubOrderService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
