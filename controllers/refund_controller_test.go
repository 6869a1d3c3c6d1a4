package controllers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/peandrade/ticketflow-sub001/apperrors"
	"github.com/peandrade/ticketflow-sub001/controllers"
	"github.com/peandrade/ticketflow-sub001/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type mockRefundService struct {
	err     error
	calls   int
	email   string
	orderID uuid.UUID
}

func (m *mockRefundService) RequestRefund(ctx context.Context, userEmail string, orderID uuid.UUID) error {
	m.calls++
	m.email = userEmail
	m.orderID = orderID
	return m.err
}

func setupRefundRouter(svc *mockRefundService, email string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if email != "" {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.UserEmailKey, email)
		})
	}
	rc := &controllers.RefundController{Refunds: svc, Logger: zap.NewNop()}
	r.POST("/orders/refund", rc.RequestRefund)
	return r
}

func postRefund(r *gin.Engine, orderID string) *httptest.ResponseRecorder {
	form := url.Values{"order_id": {orderID}}
	req := httptest.NewRequest(http.MethodPost, "/orders/refund", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestRefund_OK(t *testing.T) {
	svc := &mockRefundService{}
	r := setupRefundRouter(svc, "ana@example.com")
	orderID := uuid.New()

	w := postRefund(r, orderID.String())
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, true, resp["ok"])

	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, "ana@example.com", svc.email)
	assert.Equal(t, orderID, svc.orderID)
}

func TestRequestRefund_BusinessFailureStillAnswers200(t *testing.T) {
	svc := &mockRefundService{err: apperrors.New(422, "Pedido não está pago.", nil)}
	r := setupRefundRouter(svc, "ana@example.com")

	w := postRefund(r, uuid.NewString())
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "Pedido não está pago.", resp["error"])
}

func TestRequestRefund_SupportEscalationMessage(t *testing.T) {
	svc := &mockRefundService{err: apperrors.ErrRefundNeedsSupport}
	r := setupRefundRouter(svc, "ana@example.com")

	w := postRefund(r, uuid.NewString())
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, apperrors.ErrRefundNeedsSupport.Message, resp["error"])
}

func TestRequestRefund_InvalidOrderID(t *testing.T) {
	svc := &mockRefundService{}
	r := setupRefundRouter(svc, "ana@example.com")

	w := postRefund(r, "not-a-uuid")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, apperrors.ErrOrderNotFound.Message, resp["error"])
	assert.Zero(t, svc.calls)
}

func TestRequestRefund_Unauthenticated(t *testing.T) {
	svc := &mockRefundService{}
	r := setupRefundRouter(svc, "")

	w := postRefund(r, uuid.NewString())
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, apperrors.ErrUnauthenticated.Message, resp["error"])
	assert.Zero(t, svc.calls)
}
