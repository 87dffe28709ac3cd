package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bbec/class-ops-api/internal/dto"
	"github.com/bbec/class-ops-api/internal/middleware"
	"github.com/bbec/class-ops-api/internal/models"
	"github.com/bbec/class-ops-api/internal/service"
)

type billingSessionsStub struct {
	confirmed []models.ClassSessionDetail
	marked    []string
}

func (s *billingSessionsStub) ListConfirmed(ctx context.Context, filter models.SessionFilter) ([]models.ClassSessionDetail, error) {
	return s.confirmed, nil
}

func (s *billingSessionsStub) BulkMarkPaid(ctx context.Context, ids []string, at time.Time) (int, error) {
	s.marked = append(s.marked, ids...)
	return len(ids), nil
}

type billingUploadsStub struct {
	tasks []models.UploadTaskDetail
}

func (s *billingUploadsStub) ListUploadedBetween(ctx context.Context, filter models.UploadTaskFilter) ([]models.UploadTaskDetail, error) {
	return s.tasks, nil
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func confirmedDetail(id string) models.ClassSessionDetail {
	at := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	return models.ClassSessionDetail{
		ClassSession: models.ClassSession{
			ID:          id,
			Name:        "Algebra " + id,
			TeacherID:   "t1",
			TeacherName: "Teacher A",
			TeacherTpin: "1001",
			Hours:       decimal.RequireFromString("1.5"),
			HourlyRate:  decimal.NewFromInt(600),
			Status:      models.SessionAdminConfirmed,
			ConfirmedAt: &at,
		},
		CourseName: "Math",
	}
}

func newBillingHandler(sessions *billingSessionsStub, uploads *billingUploadsStub) *BillingHandler {
	billingSvc := service.NewBillingService(sessions, uploads, nil, zap.NewNop(), time.UTC)
	exportSvc := service.NewExportService("BIG BANG EXAM CARE")
	return NewBillingHandler(billingSvc, exportSvc)
}

func TestBillingHandlerDailyBillJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessions := &billingSessionsStub{confirmed: []models.ClassSessionDetail{confirmedDetail("s1"), confirmedDetail("s2")}}
	handler := newBillingHandler(sessions, &billingUploadsStub{})

	c, w := newGinContext(http.MethodPost, "/billing/daily?day=2025-03-05", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.DailyBill(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.ElementsMatch(t, []string{"s1", "s2"}, sessions.marked)

	var envelope struct {
		Data dto.DailyBillResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 2, envelope.Data.Sessions)
	assert.Equal(t, "2025-03-05", envelope.Data.Day)
	assert.True(t, strings.HasPrefix(envelope.Data.InvoiceID, "CLS-20250305-"))
}

func TestBillingHandlerDailyBillCSVDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessions := &billingSessionsStub{confirmed: []models.ClassSessionDetail{confirmedDetail("s1")}}
	handler := newBillingHandler(sessions, &billingUploadsStub{})

	c, w := newGinContext(http.MethodPost, "/billing/daily?day=2025-03-05&format=csv", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.DailyBill(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Body.String(), "Teacher A")
	assert.Contains(t, w.Body.String(), "Grand Total")
}

func TestBillingHandlerDailyBillEmptyDay(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newBillingHandler(&billingSessionsStub{}, &billingUploadsStub{})

	c, w := newGinContext(http.MethodPost, "/billing/daily?day=2025-03-05", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.DailyBill(c)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestBillingHandlerUploadsBill(t *testing.T) {
	gin.SetMode(gin.TestMode)
	uploadedAt := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	uploads := &billingUploadsStub{tasks: []models.UploadTaskDetail{
		{UploadTask: models.UploadTask{ID: "u1", Uploaded: true, UploadedAt: &uploadedAt}, SessionName: "Algebra 1", CourseName: "Math", TeacherName: "Teacher A"},
		{UploadTask: models.UploadTask{ID: "u2", Uploaded: true, UploadedAt: &uploadedAt}, SessionName: "Algebra 2", CourseName: "Math", TeacherName: "Teacher A"},
	}}
	handler := newBillingHandler(&billingSessionsStub{}, uploads)

	payload, _ := json.Marshal(dto.UploadBillRequest{Start: "2025-03-01", End: "2025-03-07", PerVideoRate: "150", Tip: "20"})
	c, w := newGinContext(http.MethodPost, "/billing/uploads", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.UploadsBill(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.UploadBillResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 2, envelope.Data.Videos)
	assert.True(t, envelope.Data.GrandTotal.Equal(decimal.RequireFromString("320")))
}

func TestBillingHandlerForbiddenWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newBillingHandler(&billingSessionsStub{}, &billingUploadsStub{})

	c, w := newGinContext(http.MethodPost, "/billing/daily", nil)

	handler.DailyBill(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
