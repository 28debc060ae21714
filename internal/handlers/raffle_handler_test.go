package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/raffleworks/rafflet/config"
	"github.com/raffleworks/rafflet/internal/allocation"
	"github.com/raffleworks/rafflet/internal/ledger"
	"github.com/raffleworks/rafflet/internal/middleware"
	"github.com/raffleworks/rafflet/internal/models"
	"github.com/raffleworks/rafflet/internal/payments"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubProvider struct {
	sessions    map[string]*payments.Session
	created     []payments.CreateSessionParams
	createErr   error
	retrieveErr error
}

func newStubProvider() *stubProvider {
	return &stubProvider{sessions: make(map[string]*payments.Session)}
}

func (s *stubProvider) CreateSession(ctx context.Context, params payments.CreateSessionParams) (*payments.Session, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = append(s.created, params)
	return &payments.Session{
		ID:  params.ReferenceID,
		URL: "https://checkout.example.test/" + params.ReferenceID,
	}, nil
}

func (s *stubProvider) RetrieveSession(ctx context.Context, id string) (*payments.Session, error) {
	if s.retrieveErr != nil {
		return nil, s.retrieveErr
	}
	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("checkout session %s not found", id)
	}
	return session, nil
}

func testConfig() *config.RaffleConfig {
	return &config.RaffleConfig{
		Domain:          "http://raffle.example.test",
		PrizeName:       "Gaming PC",
		UnitPrice:       500,
		FallbackOwnerID: "anonymous-entrant",
		SigningSecret:   "test-secret",
	}
}

func newTestRouter(t *testing.T, provider payments.Provider) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Ticket{}, &models.Fulfillment{}))

	allocator := allocation.NewService(ledger.NewStore(db))

	r := gin.New()
	r.LoadHTMLGlob("../../web/templates/*.html")
	r.Use(middleware.PaymentsMiddleware(provider))
	r.Use(middleware.DatabaseMiddleware(db))
	r.Use(middleware.RaffleMiddleware(testConfig(), allocator))

	r.GET("/", Home)
	r.GET("/buy-tickets-form", BuyTicketsForm)
	r.POST("/create-checkout-session", CreateCheckoutSession)
	r.GET("/success", Success)
	r.GET("/cancel", Cancel)
	r.GET("/tickets/:number/qr", TicketQR)

	return r, db
}

func countTickets(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.Ticket{}).Count(&count).Error)
	return count
}

func getPath(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func postForm(r *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)
	return w
}

func TestHomeRendersPrize(t *testing.T) {
	r, _ := newTestRouter(t, newStubProvider())

	w := getPath(r, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Gaming PC")
}

func TestBuyTicketsFormFragment(t *testing.T) {
	r, _ := newTestRouter(t, newStubProvider())

	w := getPath(r, "/buy-tickets-form")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="numTickets"`)
}

func TestCreateCheckoutSessionRedirects(t *testing.T) {
	provider := newStubProvider()
	r, _ := newTestRouter(t, provider)

	w := postForm(r, "/create-checkout-session", url.Values{"numTickets": {"2"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "https://checkout.example.test/")

	require.Len(t, provider.created, 1)
	params := provider.created[0]
	assert.Equal(t, 2, params.Quantity)
	assert.Equal(t, int64(500), params.UnitPrice)
	assert.Contains(t, params.SuccessURL, "/success?session_id="+params.ReferenceID)
	assert.Equal(t, "http://raffle.example.test/cancel", params.CancelURL)
}

func TestCreateCheckoutSessionRejectsBadQuantity(t *testing.T) {
	provider := newStubProvider()
	r, _ := newTestRouter(t, provider)

	for _, value := range []string{"", "0", "-2", "abc", "1.5"} {
		w := postForm(r, "/create-checkout-session", url.Values{"numTickets": {value}})
		assert.Equal(t, http.StatusBadRequest, w.Code, "numTickets=%q", value)
	}
	assert.Empty(t, provider.created, "invalid input must not reach the processor")
}

func TestCreateCheckoutSessionProcessorFailure(t *testing.T) {
	provider := newStubProvider()
	provider.createErr = errors.New("gateway down")
	r, _ := newTestRouter(t, provider)

	w := postForm(r, "/create-checkout-session", url.Values{"numTickets": {"1"}})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSuccessMissingSessionID(t *testing.T) {
	r, db := newTestRouter(t, newStubProvider())

	w := getPath(r, "/success")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, countTickets(t, db))
}

func TestSuccessProcessorFailure(t *testing.T) {
	provider := newStubProvider()
	provider.retrieveErr = errors.New("gateway down")
	r, db := newTestRouter(t, provider)

	w := getPath(r, "/success?session_id=raffle-1")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Zero(t, countTickets(t, db))
}

func TestSuccessUnpaidRedirectsToCancel(t *testing.T) {
	provider := newStubProvider()
	provider.sessions["raffle-1"] = &payments.Session{ID: "raffle-1", Paid: false, AmountTotal: 1500}
	r, db := newTestRouter(t, provider)

	w := getPath(r, "/success?session_id=raffle-1")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/cancel", w.Header().Get("Location"))
	assert.Zero(t, countTickets(t, db))
}

func TestSuccessAllocatesDerivedQuantity(t *testing.T) {
	provider := newStubProvider()
	provider.sessions["raffle-1"] = &payments.Session{
		ID:          "raffle-1",
		Paid:        true,
		AmountTotal: 1500,
		PayerEmail:  "alice@example.com",
	}
	r, db := newTestRouter(t, provider)

	w := getPath(r, "/success?session_id=raffle-1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "1 through 3")

	var tickets []models.Ticket
	require.NoError(t, db.Order("number").Find(&tickets).Error)
	require.Len(t, tickets, 3)
	for i, ticket := range tickets {
		assert.Equal(t, int64(i+1), ticket.Number)
		assert.Equal(t, "alice@example.com", ticket.OwnerID)
	}
}

func TestSuccessFallbackOwnerIdentity(t *testing.T) {
	provider := newStubProvider()
	provider.sessions["raffle-1"] = &payments.Session{ID: "raffle-1", Paid: true, AmountTotal: 500}
	r, db := newTestRouter(t, provider)

	w := getPath(r, "/success?session_id=raffle-1")
	assert.Equal(t, http.StatusOK, w.Code)

	var ticket models.Ticket
	require.NoError(t, db.First(&ticket).Error)
	assert.Equal(t, "anonymous-entrant", ticket.OwnerID)
}

func TestSuccessRejectsNonIntegralAmount(t *testing.T) {
	provider := newStubProvider()
	provider.sessions["raffle-1"] = &payments.Session{ID: "raffle-1", Paid: true, AmountTotal: 1501}
	r, db := newTestRouter(t, provider)

	w := getPath(r, "/success?session_id=raffle-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, countTickets(t, db), "tampered amounts must not round into tickets")
}

func TestSuccessRejectsZeroAmount(t *testing.T) {
	provider := newStubProvider()
	provider.sessions["raffle-1"] = &payments.Session{ID: "raffle-1", Paid: true, AmountTotal: 0}
	r, db := newTestRouter(t, provider)

	w := getPath(r, "/success?session_id=raffle-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, countTickets(t, db))
}

// Refreshing the success URL must not issue a second batch: the replay
// renders the block issued the first time and allocates nothing new.
func TestSuccessReplayDoesNotReissue(t *testing.T) {
	provider := newStubProvider()
	provider.sessions["raffle-1"] = &payments.Session{
		ID:          "raffle-1",
		Paid:        true,
		AmountTotal: 1000,
		PayerEmail:  "alice@example.com",
	}
	r, db := newTestRouter(t, provider)

	first := getPath(r, "/success?session_id=raffle-1")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, int64(2), countTickets(t, db))

	second := getPath(r, "/success?session_id=raffle-1")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, int64(2), countTickets(t, db), "replay must not issue more tickets")
	assert.Contains(t, second.Body.String(), "1 through 2")
}

func TestCancelPage(t *testing.T) {
	r, _ := newTestRouter(t, newStubProvider())

	w := getPath(r, "/cancel")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No tickets were purchased")
}

func TestTicketQR(t *testing.T) {
	provider := newStubProvider()
	provider.sessions["raffle-1"] = &payments.Session{ID: "raffle-1", Paid: true, AmountTotal: 500}
	r, _ := newTestRouter(t, provider)

	require.Equal(t, http.StatusOK, getPath(r, "/success?session_id=raffle-1").Code)

	w := getPath(r, "/tickets/1/qr")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestTicketQRUnknownNumber(t *testing.T) {
	r, _ := newTestRouter(t, newStubProvider())

	assert.Equal(t, http.StatusNotFound, getPath(r, "/tickets/99/qr").Code)
	assert.Equal(t, http.StatusBadRequest, getPath(r, "/tickets/abc/qr").Code)
	assert.Equal(t, http.StatusBadRequest, getPath(r, "/tickets/-1/qr").Code)
}
