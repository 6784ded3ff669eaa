package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-show-reservation/internal/api"
	"github.com/sanosuguru/go-show-reservation/internal/api/handler"
	"github.com/sanosuguru/go-show-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-show-reservation/internal/application"
	"github.com/sanosuguru/go-show-reservation/internal/infrastructure/memory"
	"github.com/sanosuguru/go-show-reservation/internal/pkg/metrics"
	"github.com/sanosuguru/go-show-reservation/internal/seed"
)

// TestServer はE2Eテスト用のサーバー。インメモリストアで本番と同じルーティングを組む
type TestServer struct {
	Echo   *echo.Echo
	Store  *memory.Store
	Ledger *application.LedgerService
}

// NewTestServer はテストごとに独立したサーバーを作成する
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	shows := memory.NewShowRepository(store)
	bookings := memory.NewBookingRepository(store)
	users := memory.NewUserRepository(store)
	theatres := memory.NewTheatreRepository(store)

	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	ledger := application.NewLedgerService(txm, shows, bookings, users,
		application.WithMetrics(m),
		application.WithRetryPolicy(application.RetryPolicy{MaxRetries: 20, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}),
	)
	showService := application.NewShowService(txm, shows, theatres)

	e := echo.New()
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	middleware.SetupMiddleware(e, m)

	handler.RegisterRoutes(e, handler.Handlers{
		Health:  handler.NewHealthHandler(nil),
		Booking: handler.NewBookingHandler(ledger),
		Show:    handler.NewShowHandler(showService, ledger),
		Theatre: handler.NewTheatreHandler(application.NewTheatreService(theatres)),
		User:    handler.NewUserHandler(application.NewUserService(users)),
	})

	return &TestServer{Echo: e, Store: store, Ledger: ledger}
}

// Seed は db.json 形式の初期データを投入する
func (s *TestServer) Seed(t *testing.T, path string) seed.Summary {
	t.Helper()
	summary, err := seed.NewImporter(memory.NewSeedStore(s.Store), nil).ImportFile(context.Background(), path)
	require.NoError(t, err)
	return summary
}

// Request はHTTPリクエストを実行
func (s *TestServer) Request(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

// decode はレスポンスボディを v に読み込む
func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

// requireConsistent は全公演で「空席数＋確定座席数＝定員」が成り立つことを確認する
func (s *TestServer) requireConsistent(t *testing.T) {
	t.Helper()
	items, err := s.Ledger.AuditInventory(context.Background())
	require.NoError(t, err)
	for _, inv := range items {
		require.Truef(t, inv.Consistent(), "公演 %d の在庫がずれている: %+v", inv.ShowID, inv)
	}
}
