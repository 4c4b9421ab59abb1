package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/roach88/offpos/internal/ledger"
	"github.com/roach88/offpos/internal/model"
	"github.com/roach88/offpos/internal/notify"
	"github.com/roach88/offpos/internal/report"
	"github.com/roach88/offpos/internal/store"
	"github.com/roach88/offpos/internal/testutil"
)

const base = "/api/v1/restaurants/rest-1"

type fixture struct {
	store     *store.Store
	remote    *testutil.FakeRemote
	deliverer *testutil.RecordingDeliverer
	handler   http.Handler
}

func newFixture(t *testing.T, ledgerOpts ...ledger.Option) *fixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	logger := zaptest.NewLogger(t)
	f := &fixture{
		store:     s,
		remote:    testutil.NewFakeRemote(),
		deliverer: &testutil.RecordingDeliverer{},
	}
	engine := notify.New(s, f.remote, f.deliverer, logger)
	l := ledger.New(s, logger, ledgerOpts...)
	g := report.NewGenerator(s, time.UTC, report.GSTSettings{GSTIN: "29AAACR1234A1Z5"}, logger)

	srv := NewServer(engine, l, g, logger)
	srv.EnableMetrics()
	f.handler = srv.Handler()

	require.NoError(t, s.UpsertCustomer(context.Background(), model.Customer{
		ID: "c1", RestaurantID: "rest-1", Name: "Asha", Mobile: "9800000000",
		CreatedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}))
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decode(t, w, &resp)
	return resp.Error.Code
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, base+"/customers/c1/credit", `{"amount":"10"}`)

	w := f.do(t, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "offpos_ledger_operations_total")
}

func TestSyncAndList(t *testing.T) {
	f := newFixture(t)
	f.remote.Set("rest-1",
		model.RemoteNotification{ID: "n1", Title: "Menu updated", Type: model.NotificationInfo},
		model.RemoteNotification{ID: "n2", Title: "Payout", Type: model.NotificationSuccess, IsRead: true},
	)

	w := f.do(t, http.MethodPost, base+"/notifications/sync", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var synced syncResponse
	decode(t, w, &synced)
	assert.Len(t, synced.Notifications, 2)
	assert.Equal(t, 1, synced.Unread)
	assert.Equal(t, 1, synced.Delivered)
	assert.Empty(t, synced.RemoteError)

	w = f.do(t, http.MethodGet, base+"/notifications?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var listed notificationsResponse
	decode(t, w, &listed)
	assert.Len(t, listed.Notifications, 1)
	assert.Equal(t, 1, listed.Unread)
}

func TestSync_RemoteDownStillServesLocal(t *testing.T) {
	f := newFixture(t)
	f.remote.SetFetchErr(errors.New("connection refused"))

	w := f.do(t, http.MethodPost, base+"/notifications/sync", "")
	require.Equal(t, http.StatusOK, w.Code)

	var synced syncResponse
	decode(t, w, &synced)
	assert.Empty(t, synced.Notifications)
	assert.Contains(t, synced.RemoteError, string(model.CodeRemoteUnavailable))
}

func TestListNotifications_BadLimit(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, base+"/notifications?limit=many", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_RECORD", errorCode(t, w))
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t)
	f.remote.Set("rest-1", model.RemoteNotification{ID: "n1", Type: model.NotificationInfo})
	f.do(t, http.MethodPost, base+"/notifications/sync", "")

	w := f.do(t, http.MethodPost, base+"/notifications/n1/read", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"changed":true}`, w.Body.String())

	w = f.do(t, http.MethodPost, base+"/notifications/n1/read", "")
	assert.JSONEq(t, `{"changed":false}`, w.Body.String())
	assert.Equal(t, []string{"n1"}, f.remote.Pushed())

	w = f.do(t, http.MethodPost, base+"/notifications/missing/read", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarkAllRead(t *testing.T) {
	f := newFixture(t)
	f.remote.Set("rest-1",
		model.RemoteNotification{ID: "n1", Type: model.NotificationInfo},
		model.RemoteNotification{ID: "n2", Type: model.NotificationWarning},
	)
	f.do(t, http.MethodPost, base+"/notifications/sync", "")

	w := f.do(t, http.MethodPost, base+"/notifications/read-all", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string][]string
	decode(t, w, &resp)
	assert.ElementsMatch(t, []string{"n1", "n2"}, resp["marked"])

	w = f.do(t, http.MethodPost, base+"/notifications/read-all", "")
	assert.JSONEq(t, `{"marked":[]}`, w.Body.String())
}

func TestCreditFlow(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, base+"/customers/c1/credit", `{"amount":"500","description":"dinner"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, base+"/customers/c1/payments", `{"amount":200}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var tx model.CreditTransaction
	decode(t, w, &tx)
	assert.Equal(t, model.TxPayment, tx.Type)
	assert.Equal(t, "300", tx.BalanceAfter.String())

	w = f.do(t, http.MethodPost, base+"/customers/c1/payments", `{"amount":"400"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "EXCEEDS_BALANCE", errorCode(t, w))

	w = f.do(t, http.MethodGet, base+"/customers/c1/transactions", "")
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Transactions []model.CreditTransaction `json:"transactions"`
	}
	decode(t, w, &history)
	assert.Len(t, history.Transactions, 2)
}

func TestCredit_Errors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"zero amount", base + "/customers/c1/credit", `{"amount":"0"}`, http.StatusBadRequest, "INVALID_AMOUNT"},
		{"negative amount", base + "/customers/c1/payments", `{"amount":"-5"}`, http.StatusBadRequest, "INVALID_AMOUNT"},
		{"malformed body", base + "/customers/c1/credit", `{"amount":`, http.StatusBadRequest, "INVALID_RECORD"},
		{"unknown customer", base + "/customers/ghost/credit", `{"amount":"5"}`, http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
}

func TestDeleteCustomer_Blocked(t *testing.T) {
	f := newFixture(t, ledger.WithDeletePolicy(ledger.DeleteBlock))
	f.do(t, http.MethodPost, base+"/customers/c1/credit", `{"amount":"50"}`)

	w := f.do(t, http.MethodDelete, base+"/customers/c1", "")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "OUTSTANDING_BALANCE", errorCode(t, w))
}

func TestDeleteCustomer_Warn(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, base+"/customers/c1/credit", `{"amount":"50"}`)

	w := f.do(t, http.MethodDelete, base+"/customers/c1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var res ledger.DeleteResult
	decode(t, w, &res)
	assert.True(t, res.Warning)
	assert.Equal(t, "50", res.OutstandingBalance.String())

	w = f.do(t, http.MethodDelete, base+"/customers/c1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReport(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.UpsertOrder(context.Background(), model.Order{
		ID: "o1", RestaurantID: "rest-1", Status: model.OrderServed,
		TotalAmount: dec("236"), TaxAmount: dec("36"),
		CreatedAt: time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
		Items:     []model.OrderItem{{Name: "Thali", Quantity: 2, TotalPrice: dec("200")}},
	}))

	w := f.do(t, http.MethodGet, base+"/reports/gstr1?from=2024-03-01&to=2024-03-31&format=csv", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "GSTR1_2024-03-01_to_2024-03-31.csv")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\ufeffGSTR-1 Return\n")))
	assert.Contains(t, w.Body.String(), "OE,,18.00,200.00,18.00,18.00,0.00")

	w = f.do(t, http.MethodGet, base+"/reports/sales?from=2024-03-01&to=2024-03-31", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var sales struct {
		Summary struct {
			TotalOrders int `json:"total_orders"`
		} `json:"summary"`
	}
	decode(t, w, &sales)
	assert.Equal(t, 1, sales.Summary.TotalOrders)
}

func TestReport_Errors(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, base+"/reports/gstr9?from=2024-03-01&to=2024-03-31", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, base+"/reports/sales?from=2024-03-01", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, base+"/reports/sales?from=2024-03-01&to=2024-03-31&format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{model.NewError(model.CodeNotFound, "op", "x"), http.StatusNotFound},
		{model.NewError(model.CodeInvalidAmount, "op", "x"), http.StatusBadRequest},
		{model.NewError(model.CodeInvalidRecord, "op", "x"), http.StatusBadRequest},
		{model.NewError(model.CodeExceedsBalance, "op", "x"), http.StatusConflict},
		{model.NewError(model.CodeOutstandingBalance, "op", "x"), http.StatusConflict},
		{model.NewError(model.CodeSessionEnded, "op", "x"), http.StatusConflict},
		{model.NewError(model.CodeNotAuthenticated, "op", "x"), http.StatusUnauthorized},
		{model.NewError(model.CodeIOFailure, "op", "x"), http.StatusInternalServerError},
		{model.NewError(model.CodeRemoteUnavailable, "op", "x"), http.StatusServiceUnavailable},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "%v", tt.err)
	}
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.remote.Set("rest-1", model.RemoteNotification{ID: "n1", Title: "Menu updated", Type: model.NotificationInfo})
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, base+"/notifications/sync", "").Code)

	w := f.do(t, http.MethodPost, base+"/logout", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"cleared":"rest-1"}`, w.Body.String())

	list, err := f.store.ListNotifications(ctx, "rest-1", store.NotificationFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	customers, err := f.store.ListCustomers(ctx, "rest-1")
	require.NoError(t, err)
	assert.Empty(t, customers)

	gen, err := f.store.SessionGeneration(ctx, "rest-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
}

func TestWriteJSON_LogsEncodeFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	srv := NewServer(nil, nil, nil, zap.New(core))

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.writeJSON(w, r, http.StatusOK, map[string]any{"bad": make(chan int)})

	assert.Equal(t, http.StatusOK, w.Code)
	entries := logs.FilterMessage("write response failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "/health", entries[0].ContextMap()["path"])
}
