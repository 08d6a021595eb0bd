package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/guardops/internal/domain/models"
	"github.com/mamadbah2/guardops/internal/repository"
	"github.com/mamadbah2/guardops/internal/repository/memory"
	"github.com/mamadbah2/guardops/internal/server/handlers"
	"github.com/mamadbah2/guardops/internal/service/finance"
	"github.com/mamadbah2/guardops/internal/service/reporting"
	"github.com/mamadbah2/guardops/internal/service/schedule"
	"github.com/mamadbah2/guardops/internal/store"
)

type fakeMessaging struct {
	webhookErr error
	outbound   []models.OutboundMessageRequest
}

func (f *fakeMessaging) VerifyWebhookToken(mode, token, challenge string) (string, error) {
	if mode != "subscribe" || token != "secret" {
		return "", errors.New("invalid verify token")
	}
	return challenge, nil
}

func (f *fakeMessaging) HandleWebhook(context.Context, models.WebhookPayload) error {
	return f.webhookErr
}

func (f *fakeMessaging) SendOutbound(_ context.Context, req models.OutboundMessageRequest) error {
	f.outbound = append(f.outbound, req)
	return nil
}

type testServer struct {
	engine *gin.Engine
	store  *store.Store
	msg    *fakeMessaging
}

func newTestServer(t *testing.T, strict bool) *testServer {
	t.Helper()
	st := store.New(memory.NewRepository(), store.Options{StrictLookups: strict}, nil)
	_, err := st.ApplyLocally(
		store.Upsert(repository.TableClients, models.Client{ID: "c1", Name: "Aurora", ContractValue: decimal.NewFromInt(1000), PaymentDay: 10, IsActive: true}),
	)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	sched := schedule.NewService(st, nil, nil, nil)
	fin := finance.NewService(st, finance.NewProjector(), time.UTC, nil)
	rep := reporting.NewService(fin, sched, reporting.Options{}, nil)
	msg := &fakeMessaging{}

	engine := New(Handlers{
		Webhook:  handlers.NewWebhookHandler(msg, nil),
		Shifts:   handlers.NewShiftHandler(sched, nil),
		Finance:  handlers.NewFinanceHandler(fin, rep, nil),
		Entities: handlers.NewEntityHandler(st, fin, nil),
	}, nil)
	return &testServer{engine: engine, store: st, msg: msg}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, false)
	if rec := srv.do(t, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestCreateShifts(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.do(t, http.MethodPost, "/api/v1/shifts", map[string]any{
		"locationId":   "c1",
		"station":      "Portaria",
		"startTime":    "07:00",
		"endTime":      "19:00",
		"startDate":    "2025-01-01",
		"isRecurring":  true,
		"selectedDays": []int{1},
		"endDate":      "2025-01-31",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	resp := decode[struct {
		Shifts []models.Shift `json:"shifts"`
		Count  int            `json:"count"`
	}](t, rec)
	if resp.Count != 4 || len(srv.store.Shifts()) != 4 {
		t.Errorf("count = %d, stored = %d", resp.Count, len(srv.store.Shifts()))
	}

	list := srv.do(t, http.MethodGet, "/api/v1/shifts?from=2025-01-10&to=2025-01-20&location_id=c1", nil)
	listed := decode[struct {
		Shifts []models.Shift `json:"shifts"`
	}](t, list)
	if len(listed.Shifts) != 2 {
		t.Errorf("listed %d shifts", len(listed.Shifts))
	}
}

func TestCreateShiftValidation(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.do(t, http.MethodPost, "/api/v1/shifts", map[string]any{
		"locationId": "c1", "startTime": "07:00", "endTime": "19:00", "startDate": "2025-01-01",
		"isRecurring": true, "selectedDays": []int{1},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing end date status = %d", rec.Code)
	}

	rec = srv.do(t, http.MethodPost, "/api/v1/shifts", map[string]any{
		"locationId": "c1", "startTime": "07:00", "endTime": "19:00", "startDate": "2025-01-01", "selectedDays": []int{9},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad weekday status = %d", rec.Code)
	}

	if rec := srv.do(t, http.MethodPost, "/api/v1/shifts", "{"); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed json status = %d", rec.Code)
	}
	if len(srv.store.Shifts()) != 0 {
		t.Error("no shift may be stored")
	}
}

func TestEditUnknownShift(t *testing.T) {
	body := map[string]any{"locationId": "c1", "startTime": "07:00", "endTime": "19:00", "startDate": "2025-01-01"}

	if rec := newTestServer(t, false).do(t, http.MethodPut, "/api/v1/shifts/ghost", body); rec.Code != http.StatusNoContent {
		t.Errorf("lenient status = %d", rec.Code)
	}
	if rec := newTestServer(t, true).do(t, http.MethodPut, "/api/v1/shifts/ghost", body); rec.Code != http.StatusNotFound {
		t.Errorf("strict status = %d", rec.Code)
	}
}

func TestRenameStation(t *testing.T) {
	srv := newTestServer(t, true)
	_, _ = srv.store.ApplyLocally(
		store.Upsert(repository.TableShifts, models.Shift{ID: "a", LocationID: "c1", Date: day(2024, 3, 1), Station: "Posto A"}),
		store.Upsert(repository.TableShifts, models.Shift{ID: "b", LocationID: "c1", Date: day(2024, 3, 2), Station: "Posto A"}),
	)

	rec := srv.do(t, http.MethodPatch, "/api/v1/shifts/stations", map[string]string{
		"locationId": "c1", "date": "2024-03-01", "oldStation": "Posto A", "newStation": "Posto B",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	if got := decode[map[string]int](t, rec)["updated"]; got != 1 {
		t.Errorf("updated = %d", got)
	}

	rec = srv.do(t, http.MethodPatch, "/api/v1/shifts/stations", map[string]string{
		"locationId": "c1", "date": "2024-03-01", "oldStation": "Posto Z", "newStation": "Posto B",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("strict miss status = %d", rec.Code)
	}
}

func TestDeleteRecurrenceRoute(t *testing.T) {
	srv := newTestServer(t, false)
	_, _ = srv.store.ApplyLocally(
		store.Upsert(repository.TableShifts, models.Shift{ID: "a", RecurrenceID: "group-1"}),
		store.Upsert(repository.TableShifts, models.Shift{ID: "b", RecurrenceID: "group-1"}),
	)

	rec := srv.do(t, http.MethodDelete, "/api/v1/shifts/recurrence/group-1", nil)
	if rec.Code != http.StatusOK || decode[map[string]int](t, rec)["deleted"] != 2 {
		t.Errorf("status = %d body=%s", rec.Code, rec.Body)
	}
}

func TestSuggestWithoutAI(t *testing.T) {
	srv := newTestServer(t, false)
	rec := srv.do(t, http.MethodPost, "/api/v1/shifts/suggest", map[string]string{"weekStart": "2025-01-06"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestLedgerAndPromote(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.do(t, http.MethodGet, "/api/v1/finance/ledger?start=2024-03-01&end=2024-03-31", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	ledger := decode[finance.Ledger](t, rec)
	if len(ledger.Items) != 1 || !ledger.Items[0].IsProjected {
		t.Fatalf("ledger = %+v", ledger)
	}
	if !ledger.Totals.Income.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("income = %s", ledger.Totals.Income)
	}

	item := ledger.Items[0]
	rec = srv.do(t, http.MethodPost, "/api/v1/finance/promote", item)
	if rec.Code != http.StatusCreated {
		t.Fatalf("promote status = %d body=%s", rec.Code, rec.Body)
	}
	tx := decode[models.Transaction](t, rec)
	if tx.Status != models.StatusPaid || tx.RelatedClientID != "c1" {
		t.Errorf("tx = %+v", tx)
	}

	if rec := srv.do(t, http.MethodPost, "/api/v1/finance/promote", item); rec.Code != http.StatusNoContent {
		t.Errorf("second promote status = %d", rec.Code)
	}

	item.IsProjected = false
	if rec := srv.do(t, http.MethodPost, "/api/v1/finance/promote", item); rec.Code != http.StatusConflict {
		t.Errorf("real row promote status = %d", rec.Code)
	}
}

func TestLedgerQueryValidation(t *testing.T) {
	srv := newTestServer(t, false)
	for _, path := range []string{
		"/api/v1/finance/ledger?type=transfer",
		"/api/v1/finance/ledger?start=03-01-2024",
		"/api/v1/finance/cashflow?start=2024-03-10&end=2024-03-01",
	} {
		if rec := srv.do(t, http.MethodGet, path, nil); rec.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}
}

func TestChartExportPublish(t *testing.T) {
	srv := newTestServer(t, false)

	chart := srv.do(t, http.MethodGet, "/api/v1/finance/chart", nil)
	points := decode[struct {
		Points []models.ChartPoint `json:"points"`
	}](t, chart)
	if len(points.Points) != 7 {
		t.Errorf("chart points = %d", len(points.Points))
	}

	export := srv.do(t, http.MethodGet, "/api/v1/finance/export.xlsx?start=2024-03-01&end=2024-03-31", nil)
	if export.Code != http.StatusOK || export.Body.Len() == 0 {
		t.Errorf("export status = %d", export.Code)
	}
	if cd := export.Header().Get("Content-Disposition"); cd != `attachment; filename="fluxo_20240301_20240331.xlsx"` {
		t.Errorf("content disposition = %q", cd)
	}

	if rec := srv.do(t, http.MethodPost, "/api/v1/finance/publish", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("publish status = %d", rec.Code)
	}
}

func TestEntityCRUD(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodPost, "/api/v1/staff", map[string]any{"name": "Ana Souza", "salary": "1500", "paymentDay": 5})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body)
	}
	created := decode[models.Staff](t, rec)
	if created.ID == "" || !created.Salary.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("created = %+v", created)
	}

	if rec := srv.do(t, http.MethodGet, "/api/v1/staff/"+created.ID, nil); rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}

	rec = srv.do(t, http.MethodPut, "/api/v1/staff/"+created.ID, map[string]any{"name": "Ana S. Lima", "salary": 1600, "paymentDay": 5})
	if rec.Code != http.StatusOK || decode[models.Staff](t, rec).Name != "Ana S. Lima" {
		t.Errorf("update status = %d body=%s", rec.Code, rec.Body)
	}

	if rec := srv.do(t, http.MethodPost, "/api/v1/suppliers", map[string]any{"name": " "}); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("nameless supplier status = %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodPost, "/api/v1/clients", map[string]any{"name": "X", "paymentDay": 40}); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad payment day status = %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodPut, "/api/v1/clients/ghost", map[string]any{"name": "X"}); rec.Code != http.StatusNotFound {
		t.Errorf("strict update of unknown client status = %d", rec.Code)
	}

	if rec := srv.do(t, http.MethodDelete, "/api/v1/staff/"+created.ID, nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodDelete, "/api/v1/staff/"+created.ID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d", rec.Code)
	}

	list := decode[struct {
		Items []models.Client `json:"items"`
	}](t, srv.do(t, http.MethodGet, "/api/v1/clients", nil))
	if len(list.Items) != 1 {
		t.Errorf("clients = %+v", list.Items)
	}
}

func TestTransactionRoutes(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.do(t, http.MethodPost, "/api/v1/transactions", map[string]any{
		"description": "Combustível", "amount": "120.50", "type": "expense", "date": "2024-03-04T00:00:00Z",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	if tx := decode[models.Transaction](t, rec); tx.Status != models.StatusPaid || tx.ID == "" {
		t.Errorf("tx = %+v", tx)
	}

	rec = srv.do(t, http.MethodPost, "/api/v1/transactions", map[string]any{"description": "x", "amount": "-1", "type": "expense", "date": "2024-03-04T00:00:00Z"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("negative amount status = %d", rec.Code)
	}
}

func TestWebhookRoutes(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.do(t, http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=secret&hub.challenge=42", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "42" {
		t.Errorf("verify = %d %q", rec.Code, rec.Body)
	}
	if rec := srv.do(t, http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=nope", nil); rec.Code != http.StatusForbidden {
		t.Errorf("bad verify status = %d", rec.Code)
	}

	srv.msg.webhookErr = errors.New("send failed")
	if rec := srv.do(t, http.MethodPost, "/webhook", map[string]any{"object": "whatsapp_business_account"}); rec.Code != http.StatusOK {
		t.Errorf("webhook must be acknowledged, got %d", rec.Code)
	}

	if rec := srv.do(t, http.MethodPost, "/send-message", map[string]any{"to": "5581", "message": "Turno amanhã 07:00"}); rec.Code != http.StatusAccepted {
		t.Errorf("send status = %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodPost, "/send-message", map[string]any{"to": "5581"}); rec.Code != http.StatusBadRequest {
		t.Errorf("send without message status = %d", rec.Code)
	}
	if len(srv.msg.outbound) != 1 {
		t.Errorf("outbound = %+v", srv.msg.outbound)
	}
}
