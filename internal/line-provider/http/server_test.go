package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	httpapi "github.com/betcore/line-platform/internal/line-provider/http"
	"github.com/betcore/line-platform/internal/line-provider/repo"
	"github.com/betcore/line-platform/pkg/contracts/events"
)

// memStore implementa httpapi.Store em memória com a mesma semântica de
// transição do repositório: terminal não volta.
type memStore struct {
	nextID int64
	events map[int64]*repo.Event
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, events: make(map[int64]*repo.Event)}
}

func (m *memStore) Create(ctx context.Context, odds decimal.Decimal, deadline int64) (*repo.Event, error) {
	e := &repo.Event{ID: m.nextID, Odds: odds, Deadline: deadline, Status: events.EventOpen}
	m.events[e.ID] = e
	m.nextID++
	return e, nil
}

func (m *memStore) List(ctx context.Context) ([]repo.Event, error) {
	out := make([]repo.Event, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, *e)
	}
	return out, nil
}

func (m *memStore) Delete(ctx context.Context, eventID int64) error {
	if _, ok := m.events[eventID]; !ok {
		return repo.ErrEventNotFound
	}
	delete(m.events, eventID)
	return nil
}

func (m *memStore) UpdateStatus(ctx context.Context, eventID int64, newStatus events.EventStatus) (*repo.Event, error) {
	e, ok := m.events[eventID]
	if !ok {
		return nil, repo.ErrEventNotFound
	}
	if e.Status.Terminal() {
		return nil, repo.ErrEventFinished
	}
	e.Status = newStatus
	return e, nil
}

func newAPI(store *memStore) http.Handler {
	return httpapi.NewServer(zap.NewNop(), store).Router()
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateEvent(t *testing.T) {
	api := newAPI(newMemStore())

	rec := doRequest(t, api, http.MethodPost, "/event", `{"odds":"1.85","deadline":1700003600}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /event = %d, body %s", rec.Code, rec.Body.String())
	}

	var created struct {
		ID       int64  `json:"id"`
		Odds     string `json:"odds"`
		Deadline int64  `json:"deadline"`
		Status   string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID != 1 || created.Odds != "1.85" || created.Deadline != 1700003600 || created.Status != "OPEN" {
		t.Errorf("created = %+v", created)
	}
}

func TestCreateEvent_Validation(t *testing.T) {
	api := newAPI(newMemStore())

	cases := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"zero odds", `{"odds":"0","deadline":1700003600}`},
		{"negative odds", `{"odds":"-1.5","deadline":1700003600}`},
		{"missing deadline", `{"odds":"1.5"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, api, http.MethodPost, "/event", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("POST /event (%s) = %d, want 400", tc.body, rec.Code)
			}
		})
	}
}

func TestListEvents(t *testing.T) {
	store := newMemStore()
	_, _ = store.Create(context.Background(), decimal.RequireFromString("2.10"), 1700003600)
	api := newAPI(store)

	rec := doRequest(t, api, http.MethodGet, "/events", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /events = %d", rec.Code)
	}
	var evs []struct {
		ID   int64  `json:"id"`
		Odds string `json:"odds"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &evs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(evs) != 1 || evs[0].ID != 1 || evs[0].Odds != "2.1" {
		t.Errorf("GET /events = %v", evs)
	}
}

func TestDeleteEvent(t *testing.T) {
	store := newMemStore()
	_, _ = store.Create(context.Background(), decimal.RequireFromString("1.5"), 1700003600)
	api := newAPI(store)

	rec := doRequest(t, api, http.MethodDelete, "/event/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE /event/1 = %d", rec.Code)
	}

	rec = doRequest(t, api, http.MethodDelete, "/event/1", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("DELETE /event/1 again = %d, want 404", rec.Code)
	}

	rec = doRequest(t, api, http.MethodDelete, "/event/abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("DELETE /event/abc = %d, want 400", rec.Code)
	}
}

func TestUpdateEventStatus(t *testing.T) {
	store := newMemStore()
	_, _ = store.Create(context.Background(), decimal.RequireFromString("1.5"), 1700003600)
	api := newAPI(store)

	path := "/event/1/status?new_status=" + url.QueryEscape("team A won")
	rec := doRequest(t, api, http.MethodPatch, path, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("PATCH status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		EventID   int64  `json:"event_id"`
		NewStatus string `json:"new_status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.EventID != 1 || resp.NewStatus != "team A won" {
		t.Errorf("resp = %+v", resp)
	}

	// evento finalizado não transiciona de novo
	path = "/event/1/status?new_status=" + url.QueryEscape("team B won")
	rec = doRequest(t, api, http.MethodPatch, path, "")
	if rec.Code != http.StatusConflict {
		t.Errorf("PATCH finished event = %d, want 409", rec.Code)
	}
}

func TestUpdateEventStatus_Rejections(t *testing.T) {
	store := newMemStore()
	_, _ = store.Create(context.Background(), decimal.RequireFromString("1.5"), 1700003600)
	api := newAPI(store)

	rec := doRequest(t, api, http.MethodPatch, "/event/1/status?new_status=whatever", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown status = %d, want 400", rec.Code)
	}

	path := "/event/99/status?new_status=" + url.QueryEscape("team A won")
	rec = doRequest(t, api, http.MethodPatch, path, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing event = %d, want 404", rec.Code)
	}
}
