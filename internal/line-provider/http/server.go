package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/betcore/line-platform/internal/line-provider/repo"
	"github.com/betcore/line-platform/pkg/contracts/events"
)

// Store é o subconjunto do repositório usado pela API do provedor.
type Store interface {
	Create(ctx context.Context, odds decimal.Decimal, deadline int64) (*repo.Event, error)
	List(ctx context.Context) ([]repo.Event, error)
	Delete(ctx context.Context, eventID int64) error
	UpdateStatus(ctx context.Context, eventID int64, newStatus events.EventStatus) (*repo.Event, error)
}

// Server expõe a API REST do provedor de linha.
// A publicação do delta de status fica a cargo do dispatcher da outbox;
// aqui só se confirma a transição no banco.
type Server struct {
	log   *zap.Logger
	store Store
}

func NewServer(log *zap.Logger, store Store) *Server {
	return &Server{log: log, store: store}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/events", s.listEvents)                     // dump completo da linha
	r.Post("/event", s.createEvent)                    // cria evento OPEN
	r.Delete("/event/{id}", s.deleteEvent)             // remove evento
	r.Patch("/event/{id}/status", s.updateEventStatus) // transição + outbox
	return r
}

type createEventRequest struct {
	Odds     decimal.Decimal `json:"odds"`
	Deadline int64           `json:"deadline"`
}

type eventResponse struct {
	ID       int64  `json:"id"`
	Odds     string `json:"odds"`
	Deadline int64  `json:"deadline"`
	Status   string `json:"status"`
}

func toEventResponse(e *repo.Event) eventResponse {
	return eventResponse{
		ID:       e.ID,
		Odds:     e.Odds.String(),
		Deadline: e.Deadline,
		Status:   string(e.Status),
	}
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	evs, err := s.store.List(r.Context())
	if err != nil {
		s.log.Error("list events failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	out := make([]eventResponse, 0, len(evs))
	for i := range evs {
		out = append(out, toEventResponse(&evs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if !req.Odds.IsPositive() {
		writeError(w, http.StatusBadRequest, "odds must be positive")
		return
	}
	if req.Deadline <= 0 {
		writeError(w, http.StatusBadRequest, "deadline must be a unix timestamp")
		return
	}

	e, err := s.store.Create(r.Context(), req.Odds, req.Deadline)
	if err != nil {
		s.log.Error("create event failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusCreated, toEventResponse(e))
}

func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	if err := s.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		s.log.Error("delete event failed", zap.Int64("event_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "event deleted"})
}

func (s *Server) updateEventStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	newStatus, ok := events.ParseEventStatus(r.URL.Query().Get("new_status"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	e, err := s.store.UpdateStatus(r.Context(), id, newStatus)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrEventNotFound):
			writeError(w, http.StatusNotFound, "event not found")
		case errors.Is(err, repo.ErrEventFinished):
			writeError(w, http.StatusConflict, "event already finished")
		default:
			s.log.Error("status update failed", zap.Int64("event_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "storage unavailable")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"event_id":   e.ID,
		"new_status": string(e.Status),
	})
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
