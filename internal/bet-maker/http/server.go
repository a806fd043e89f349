package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/betcore/line-platform/internal/bet-maker/admission"
	"github.com/betcore/line-platform/internal/bet-maker/domain"
	"github.com/betcore/line-platform/internal/bet-maker/dto"
)

// Server expõe a API REST do bet-maker por cima do controller de admissão.
type Server struct {
	log  *zap.Logger
	ctrl *admission.Controller
}

func NewServer(log *zap.Logger, ctrl *admission.Controller) *Server {
	return &Server{log: log, ctrl: ctrl}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/events", s.listOpenEvents) // eventos apostáveis na visão do cache
	r.Post("/bet", s.placeBet)
	r.Get("/bets", s.listBets)
	return r
}

func (s *Server) listOpenEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.ListOpenEvents(r.Context()))
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	bet, err := s.ctrl.PlaceBet(r.Context(), req.ID, req.Amount)
	if err != nil {
		switch {
		case domain.IsInvalid(err):
			writeError(w, http.StatusBadRequest, err.Error())
		case domain.IsNotFound(err):
			writeError(w, http.StatusNotFound, err.Error())
		case domain.IsConflict(err):
			writeError(w, http.StatusConflict, err.Error())
		default:
			s.log.Error("place bet failed", zap.Int64("bet_id", req.ID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, dto.BetResponse{
		ID:     bet.ID,
		Amount: bet.Amount.StringFixed(2),
		Status: string(bet.Status),
	})
}

func (s *Server) listBets(w http.ResponseWriter, r *http.Request) {
	bets, err := s.ctrl.ListBets(r.Context())
	if err != nil {
		s.log.Error("list bets failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	out := make([]dto.BetSummary, 0, len(bets))
	for _, b := range bets {
		out = append(out, dto.BetSummary{ID: b.ID, Status: string(b.Status)})
	}
	writeJSON(w, http.StatusOK, out)
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
