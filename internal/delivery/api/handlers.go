package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
	"github.com/aliskhannn/chorequest-bot/internal/service"
)

const maxBodyBytes = 64 << 10

// UserIDHeader identifies the acting user. Authentication happens upstream.
const UserIDHeader = "X-User-ID"

type apiResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{Error: &apiError{Code: code, Message: message}}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to encode error response", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(r.Context()); err != nil {
			s.respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type transitionResponse struct {
	Status       service.Status    `json:"status"`
	XPAwarded    int               `json:"xp_awarded,omitempty"`
	LevelsGained int               `json:"levels_gained,omitempty"`
	Progress     *progressResponse `json:"progress,omitempty"`
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	// Upstream snapshots carry more fields than a transition needs.
	var t entities.ChoreTransition
	if err := decodeBody(w, r, &t, false); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	out, err := s.deps.Transitions.HandleTransition(r.Context(), t)
	if err != nil {
		if errors.Is(err, service.ErrConflictExhausted) {
			w.Header().Set("Retry-After", "1")
			s.respondError(w, http.StatusServiceUnavailable, "conflict", "update contended, retry later")
			return
		}
		s.logger.Error("failed to handle transition", zap.String("chore_id", t.ChoreID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal_error", "failed to process transition")
		return
	}

	resp := transitionResponse{
		Status:       out.Status,
		XPAwarded:    out.XPAwarded,
		LevelsGained: out.LevelsGained,
	}
	if out.Progress != nil {
		resp.Progress = toProgressResponse(out.Progress)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type progressResponse struct {
	UserID            string     `json:"user_id"`
	XP                int        `json:"xp"`
	Level             int        `json:"level"`
	XPToNextLevel     int        `json:"xp_to_next_level"`
	TotalCompleted    int        `json:"total_completed"`
	CurrentStreak     int        `json:"current_streak"`
	LongestStreak     int        `json:"longest_streak"`
	LastCompletionDay string     `json:"last_completion_day,omitempty"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

func toProgressResponse(p *entities.UserProgress) *progressResponse {
	resp := &progressResponse{
		UserID:         p.UserID,
		XP:             p.XP,
		Level:          p.Level,
		XPToNextLevel:  p.XPToNextLevel(),
		TotalCompleted: p.TotalCompleted,
		CurrentStreak:  p.CurrentStreak,
		LongestStreak:  p.LongestStreak,
	}
	if p.LastCompletionDay != nil {
		resp.LastCompletionDay = p.LastCompletionDay.Format(time.DateOnly)
	}
	if !p.UpdatedAt.IsZero() {
		at := p.UpdatedAt
		resp.UpdatedAt = &at
	}
	return resp
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	p, err := s.deps.Progress.GetProgress(r.Context(), userID)
	if err != nil {
		s.logger.Error("failed to get progress", zap.String("user_id", userID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal_error", "failed to get progress")
		return
	}

	s.respondJSON(w, http.StatusOK, toProgressResponse(p))
}

type achievementResponse struct {
	Code        string     `json:"code"`
	Difficulty  string     `json:"difficulty,omitempty"`
	Progress    int        `json:"progress"`
	Target      int        `json:"target"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (s *Server) handleListAchievements(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	list, err := s.deps.Achievements.List(r.Context(), userID)
	if err != nil {
		s.logger.Error("failed to list achievements", zap.String("user_id", userID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal_error", "failed to list achievements")
		return
	}

	resp := make([]achievementResponse, 0, len(list))
	for _, a := range list {
		resp = append(resp, achievementResponse{
			Code:        a.Code,
			Difficulty:  string(a.Difficulty),
			Progress:    a.Progress,
			Target:      a.Target,
			Completed:   a.Completed,
			CompletedAt: a.CompletedAt,
		})
	}

	s.respondJSON(w, http.StatusOK, resp)
}

type praiseResponse struct {
	Delivered bool   `json:"delivered"`
	Reason    string `json:"reason,omitempty"`
}

func (s *Server) handlePraise(w http.ResponseWriter, r *http.Request) {
	senderID := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if senderID == "" {
		s.respondError(w, http.StatusUnauthorized, "unauthorized", "missing "+UserIDHeader+" header")
		return
	}

	var req entities.PraiseRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	req.SenderID = senderID

	res, err := s.deps.Praise.Send(r.Context(), req)
	switch {
	case errors.Is(err, entities.ErrPraiseTargetRequired),
		errors.Is(err, entities.ErrPraiseMessageEmpty),
		errors.Is(err, entities.ErrPraiseMessageTooLong):
		s.respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	case errors.Is(err, service.ErrSenderNotFound), errors.Is(err, service.ErrRecipientNotFound):
		s.respondError(w, http.StatusNotFound, "not_found", err.Error())
		return
	case errors.Is(err, service.ErrNotSameHousehold):
		s.respondError(w, http.StatusForbidden, "forbidden", err.Error())
		return
	case err != nil:
		s.logger.Error("failed to send praise", zap.String("sender_id", senderID), zap.Error(err))
		s.respondError(w, http.StatusBadGateway, "delivery_failed", "failed to deliver praise")
		return
	}

	s.respondJSON(w, http.StatusOK, praiseResponse{Delivered: res.Delivered, Reason: res.Reason})
}

// decodeBody reads a JSON body. strict rejects fields v does not declare.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, strict bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}
