package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"factzap-service/internal/app"
	"factzap-service/internal/domain"
)

// CategoryStatsProvider reports the remote question inventory per category.
type CategoryStatsProvider interface {
	CategoryCounts(ctx context.Context) (map[string]domain.CategoryCount, error)
}

// APIHandler exposes the profile, leaderboard, and facts surface over plain
// HTTP. Quiz play itself happens on the websocket endpoint.
type APIHandler struct {
	quiz         *app.QuizService
	leaderboards *app.LeaderboardService
	achievements *app.AchievementEvaluator
	facts        *app.FactService
	categories   CategoryStatsProvider
}

func NewAPIHandler(quiz *app.QuizService, leaderboards *app.LeaderboardService, achievements *app.AchievementEvaluator, facts *app.FactService, categories CategoryStatsProvider) *APIHandler {
	return &APIHandler{
		quiz:         quiz,
		leaderboards: leaderboards,
		achievements: achievements,
		facts:        facts,
		categories:   categories,
	}
}

func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/register", h.handleRegister)
	mux.HandleFunc("/profile", h.handleProfile)
	mux.HandleFunc("/profile/settings", h.handleSettings)
	mux.HandleFunc("/leaderboard", h.handleLeaderboard)
	mux.HandleFunc("/rank", h.handleRank)
	mux.HandleFunc("/fact", h.handleFact)
	mux.HandleFunc("/facts/save", h.handleSaveFact)
	mux.HandleFunc("/categories/stats", h.handleCategoryStats)
}

type registerRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

func (h *APIHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.Name == "" {
		http.Error(w, "userId and name are required", http.StatusBadRequest)
		return
	}

	profile, err := h.quiz.Register(r.Context(), req.UserID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *APIHandler) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	profile, err := h.quiz.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type settingsRequest struct {
	UserID      string              `json:"userId"`
	Name        *string             `json:"name,omitempty"`
	Avatar      *string             `json:"avatar,omitempty"`
	Preferences *domain.Preferences `json:"preferences,omitempty"`
}

// handleSettings merges user-editable fields into the profile: display name,
// avatar, and quiz preferences. Omitted fields keep their stored values.
func (h *APIHandler) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	profile, err := h.quiz.UpdateSettings(r.Context(), req.UserID, app.ProfileSettings{
		Name:        req.Name,
		Avatar:      req.Avatar,
		Preferences: req.Preferences,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *APIHandler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	board, err := h.leaderboards.Leaderboard(r.Context(), scoreField(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

type rankResponse struct {
	UserID string            `json:"userId"`
	Field  domain.ScoreField `json:"field"`
	Rank   int               `json:"rank"`
}

func (h *APIHandler) handleRank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}
	field := scoreField(r)

	rank, err := h.leaderboards.Rank(r.Context(), userID, field)
	if err != nil {
		writeError(w, err)
		return
	}

	// A top-3 rank on any board unlocks Leaderboard Elite. The rank lookup
	// still succeeds if the unlock write fails.
	if _, err := h.achievements.CheckLeaderboardPosition(r.Context(), userID, rank); err != nil {
		log.Printf("leaderboard achievement check failed for %s: %v", userID, err)
	}

	writeJSON(w, http.StatusOK, rankResponse{UserID: userID, Field: field, Rank: rank})
}

func (h *APIHandler) handleFact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	fact, err := h.facts.RandomFact(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fact)
}

type saveFactRequest struct {
	UserID string `json:"userId"`
	Number int    `json:"factNumber"`
	Text   string `json:"factText"`
}

func (h *APIHandler) handleSaveFact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req saveFactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.Text == "" {
		http.Error(w, "userId and factText are required", http.StatusBadRequest)
		return
	}

	if err := h.facts.SaveFact(r.Context(), req.UserID, req.Number, req.Text); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) handleCategoryStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	counts, err := h.categories.CategoryCounts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// scoreField reads the board selector; a missing value means the all-time
// board. Unknown values pass through and fail validation downstream.
func scoreField(r *http.Request) domain.ScoreField {
	if raw := r.URL.Query().Get("type"); raw != "" {
		return domain.ScoreField(raw)
	}
	return domain.AllTimeScore
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrUserNotFound):
		http.Error(w, "user not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrAlreadyAttempted):
		http.Error(w, "daily question already attempted", http.StatusConflict)
	case errors.Is(err, domain.ErrRemoteUnavailable):
		http.Error(w, "upstream provider unavailable", http.StatusServiceUnavailable)
	default:
		log.Printf("internal error: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
