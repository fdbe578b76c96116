// Package api exposes leaderboards and invite-role rules over HTTP for
// dashboards and other bots.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"guildkeeper/internal/apperrors"
	"guildkeeper/internal/config"
	"guildkeeper/internal/guild"
	"guildkeeper/internal/inviterole"
	"guildkeeper/internal/leaderboard"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader = "X-Request-ID"
	apiActor        = "api"
)

type contextKey string

const requestIDKey = contextKey("request_id")

type Server struct {
	cfg          config.APIConfig
	logger       *zap.Logger
	leaderboards *leaderboard.Service
	inviteRoles  *inviterole.Service
	limiters     sync.Map
}

func New(cfg config.APIConfig, logger *zap.Logger, leaderboards *leaderboard.Service, inviteRoles *inviterole.Service) *Server {
	return &Server{cfg: cfg, logger: logger, leaderboards: leaderboards, inviteRoles: inviteRoles}
}

// Response is the envelope of every reply.
type Response struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type LeaderboardView struct {
	Name      string             `json:"name"`
	Title     string             `json:"title"`
	Type      string             `json:"type"`
	ChannelID string             `json:"channelId,omitempty"`
	MessageID string             `json:"messageId,omitempty"`
	Ranking   []leaderboard.Rank `json:"ranking,omitempty"`
	Entries   int                `json:"entries"`
}

type RuleView struct {
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Color         *int     `json:"color,omitempty"`
	Invites       []string `json:"invites"`
	RolesToAdd    []string `json:"rolesToAdd"`
	RolesToRemove []string `json:"rolesToRemove"`
	Occurrences   int      `json:"occurrences"`
	Enabled       bool     `json:"enabled"`
	CreatedAt     int64    `json:"createdAt"`
	UpdatedAt     int64    `json:"updatedAt"`
}

type scoreRequest struct {
	UserID string   `json:"userId"`
	Amount *float64 `json:"amount"`
}

type scoreResult struct {
	UserID string  `json:"userId"`
	Total  float64 `json:"total"`
}

func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestID)
	r.Use(s.logRequests)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	guilds := r.PathPrefix("/guilds/{guildID}").Subrouter()
	guilds.Use(s.authenticate)
	guilds.Use(s.rateLimit)
	guilds.HandleFunc("/leaderboards", s.listLeaderboards).Methods(http.MethodGet)
	guilds.HandleFunc("/leaderboards/{name}", s.getLeaderboard).Methods(http.MethodGet)
	guilds.HandleFunc("/leaderboards/{name}/scores", s.addScore).Methods(http.MethodPost)
	guilds.HandleFunc("/invite-roles", s.listInviteRoles).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.fail(w, r, http.StatusNotFound, "NOT_FOUND", "no such route")
	})
	return r
}

// HTTPServer wraps the router with the configured address and timeouts.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.ok(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listLeaderboards(w http.ResponseWriter, r *http.Request) {
	boards, err := s.leaderboards.List(r.Context(), mux.Vars(r)["guildID"])
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	views := make([]LeaderboardView, 0, len(boards))
	for _, lb := range boards {
		views = append(views, leaderboardView(lb, false))
	}
	s.ok(w, r, http.StatusOK, views)
}

func (s *Server) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	lb, err := s.leaderboards.Get(r.Context(), vars["guildID"], vars["name"])
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	s.ok(w, r, http.StatusOK, leaderboardView(lb, true))
}

func (s *Server) addScore(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req scoreRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		s.fail(w, r, http.StatusBadRequest, string(apperrors.CodeValidation), "invalid JSON body")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		s.fail(w, r, http.StatusBadRequest, string(apperrors.CodeValidation), "userId is required")
		return
	}
	amount := 1.0
	if req.Amount != nil {
		amount = *req.Amount
	}

	total, err := s.leaderboards.IncrementUser(r.Context(), vars["guildID"], apiActor, vars["name"], req.UserID, amount)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	s.ok(w, r, http.StatusOK, scoreResult{UserID: req.UserID, Total: total})
}

func (s *Server) listInviteRoles(w http.ResponseWriter, r *http.Request) {
	rules, err := s.inviteRoles.List(r.Context(), mux.Vars(r)["guildID"], r.URL.Query().Get("name"))
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	views := make([]RuleView, 0, len(rules))
	for _, rule := range rules {
		views = append(views, RuleView{
			Name:          rule.Name,
			Description:   rule.Description,
			Color:         rule.Color,
			Invites:       rule.Invites,
			RolesToAdd:    rule.RolesToAdd,
			RolesToRemove: rule.RolesToRemove,
			Occurrences:   rule.Occurrences,
			Enabled:       rule.Enabled,
			CreatedAt:     rule.CreatedAt,
			UpdatedAt:     rule.UpdatedAt,
		})
	}
	s.ok(w, r, http.StatusOK, views)
}

func leaderboardView(lb *guild.Leaderboard, withRanking bool) LeaderboardView {
	view := LeaderboardView{
		Name:      lb.Name,
		Title:     lb.Title,
		Type:      string(lb.Type),
		ChannelID: lb.ChannelID,
		MessageID: lb.MessageID,
		Entries:   len(lb.Scores),
	}
	if withRanking {
		view.Ranking = leaderboard.Ranking(lb)
	}
	return view
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.logger.Info("api request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.statusCode),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", requestIDFrom(r.Context())))
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok || s.cfg.Token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.Token)) != 1 {
			s.fail(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimit keeps one token bucket per bearer token.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _ := bearerToken(r)
		if !s.limiter(token).Allow() {
			w.Header().Set("Retry-After", "1")
			s.fail(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) limiter(key string) *rate.Limiter {
	limiter, _ := s.limiters.LoadOrStore(key, rate.NewLimiter(rate.Limit(s.cfg.Rate), s.cfg.Burst))
	return limiter.(*rate.Limiter)
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// statusFor maps engine error codes onto HTTP statuses.
func statusFor(err error) int {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeRuleNotFound, apperrors.CodeLeaderboardNotFound:
		return http.StatusNotFound
	case apperrors.CodeRuleExists, apperrors.CodeDuplicateLeaderboard:
		return http.StatusConflict
	case apperrors.CodeValidation, apperrors.CodeNameFormat, apperrors.CodeWrongLeaderboardType, apperrors.CodeRoleResolution:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) failErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("api request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err))
		s.fail(w, r, status, string(apperrors.CodeUnknown), "internal error")
		return
	}
	var appErr *apperrors.Error
	message := err.Error()
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	s.fail(w, r, status, string(apperrors.CodeOf(err)), message)
}

func (s *Server) ok(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, Response{Success: true, Data: data, RequestID: requestIDFrom(r.Context())})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, Response{Success: false, Error: message, Code: code, RequestID: requestIDFrom(r.Context())})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
