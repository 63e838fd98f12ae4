package web

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"autoforward_bot/internal/forwarder"
)

const stopTimeout = 10 * time.Second

type statusStats struct {
	MessagesReceived  int64                `json:"messages_received"`
	MessagesForwarded int64                `json:"messages_forwarded"`
	LastMessageTime   *time.Time           `json:"last_message_time"`
	StartTime         *time.Time           `json:"start_time"`
	Errors            []forwarder.RunError `json:"errors"`
}

type statusConfig struct {
	SourceChat      string   `json:"source_chat"`
	DestinationChat string   `json:"destination_chat"`
	Keywords        []string `json:"keywords"`
	ForwardMedia    bool     `json:"forward_media"`
	DelaySeconds    int      `json:"delay_seconds"`
}

type statusResponse struct {
	Running       bool         `json:"running"`
	Authenticated bool         `json:"authenticated"`
	State         string       `json:"state"`
	Stats         statusStats  `json:"stats"`
	Config        statusConfig `json:"config"`
}

type actionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(dashboardHTML); err != nil {
		s.log.Error("write dashboard", "error", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	st := s.manager.Status()
	if st == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{
			"running":       false,
			"authenticated": false,
			"message":       "Bot not initialized",
		})
		return
	}

	recent := st.RecentErrors
	if recent == nil {
		recent = []forwarder.RunError{}
	}
	keywords := st.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	s.writeJSON(w, http.StatusOK, statusResponse{
		Running:       st.Running,
		Authenticated: st.Authenticated,
		State:         string(st.State),
		Stats: statusStats{
			MessagesReceived:  st.MessagesReceived,
			MessagesForwarded: st.MessagesForwarded,
			LastMessageTime:   st.LastMessageTime,
			StartTime:         st.StartTime,
			Errors:            recent,
		},
		Config: statusConfig{
			SourceChat:      st.SourceChat,
			DestinationChat: st.DestinationChat,
			Keywords:        keywords,
			ForwardMedia:    st.ForwardMedia,
			DelaySeconds:    st.DelaySeconds,
		},
	})
}

func (s *Server) handleStart(w http.ResponseWriter, _ *http.Request) {
	if err := s.manager.Start(); err != nil {
		s.writeJSON(w, http.StatusOK, actionResponse{Success: false, Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, actionResponse{
		Success: true,
		Message: "Bot start initiated. Check status for details.",
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), stopTimeout)
	defer cancel()

	if err := s.manager.Stop(ctx); err != nil {
		s.writeJSON(w, http.StatusOK, actionResponse{Success: false, Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: "Bot stopped successfully"})
}

// handleConfig echoes the effective configuration for the dashboard. The API
// hash is deliberately never included.
func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	apiID := "Not set"
	if s.cfg.APIID != 0 {
		apiID = strconv.Itoa(s.cfg.APIID)
	}
	keywords := "None"
	if len(s.cfg.Keywords) > 0 {
		keywords = strings.Join(s.cfg.Keywords, ",")
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"api_id":           apiID,
		"phone":            orNotSet(s.cfg.Phone),
		"source_chat":      orNotSet(s.cfg.SourceChat),
		"destination_chat": orNotSet(s.cfg.DestinationChat),
		"keywords":         keywords,
		"forward_media":    strconv.FormatBool(s.cfg.ForwardMedia),
		"delay_seconds":    strconv.Itoa(s.cfg.DelaySeconds),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"bot_running": s.manager.Running(),
	})
}

type messageView struct {
	ID              int64     `json:"id"`
	MessageID       int64     `json:"message_id"`
	SourceChat      string    `json:"source_chat"`
	DestinationChat string    `json:"destination_chat"`
	MessageText     string    `json:"message_text"`
	HasMedia        bool      `json:"has_media"`
	MediaType       *string   `json:"media_type"`
	KeywordsMatched *string   `json:"keywords_matched"`
	ForwardedAt     time.Time `json:"forwarded_at"`
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	limit := queryLimit(r, defaultMessageLimit)

	msgs, err := s.store.ListMessages(r.Context(), limit)
	if err != nil {
		s.log.Error("list messages", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, messageView{
			ID:              m.ID,
			MessageID:       m.MessageID,
			SourceChat:      m.SourceChat,
			DestinationChat: m.DestinationChat,
			MessageText:     displayText(m.MessageText),
			HasMedia:        m.HasMedia,
			MediaType:       m.MediaType,
			KeywordsMatched: m.KeywordsMatched,
			ForwardedAt:     m.ForwardedAt,
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"messages": views,
		"total":    len(views),
	})
}

type sessionView struct {
	ID                int64      `json:"id"`
	SessionID         string     `json:"session_id"`
	SourceChat        string     `json:"source_chat"`
	DestinationChat   string     `json:"destination_chat"`
	Keywords          *string    `json:"keywords"`
	ForwardMedia      bool       `json:"forward_media"`
	DelaySeconds      int        `json:"delay_seconds"`
	StartedAt         time.Time  `json:"started_at"`
	StoppedAt         *time.Time `json:"stopped_at"`
	IsActive          bool       `json:"is_active"`
	MessagesReceived  int64      `json:"messages_received"`
	MessagesForwarded int64      `json:"messages_forwarded"`
	LastActivity      time.Time  `json:"last_activity"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	sessions, err := s.store.ListSessions(r.Context(), sessionListLimit)
	if err != nil {
		s.log.Error("list sessions", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load sessions")
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, sessionView{
			ID:                sess.ID,
			SessionID:         sess.SessionID,
			SourceChat:        sess.SourceChat,
			DestinationChat:   sess.DestinationChat,
			Keywords:          sess.Keywords,
			ForwardMedia:      sess.ForwardMedia,
			DelaySeconds:      sess.DelaySeconds,
			StartedAt:         sess.StartedAt,
			StoppedAt:         sess.StoppedAt,
			IsActive:          sess.IsActive,
			MessagesReceived:  sess.MessagesReceived,
			MessagesForwarded: sess.MessagesForwarded,
			LastActivity:      sess.LastActivity,
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"sessions": views,
		"total":    len(views),
	})
}

type errorView struct {
	ID           int64     `json:"id"`
	SessionID    *string   `json:"session_id"`
	ErrorType    string    `json:"error_type"`
	ErrorMessage string    `json:"error_message"`
	OccurredAt   time.Time `json:"occurred_at"`
	Resolved     bool      `json:"resolved"`
}

func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	logs, err := s.store.ListErrors(r.Context(), errorListLimit)
	if err != nil {
		s.log.Error("list errors", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load errors")
		return
	}

	views := make([]errorView, 0, len(logs))
	for _, e := range logs {
		views = append(views, errorView{
			ID:           e.ID,
			SessionID:    e.SessionID,
			ErrorType:    e.ErrorType,
			ErrorMessage: e.ErrorMessage,
			OccurredAt:   e.OccurredAt,
			Resolved:     e.Resolved,
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"errors": views,
		"total":  len(views),
	})
}

func (s *Server) handleResolveError(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid error id")
		return
	}

	if err := s.store.ResolveError(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.writeError(w, http.StatusNotFound, "error log not found")
			return
		}
		s.log.Error("resolve error", "id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to resolve error")
		return
	}

	s.writeJSON(w, http.StatusOK, actionResponse{Success: true})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.log.Error("load stats", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load statistics")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]int64{
		"total_messages_forwarded": stats.TotalMessagesForwarded,
		"total_sessions":           stats.TotalSessions,
		"active_sessions":          stats.ActiveSessions,
		"total_errors":             stats.TotalErrors,
		"unresolved_errors":        stats.UnresolvedErrors,
		"messages_last_24h":        stats.MessagesLast24h,
	})
}

// displayText shortens stored message text for list views.
func displayText(text string) string {
	r := []rune(text)
	if len(r) <= displayTextLimit {
		return text
	}
	return string(r[:displayTextLimit]) + "..."
}

func orNotSet(v string) string {
	if v == "" {
		return "Not set"
	}
	return v
}

func queryLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
