package notifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type settingsRequest struct {
	UserKey        string `json:"user_key"`
	WeeklyCapCents *int64 `json:"weekly_cap_cents"`
	AlertPct       *int   `json:"alert_pct"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	userKey := r.URL.Query().Get("user_key")
	if userKey == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid"})
		return
	}

	u, err := s.store.Get(r.Context(), userKey)
	if errors.Is(err, ErrUserNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"ok": false, "error": "unknown user"})
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load settings", "user_key", userKey, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":               true,
		"user_key":         u.UserKey,
		"weekly_cap_cents": u.WeeklyCapCents,
		"alert_pct":        u.AlertPct,
		"linked":           u.ChatID != "",
	})
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid"})
		return
	}
	if req.UserKey == "" || req.WeeklyCapCents == nil || *req.WeeklyCapCents < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid"})
		return
	}

	pct := 80
	if req.AlertPct != nil {
		pct = *req.AlertPct
	}

	if err := s.store.SaveSettings(r.Context(), req.UserKey, *req.WeeklyCapCents, pct); err != nil {
		slog.ErrorContext(r.Context(), "Failed to save settings", "user_key", req.UserKey, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type notifyRequest struct {
	UserKey    string `json:"user_key"`
	WeekStart  string `json:"week_start"`
	Pct        int64  `json:"pct"`
	TotalCents *int64 `json:"total_cents"`
	CapCents   *int64 `json:"cap_cents"`
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid"})
		return
	}
	if req.UserKey == "" || req.WeekStart == "" || req.TotalCents == nil || req.CapCents == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid"})
		return
	}

	u, err := s.store.Get(r.Context(), req.UserKey)
	if errors.Is(err, ErrUserNotFound) || (err == nil && u.ChatID == "") {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "no chat"})
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load user", "user_key", req.UserKey, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false})
		return
	}

	// one alert per week
	if u.LastAlertWeek == req.WeekStart {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "skipped": true})
		return
	}

	pct := req.Pct
	if pct <= 0 {
		capCents := *req.CapCents
		if capCents < 1 {
			capCents = 1
		}
		pct = *req.TotalCents * 100 / capCents
	}

	text := fmt.Sprintf("⚠️ Você já gastou R$ %s de R$ %s (%d%%).",
		formatBRL(*req.TotalCents), formatBRL(*req.CapCents), pct)

	if err := s.bot.SendMessage(r.Context(), u.ChatID, text); err != nil {
		slog.ErrorContext(r.Context(), "Failed to send telegram message",
			"user_key", req.UserKey, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false})
		return
	}

	if err := s.store.SetLastAlertWeek(r.Context(), req.UserKey, req.WeekStart); err != nil {
		// message is already out, log and report success anyway
		slog.ErrorContext(r.Context(), "Failed to update last alert week",
			"user_key", req.UserKey, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type webhookUpdate struct {
	Message *struct {
		Text string `json:"text"`
		Chat *struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// handleWebhook processes Telegram updates. It always answers 200:
// any other status makes Telegram redeliver the update in a loop.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update webhookUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	if update.Message == nil || update.Message.Chat == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	text := update.Message.Text
	chatID := fmt.Sprintf("%d", update.Message.Chat.ID)

	if strings.HasPrefix(text, "/link ") {
		userKey := strings.TrimSpace(strings.TrimPrefix(text, "/link "))
		if userKey == "" {
			w.WriteHeader(http.StatusOK)
			return
		}

		if err := s.store.LinkChat(r.Context(), userKey, chatID); err != nil {
			slog.ErrorContext(r.Context(), "Failed to link chat",
				"user_key", userKey, "error", err)
			if err := s.bot.SendMessage(r.Context(), chatID, "❌ Erro ao vincular. Tente novamente."); err != nil {
				slog.ErrorContext(r.Context(), "Failed to send link error reply", "error", err)
			}
			w.WriteHeader(http.StatusOK)
			return
		}

		reply := fmt.Sprintf("✅ Vinculado! user_key = %s", userKey)
		if err := s.bot.SendMessage(r.Context(), chatID, reply); err != nil {
			slog.ErrorContext(r.Context(), "Failed to send link confirmation", "error", err)
		}
	}

	w.WriteHeader(http.StatusOK)
}

// formatBRL renders cents as a plain two-decimal amount.
func formatBRL(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
