package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// NotifyClient pushes weekly spend alerts to the notifier service.
type NotifyClient struct {
	baseURL string
	appKey  string
	client  *http.Client
}

func NewNotifyClient(baseURL, appKey string) *NotifyClient {
	return &NotifyClient{
		baseURL: baseURL,
		appKey:  appKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type notifyResponse struct {
	OK      bool `json:"ok"`
	Skipped bool `json:"skipped"`
}

func (c *NotifyClient) post(ctx context.Context, path string, payload any) (*notifyResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-APP-KEY", c.appKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}

	var nr notifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&nr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &nr, nil
}

type settingsPayload struct {
	UserKey        string `json:"user_key"`
	WeeklyCapCents int64  `json:"weekly_cap_cents"`
	AlertPct       int    `json:"alert_pct"`
}

// SaveSettings mirrors the alert configuration to the notifier so its
// server-side debounce works from the same cap and threshold.
func (c *NotifyClient) SaveSettings(ctx context.Context, userKey string, weeklyCapCents int64, alertPct int) error {
	nr, err := c.post(ctx, "/api/settings", settingsPayload{
		UserKey:        userKey,
		WeeklyCapCents: weeklyCapCents,
		AlertPct:       alertPct,
	})
	if err != nil {
		return fmt.Errorf("save notifier settings: %w", err)
	}
	if !nr.OK {
		return fmt.Errorf("notifier rejected the settings")
	}
	return nil
}

func (c *NotifyClient) NotifyWeeklySpend(ctx context.Context, n Notification) error {
	nr, err := c.post(ctx, "/api/notify", n)
	if err != nil {
		return fmt.Errorf("notify request failed: %w", err)
	}
	if !nr.OK {
		return fmt.Errorf("notifier rejected the alert")
	}

	// skipped means the notifier already alerted this week; the alert
	// is handled either way.
	slog.DebugContext(ctx, "Notify request completed",
		"user_key", n.UserKey,
		"week", n.WeekStart,
		"skipped", nr.Skipped)
	return nil
}
