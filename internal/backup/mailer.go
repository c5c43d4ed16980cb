package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/myrjola/fittracker/internal/errors"
)

// ErrNoEndpoint is returned when no backup endpoint has been configured.
var ErrNoEndpoint = errors.NewSentinel("backup endpoint is not configured")

const maxResponseSize = 1 << 20

// Mailer hands a backup to a web endpoint that emails it to the user.
type Mailer struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewMailer creates a Mailer posting to endpoint.
func NewMailer(endpoint string, logger *slog.Logger) *Mailer {
	return &Mailer{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second}, //nolint:mnd // generous for slow script hosts
		logger:     logger,
	}
}

type mailRequest struct {
	Email      string `json:"email"`
	Date       string `json:"date"`
	BackupData Backup `json:"backupData"`
}

type mailResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Send emails b to the address. date is the date the mail is labelled with.
func (m *Mailer) Send(ctx context.Context, email, date string, b Backup) error {
	if m.endpoint == "" {
		return ErrNoEndpoint
	}
	payload, err := json.Marshal(mailRequest{Email: email, Date: date, BackupData: b})
	if err != nil {
		return fmt.Errorf("marshal mail request: %w", err)
	}

	// The script host rejects preflighted requests so the JSON goes out as plain text.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post backup: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.New(fmt.Sprintf("伺服器錯誤: %d", resp.StatusCode), slog.String("endpoint", m.endpoint))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var result mailResponse
	if err = json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if result.Status == "error" {
		return errors.New("API回傳錯誤: " + result.Message)
	}

	m.logger.LogAttrs(ctx, slog.LevelInfo, "emailed backup",
		slog.String("email", email),
		slog.Int("bytes", len(payload)))
	return nil
}
