// Package worker forwards recorded-expense events to the external
// automation webhook.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/AlexandroGranja/Assistente-Financeiro/internal/amqp"
	"github.com/AlexandroGranja/Assistente-Financeiro/internal/core"
)

// NotifyWorker consumes recorded-expense events and POSTs a confirmation
// payload to the configured webhook.
type NotifyWorker struct {
	webhookURL string
	httpClient *http.Client
}

func NewNotifyWorker(webhookURL string) *NotifyWorker {
	return &NotifyWorker{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// notification is the payload the automation platform receives.
type notification struct {
	Phone      string    `json:"phone"`
	Message    string    `json:"message"`
	Categoria  string    `json:"categoria"`
	RecordedAt time.Time `json:"recorded_at"`
}

// HandleExpenseRecorded processes a single recorded-expense event. An error
// return causes the delivery to be requeued by the consumer.
func (w *NotifyWorker) HandleExpenseRecorded(ctx context.Context, msg *amqp.ExpenseRecordedMessage) error {
	slog.InfoContext(ctx, "Processing expense recorded event",
		"id", msg.ID,
		"categoria", msg.Categoria)

	payload := notification{
		Phone: msg.Phone,
		Message: fmt.Sprintf("✅ Gasto registrado: %s (%s, categoria %s)",
			msg.Descricao, core.FormatBRL(msg.Valor), msg.Categoria),
		Categoria:  msg.Categoria,
		RecordedAt: msg.RecordedAt,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	slog.InfoContext(ctx, "Notification delivered",
		"id", msg.ID,
		"status", resp.StatusCode)

	return nil
}
