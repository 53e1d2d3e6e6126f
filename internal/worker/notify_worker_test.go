package worker

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AlexandroGranja/Assistente-Financeiro/internal/amqp"
)

func testMessage() *amqp.ExpenseRecordedMessage {
	return &amqp.ExpenseRecordedMessage{
		ID:         42,
		Phone:      "5511999999999",
		Descricao:  "Almoço",
		Valor:      decimal.RequireFromString("25.50"),
		Categoria:  "Alimentação",
		RecordedAt: time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC),
	}
}

func TestHandleExpenseRecorded(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("webhook body not JSON: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewNotifyWorker(srv.URL)
	if err := w.HandleExpenseRecorded(context.Background(), testMessage()); err != nil {
		t.Fatalf("HandleExpenseRecorded() error = %v", err)
	}

	if received["phone"] != "5511999999999" {
		t.Errorf("phone = %v", received["phone"])
	}
	msg, _ := received["message"].(string)
	if !strings.Contains(msg, "R$ 25,50") {
		t.Errorf("message = %q", msg)
	}
}

func TestHandleExpenseRecordedWebhookFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	w := NewNotifyWorker(srv.URL)
	if err := w.HandleExpenseRecorded(context.Background(), testMessage()); err == nil {
		t.Fatal("expected error on non-2xx webhook response")
	}
}

func TestHandleExpenseRecordedUnreachableWebhook(t *testing.T) {
	w := NewNotifyWorker("http://127.0.0.1:1")
	if err := w.HandleExpenseRecorded(context.Background(), testMessage()); err == nil {
		t.Fatal("expected error when the webhook is unreachable")
	}
}
