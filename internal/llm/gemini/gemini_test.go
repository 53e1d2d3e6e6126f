package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AlexandroGranja/Assistente-Financeiro/internal/llm"
)

func fakeGenerate(t *testing.T, replyText string, capture *generateRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		resp := generateResponse{
			Candidates: []candidate{
				{Content: responseContent{Parts: []responsePart{{Text: replyText}}}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestClient_Extract(t *testing.T) {
	t.Run("reference extraction", func(t *testing.T) {
		srv := fakeGenerate(t, `{"descricao": "Almoço", "valor": 25.50, "categoria": "alimentação"}`, nil)
		defer srv.Close()

		c := New("test-key", "", time.Second).WithBaseURL(srv.URL)
		ext, err := c.Extract(context.Background(), "Almoço 25.50 alimentação")
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if ext.Descricao != "Almoço" || ext.Valor != "25.5" || ext.Categoria != "alimentação" {
			t.Fatalf("unexpected extraction: %+v", ext)
		}
	})

	t.Run("fenced reply is cleaned", func(t *testing.T) {
		srv := fakeGenerate(t, "```json\n{\"descricao\": \"Café\", \"valor\": \"5.00\", \"categoria\": \"alimentação\"}\n```", nil)
		defer srv.Close()

		c := New("test-key", "", time.Second).WithBaseURL(srv.URL)
		ext, err := c.Extract(context.Background(), "café 5 reais")
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if ext.Valor != "5.00" {
			t.Fatalf("valor = %q", ext.Valor)
		}
	})

	t.Run("missing credential fails before any call", func(t *testing.T) {
		c := New("", "", time.Second).WithBaseURL("http://127.0.0.1:1")
		_, err := c.Extract(context.Background(), "qualquer coisa")
		if !errors.Is(err, llm.ErrNoCredential) {
			t.Fatalf("error = %v, want ErrNoCredential", err)
		}
	})

	t.Run("api error maps to unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error": "quota"}`, http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c := New("test-key", "", time.Second).WithBaseURL(srv.URL)
		_, err := c.Extract(context.Background(), "almoço 10")
		if !errors.Is(err, llm.ErrUnavailable) {
			t.Fatalf("error = %v, want ErrUnavailable", err)
		}
	})

	t.Run("extraction request asks for raw json", func(t *testing.T) {
		var captured generateRequest
		srv := fakeGenerate(t, `{"descricao": "x", "valor": "1", "categoria": "outros"}`, &captured)
		defer srv.Close()

		c := New("test-key", "", time.Second).WithBaseURL(srv.URL)
		if _, err := c.Extract(context.Background(), "x 1 outros"); err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if captured.GenerationConfig == nil || captured.GenerationConfig.ResponseMIMEType != "application/json" {
			t.Fatalf("generationConfig = %+v, want responseMimeType application/json", captured.GenerationConfig)
		}
	})
}

func TestClient_Advise(t *testing.T) {
	t.Run("relaxes every safety filter", func(t *testing.T) {
		var captured generateRequest
		srv := fakeGenerate(t, "Reduza gastos com lazer.", &captured)
		defer srv.Close()

		c := New("test-key", "", time.Second).WithBaseURL(srv.URL)
		advice, err := c.Advise(context.Background(), "Lazer: R$ 300,00")
		if err != nil {
			t.Fatalf("Advise: %v", err)
		}
		if advice != "Reduza gastos com lazer." {
			t.Fatalf("advice = %q", advice)
		}
		if len(captured.SafetySettings) != len(harmCategories) {
			t.Fatalf("safetySettings count = %d, want %d", len(captured.SafetySettings), len(harmCategories))
		}
		for _, s := range captured.SafetySettings {
			if s.Threshold != "BLOCK_NONE" {
				t.Fatalf("threshold for %s = %q, want BLOCK_NONE", s.Category, s.Threshold)
			}
		}
	})

	t.Run("missing credential", func(t *testing.T) {
		c := New("", "", time.Second)
		_, err := c.Advise(context.Background(), "resumo")
		if !errors.Is(err, llm.ErrNoCredential) {
			t.Fatalf("error = %v, want ErrNoCredential", err)
		}
	})
}
