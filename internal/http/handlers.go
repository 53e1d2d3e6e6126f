package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/AlexandroGranja/Assistente-Financeiro/internal/core"
	"github.com/AlexandroGranja/Assistente-Financeiro/internal/llm"
)

type registrarRequest struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
}

type consultarRequest struct {
	UserID  string `json:"user_id"`
	Periodo string `json:"periodo"`
}

type conselhoRequest struct {
	UserID string `json:"user_id"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type textResponse struct {
	Response string `json:"response"`
}

func (s *Server) handleRegistrarGasto(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req registrarRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Formato de requisição inválido."})
		return
	}

	phone := sanitizeInput(req.UserID)
	query := sanitizeInput(req.Query)
	if phone == "" || query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Os campos 'user_id' e 'query' são obrigatórios."})
		return
	}

	reply, err := s.assistant.RegistrarGasto(r.Context(), phone, query)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidAmount):
			slog.WarnContext(r.Context(), "Expense amount not recognized", "error", err)
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: "Não consegui identificar o valor do gasto. Tente algo como 'Almoço 25.50'.",
			})
		case errors.Is(err, llm.ErrIncomplete),
			errors.Is(err, core.ErrEmptyDescription),
			errors.Is(err, core.ErrEmptyCategory):
			slog.WarnContext(r.Context(), "Expense message incomplete", "error", err)
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: "Não consegui entender o gasto. Informe descrição, valor e categoria, ex: 'Almoço 25.50 alimentação'.",
			})
		default:
			slog.ErrorContext(r.Context(), "Expense registration failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error: "Não foi possível registrar seu gasto agora. Tente novamente.",
			})
		}
		return
	}

	s.reportCache.Delete(phone)
	writeJSON(w, http.StatusCreated, messageResponse{Message: reply})
}

func (s *Server) handleConsultarGastos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req consultarRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Formato de requisição inválido."})
		return
	}

	phone := sanitizeInput(req.UserID)
	if phone == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "O campo 'user_id' é obrigatório."})
		return
	}

	reply, err := s.assistant.ConsultarGastos(r.Context(), phone, req.Periodo)
	if err != nil {
		slog.ErrorContext(r.Context(), "Expense query failed", "error", err)
		reply = "Não foi possível consultar seus gastos agora. Tente novamente mais tarde."
	}
	writeJSON(w, http.StatusOK, textResponse{Response: reply})
}

func (s *Server) handleGerarConselho(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req conselhoRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Formato de requisição inválido."})
		return
	}

	phone := sanitizeInput(req.UserID)
	if phone == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "O campo 'user_id' é obrigatório."})
		return
	}

	writeJSON(w, http.StatusOK, textResponse{Response: s.assistant.GerarConselho(r.Context(), phone)})
}

func (s *Server) handleAjuda(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Response: s.assistant.Ajuda()})
}

func (s *Server) handleRelatorio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	phone := sanitizeInput(r.URL.Query().Get("user_id"))
	if phone == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "O parâmetro 'user_id' é obrigatório."})
		return
	}

	if report, ok := s.reportCache.Get(phone); ok {
		writeJSON(w, http.StatusOK, textResponse{Response: report})
		return
	}

	totals, grand, err := s.assistant.Relatorio(r.Context(), phone)
	if err != nil {
		slog.ErrorContext(r.Context(), "Report generation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "Não foi possível gerar o relatório agora.",
		})
		return
	}

	report := formatReport(totals, grand)
	s.reportCache.Set(phone, report)
	writeJSON(w, http.StatusOK, textResponse{Response: report})
}

func formatReport(totals []core.CategoryTotal, grand decimal.Decimal) string {
	if len(totals) == 0 {
		return "Você ainda não tem gastos registrados. 📝"
	}

	var b strings.Builder
	b.WriteString("📈 Relatório de gastos por categoria:\n")
	for _, ct := range totals {
		fmt.Fprintf(&b, "\n📂 %s: %s", ct.Categoria, core.FormatBRL(ct.Total))
	}
	fmt.Fprintf(&b, "\n\n💰 Total: %s", core.FormatBRL(grand))
	return b.String()
}
