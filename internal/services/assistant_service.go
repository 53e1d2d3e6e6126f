package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AlexandroGranja/Assistente-Financeiro/internal/amqp"
	"github.com/AlexandroGranja/Assistente-Financeiro/internal/core"
	"github.com/AlexandroGranja/Assistente-Financeiro/internal/llm"
	"github.com/AlexandroGranja/Assistente-Financeiro/internal/storage"
)

const (
	// adviceWindow is how far back spending is summarized for advice.
	adviceWindow = 30 * 24 * time.Hour

	msgPeriodoInvalido = "Período inválido. Use 'dia' para os gastos de hoje ou 'mes' para os do mês. 🗓️"
	msgSemGastosDia    = "Você ainda não registrou nenhum gasto hoje. 🎉"
	msgSemGastosMes    = "Você ainda não registrou nenhum gasto neste mês. 🎉"
	msgSemDadosConselho = "Ainda não há gastos suficientes registrados para gerar um conselho. Registre alguns gastos primeiro! 📝"

	// conselhoFallback is returned whenever advice cannot be generated,
	// whatever the reason.
	conselhoFallback = "💡 Dica: anote todos os seus gastos, até os pequenos. No fim do mês, eles fazem uma grande diferença no seu bolso!"

	msgAjuda = "🤖 *Assistente Financeiro*\n\n" +
		"Você pode me enviar:\n" +
		"📌 Um gasto em texto livre, ex: \"Almoço 25.50 alimentação\"\n" +
		"📊 \"consultar gastos\" com período 'dia' ou 'mes'\n" +
		"📈 \"relatório\" para ver seus gastos por categoria\n" +
		"💡 \"conselho\" para receber uma dica financeira personalizada"
)

// AssistantService orchestrates extraction, persistence and advice for the
// financial assistant endpoints.
type AssistantService struct {
	store      storage.Store
	llm        llm.Client
	amqpClient *amqp.Client
}

// NewAssistantService wires the service. amqpClient may be nil; event
// publishing is then skipped.
func NewAssistantService(store storage.Store, llmClient llm.Client, amqpClient *amqp.Client) *AssistantService {
	return &AssistantService{
		store:      store,
		llm:        llmClient,
		amqpClient: amqpClient,
	}
}

// RegistrarGasto extracts an expense from a free-text message and persists
// it for the given phone number. The returned string is the confirmation
// message shown to the user.
func (s *AssistantService) RegistrarGasto(ctx context.Context, phone, query string) (string, error) {
	ext, err := s.llm.Extract(ctx, query)
	if err != nil {
		return "", fmt.Errorf("extract expense: %w", err)
	}

	valor, err := core.ParseAmount(ext.Valor)
	if err != nil {
		return "", fmt.Errorf("parse amount %q: %w", ext.Valor, err)
	}

	expense := core.Expense{
		Descricao: core.NormalizeDescription(ext.Descricao),
		Valor:     valor,
		Categoria: core.NormalizeCategory(ext.Categoria),
	}
	if err := expense.Validate(); err != nil {
		return "", fmt.Errorf("validate expense: %w", err)
	}

	saved, err := s.store.RegisterExpense(ctx, phone, expense)
	if err != nil {
		return "", fmt.Errorf("save expense: %w", err)
	}

	s.publishRecorded(ctx, phone, saved)

	return fmt.Sprintf("✅ Gasto registrado!\n\n💸 %s: %s\n📂 Categoria: %s",
		saved.Descricao, core.FormatBRL(saved.Valor), saved.Categoria), nil
}

// ConsultarGastos sums the user's spending for the requested period
// ("dia" or "mes"). Any other period yields an explanatory message, not an
// error.
func (s *AssistantService) ConsultarGastos(ctx context.Context, phone, periodo string) (string, error) {
	var (
		since time.Time
		label string
		empty string
	)
	now := time.Now().UTC()

	switch strings.ToLower(strings.TrimSpace(periodo)) {
	case "dia":
		since = core.StartOfDay(now)
		label = "hoje"
		empty = msgSemGastosDia
	case "mes":
		since = core.StartOfMonth(now)
		label = "neste mês"
		empty = msgSemGastosMes
	default:
		return msgPeriodoInvalido, nil
	}

	total, count, err := s.store.SumSince(ctx, phone, since)
	if err != nil {
		return "", fmt.Errorf("sum expenses: %w", err)
	}
	if count == 0 {
		return empty, nil
	}

	plural := "gastos"
	if count == 1 {
		plural = "gasto"
	}
	return fmt.Sprintf("📊 Você registrou %d %s %s, totalizando %s.",
		count, plural, label, core.FormatBRL(total)), nil
}

// GerarConselho summarizes the trailing thirty days of spending and asks
// the model for advice. It always returns a message: any failure falls back
// to a static tip.
func (s *AssistantService) GerarConselho(ctx context.Context, phone string) string {
	expenses, err := s.store.ExpensesSince(ctx, phone, time.Now().UTC().Add(-adviceWindow))
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load expenses for advice", "error", err)
		return conselhoFallback
	}
	if len(expenses) == 0 {
		return msgSemDadosConselho
	}

	advice, err := s.llm.Advise(ctx, spendingSummary(expenses))
	if err != nil {
		slog.WarnContext(ctx, "Advice generation failed, using fallback", "error", err)
		return conselhoFallback
	}
	return strings.TrimSpace(advice)
}

// Relatorio returns the user's all-time spending grouped by category.
func (s *AssistantService) Relatorio(ctx context.Context, phone string) ([]core.CategoryTotal, decimal.Decimal, error) {
	return s.store.CategoryTotals(ctx, phone)
}

// Expenses lists every expense registered for the phone, newest first.
func (s *AssistantService) Expenses(ctx context.Context, phone string) ([]core.Expense, error) {
	return s.store.ListExpenses(ctx, phone)
}

// Ajuda returns the static usage help text.
func (s *AssistantService) Ajuda() string {
	return msgAjuda
}

func (s *AssistantService) publishRecorded(ctx context.Context, phone string, e core.Expense) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishExpenseRecorded(ctx, amqp.NewExpenseRecordedMessage(phone, e)); err != nil {
		// Registration already succeeded; the event is best effort.
		slog.ErrorContext(ctx, "Failed to publish expense recorded message",
			"id", e.ID, "error", err)
	}
}

// spendingSummary renders a per-category text table for the advice prompt.
func spendingSummary(expenses []core.Expense) string {
	totals := make(map[string]decimal.Decimal)
	counts := make(map[string]int)
	order := make([]string, 0, len(expenses))
	grand := decimal.Zero

	for _, e := range expenses {
		if _, seen := totals[e.Categoria]; !seen {
			order = append(order, e.Categoria)
		}
		totals[e.Categoria] = totals[e.Categoria].Add(e.Valor)
		counts[e.Categoria]++
		grand = grand.Add(e.Valor)
	}

	var b strings.Builder
	b.WriteString("Gastos dos últimos 30 dias:\n")
	for _, cat := range order {
		fmt.Fprintf(&b, "- %s: %s (%d gastos)\n", cat, core.FormatBRL(totals[cat]), counts[cat])
	}
	fmt.Fprintf(&b, "Total: %s", core.FormatBRL(grand))
	return b.String()
}

// Close releases the storage and broker connections.
func (s *AssistantService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close assistant service: %v", errs)
	}

	return nil
}
