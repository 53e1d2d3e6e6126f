package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AlexandroGranja/Assistente-Financeiro/internal/core"
	"github.com/AlexandroGranja/Assistente-Financeiro/internal/llm"
)

type fakeLLM struct {
	extraction llm.Extraction
	extractErr error
	advice     string
	adviceErr  error

	lastSummary string
}

func (f *fakeLLM) Extract(_ context.Context, _ string) (llm.Extraction, error) {
	return f.extraction, f.extractErr
}

func (f *fakeLLM) Advise(_ context.Context, summary string) (string, error) {
	f.lastSummary = summary
	return f.advice, f.adviceErr
}

type fakeStore struct {
	expenses   []core.Expense
	nextID     int64
	failWrites bool
	failReads  bool

	lastPhone string
}

func (f *fakeStore) RegisterExpense(_ context.Context, phone string, e core.Expense) (core.Expense, error) {
	if f.failWrites {
		return core.Expense{}, errors.New("database is down")
	}
	f.nextID++
	e.ID = f.nextID
	e.UserID = 1
	if e.Data.IsZero() {
		e.Data = time.Now().UTC()
	}
	f.lastPhone = phone
	f.expenses = append(f.expenses, e)
	return e, nil
}

func (f *fakeStore) SumSince(_ context.Context, _ string, since time.Time) (decimal.Decimal, int, error) {
	if f.failReads {
		return decimal.Zero, 0, errors.New("database is down")
	}
	total := decimal.Zero
	count := 0
	for _, e := range f.expenses {
		if !e.Data.Before(since) {
			total = total.Add(e.Valor)
			count++
		}
	}
	return total, count, nil
}

func (f *fakeStore) ExpensesSince(_ context.Context, _ string, since time.Time) ([]core.Expense, error) {
	if f.failReads {
		return nil, errors.New("database is down")
	}
	var out []core.Expense
	for _, e := range f.expenses {
		if !e.Data.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) CategoryTotals(_ context.Context, _ string) ([]core.CategoryTotal, decimal.Decimal, error) {
	totals := make(map[string]decimal.Decimal)
	grand := decimal.Zero
	var order []string
	for _, e := range f.expenses {
		if _, ok := totals[e.Categoria]; !ok {
			order = append(order, e.Categoria)
		}
		totals[e.Categoria] = totals[e.Categoria].Add(e.Valor)
		grand = grand.Add(e.Valor)
	}
	out := make([]core.CategoryTotal, 0, len(order))
	for _, cat := range order {
		out = append(out, core.CategoryTotal{Categoria: cat, Total: totals[cat]})
	}
	return out, grand, nil
}

func (f *fakeStore) ListExpenses(_ context.Context, _ string) ([]core.Expense, error) {
	return f.expenses, nil
}

func (f *fakeStore) Close() error { return nil }

func TestRegistrarGasto(t *testing.T) {
	store := &fakeStore{}
	model := &fakeLLM{extraction: llm.Extraction{
		Descricao: "almoço no trabalho",
		Valor:     "25.50",
		Categoria: "alimentação",
	}}
	svc := NewAssistantService(store, model, nil)

	reply, err := svc.RegistrarGasto(context.Background(), "5511999999999", "Almoço 25.50 alimentação")
	if err != nil {
		t.Fatalf("RegistrarGasto() error = %v", err)
	}

	if !strings.Contains(reply, "✅ Gasto registrado!") {
		t.Errorf("reply missing confirmation: %q", reply)
	}
	if !strings.Contains(reply, "R$ 25,50") {
		t.Errorf("reply missing formatted amount: %q", reply)
	}
	if !strings.Contains(reply, "Alimentação") {
		t.Errorf("reply missing normalized category: %q", reply)
	}

	if len(store.expenses) != 1 {
		t.Fatalf("expected 1 stored expense, got %d", len(store.expenses))
	}
	if store.expenses[0].Descricao != "Almoço no trabalho" {
		t.Errorf("stored description = %q", store.expenses[0].Descricao)
	}
	if store.lastPhone != "5511999999999" {
		t.Errorf("stored phone = %q", store.lastPhone)
	}
}

func TestRegistrarGastoInvalidAmount(t *testing.T) {
	store := &fakeStore{}
	model := &fakeLLM{extraction: llm.Extraction{
		Descricao: "almoço",
		Valor:     "vinte e cinco reais",
		Categoria: "alimentação",
	}}
	svc := NewAssistantService(store, model, nil)

	_, err := svc.RegistrarGasto(context.Background(), "5511999999999", "gastei vinte e cinco no almoço")
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if len(store.expenses) != 0 {
		t.Error("no expense should be stored when the amount cannot be parsed")
	}
}

func TestRegistrarGastoExtractionFailure(t *testing.T) {
	store := &fakeStore{}
	model := &fakeLLM{extractErr: llm.ErrNoJSON}
	svc := NewAssistantService(store, model, nil)

	_, err := svc.RegistrarGasto(context.Background(), "5511999999999", "bom dia")
	if !errors.Is(err, llm.ErrNoJSON) {
		t.Fatalf("expected ErrNoJSON, got %v", err)
	}
	if len(store.expenses) != 0 {
		t.Error("no expense should be stored when extraction fails")
	}
}

func TestRegistrarGastoStorageFailure(t *testing.T) {
	model := &fakeLLM{extraction: llm.Extraction{
		Descricao: "almoço",
		Valor:     "25.50",
		Categoria: "alimentação",
	}}
	svc := NewAssistantService(&fakeStore{failWrites: true}, model, nil)

	if _, err := svc.RegistrarGasto(context.Background(), "5511999999999", "Almoço 25.50"); err == nil {
		t.Fatal("expected error when storage fails")
	}
}

func TestConsultarGastos(t *testing.T) {
	now := time.Now().UTC()
	store := &fakeStore{expenses: []core.Expense{
		{Descricao: "Almoço", Valor: decimal.RequireFromString("25.50"), Categoria: "Alimentação", Data: now},
		{Descricao: "Mercado", Valor: decimal.RequireFromString("130.00"), Categoria: "Alimentação", Data: core.StartOfMonth(now)},
	}}
	svc := NewAssistantService(store, &fakeLLM{}, nil)

	t.Run("dia", func(t *testing.T) {
		reply, err := svc.ConsultarGastos(context.Background(), "5511999999999", "dia")
		if err != nil {
			t.Fatalf("ConsultarGastos() error = %v", err)
		}
		if !strings.Contains(reply, "hoje") {
			t.Errorf("reply should mention the day: %q", reply)
		}
	})

	t.Run("mes", func(t *testing.T) {
		reply, err := svc.ConsultarGastos(context.Background(), "5511999999999", "mes")
		if err != nil {
			t.Fatalf("ConsultarGastos() error = %v", err)
		}
		if !strings.Contains(reply, "R$ 155,50") {
			t.Errorf("reply should carry the month total: %q", reply)
		}
	})

	t.Run("invalid period", func(t *testing.T) {
		reply, err := svc.ConsultarGastos(context.Background(), "5511999999999", "semana")
		if err != nil {
			t.Fatalf("ConsultarGastos() error = %v", err)
		}
		if reply != msgPeriodoInvalido {
			t.Errorf("reply = %q, want invalid period message", reply)
		}
	})

	t.Run("no expenses", func(t *testing.T) {
		svc := NewAssistantService(&fakeStore{}, &fakeLLM{}, nil)
		reply, err := svc.ConsultarGastos(context.Background(), "5511999999999", "dia")
		if err != nil {
			t.Fatalf("ConsultarGastos() error = %v", err)
		}
		if reply != msgSemGastosDia {
			t.Errorf("reply = %q, want empty day message", reply)
		}
	})
}

func TestGerarConselho(t *testing.T) {
	recent := time.Now().UTC().Add(-24 * time.Hour)
	store := &fakeStore{expenses: []core.Expense{
		{Descricao: "Almoço", Valor: decimal.RequireFromString("25.50"), Categoria: "Alimentação", Data: recent},
		{Descricao: "Uber", Valor: decimal.RequireFromString("18.90"), Categoria: "Transporte", Data: recent},
	}}

	t.Run("advice from model", func(t *testing.T) {
		model := &fakeLLM{advice: "Reduza os gastos com transporte. 🚗"}
		svc := NewAssistantService(store, model, nil)

		reply := svc.GerarConselho(context.Background(), "5511999999999")
		if reply != "Reduza os gastos com transporte. 🚗" {
			t.Errorf("reply = %q", reply)
		}
		if !strings.Contains(model.lastSummary, "Alimentação: R$ 25,50") {
			t.Errorf("summary missing category line: %q", model.lastSummary)
		}
		if !strings.Contains(model.lastSummary, "Total: R$ 44,40") {
			t.Errorf("summary missing grand total: %q", model.lastSummary)
		}
	})

	t.Run("model failure falls back", func(t *testing.T) {
		svc := NewAssistantService(store, &fakeLLM{adviceErr: llm.ErrUnavailable}, nil)
		if reply := svc.GerarConselho(context.Background(), "5511999999999"); reply != conselhoFallback {
			t.Errorf("reply = %q, want fallback", reply)
		}
	})

	t.Run("missing credential falls back", func(t *testing.T) {
		svc := NewAssistantService(store, &fakeLLM{adviceErr: llm.ErrNoCredential}, nil)
		if reply := svc.GerarConselho(context.Background(), "5511999999999"); reply != conselhoFallback {
			t.Errorf("reply = %q, want fallback", reply)
		}
	})

	t.Run("no data", func(t *testing.T) {
		svc := NewAssistantService(&fakeStore{}, &fakeLLM{advice: "unused"}, nil)
		if reply := svc.GerarConselho(context.Background(), "5511999999999"); reply != msgSemDadosConselho {
			t.Errorf("reply = %q, want no data message", reply)
		}
	})

	t.Run("storage failure falls back", func(t *testing.T) {
		svc := NewAssistantService(&fakeStore{failReads: true}, &fakeLLM{advice: "unused"}, nil)
		if reply := svc.GerarConselho(context.Background(), "5511999999999"); reply != conselhoFallback {
			t.Errorf("reply = %q, want fallback", reply)
		}
	})
}

func TestAjuda(t *testing.T) {
	svc := NewAssistantService(&fakeStore{}, &fakeLLM{}, nil)
	if !strings.Contains(svc.Ajuda(), "Assistente Financeiro") {
		t.Errorf("help text = %q", svc.Ajuda())
	}
}

func TestCloseWithNilComponents(t *testing.T) {
	svc := &AssistantService{}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}
