package amqp

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AlexandroGranja/Assistente-Financeiro/internal/core"
)

// ExpenseRecordedMessage carries a registered expense to downstream
// automations (notification relays and the like).
type ExpenseRecordedMessage struct {
	ID         int64           `json:"id"`
	Phone      string          `json:"phone"`
	Descricao  string          `json:"descricao"`
	Valor      decimal.Decimal `json:"valor"`
	Categoria  string          `json:"categoria"`
	RecordedAt time.Time       `json:"recorded_at"`
}

func NewExpenseRecordedMessage(phone string, e core.Expense) *ExpenseRecordedMessage {
	return &ExpenseRecordedMessage{
		ID:         e.ID,
		Phone:      phone,
		Descricao:  e.Descricao,
		Valor:      e.Valor,
		Categoria:  e.Categoria,
		RecordedAt: e.Data,
	}
}

func (m *ExpenseRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseRecordedMessageFromJSON(data []byte) (*ExpenseRecordedMessage, error) {
	var msg ExpenseRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
