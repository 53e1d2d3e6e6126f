package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/xuri/excelize/v2"

	"github.com/AlexandroGranja/Assistente-Financeiro/internal/core"
)

const exportSheet = "Gastos"

func (s *Server) handleExportarGastos(w http.ResponseWriter, r *http.Request) {
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

	expenses, err := s.assistant.Expenses(r.Context(), phone)
	if err != nil {
		slog.ErrorContext(r.Context(), "Expense export failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "Não foi possível exportar seus gastos agora.",
		})
		return
	}

	f, err := buildWorkbook(expenses)
	if err != nil {
		slog.ErrorContext(r.Context(), "Workbook build failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "Não foi possível exportar seus gastos agora.",
		})
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="gastos.xlsx"`)
	if err := f.Write(w); err != nil {
		slog.ErrorContext(r.Context(), "Workbook write failed", "error", err)
	}
}

func buildWorkbook(expenses []core.Expense) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("remove default sheet: %w", err)
	}

	headers := []string{"ID", "Descrição", "Valor (R$)", "Categoria", "Data"}
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			f.Close()
			return nil, fmt.Errorf("set header: %w", err)
		}
	}

	for i, e := range expenses {
		row := i + 2
		valor, _ := e.Valor.Float64()
		values := []any{e.ID, e.Descricao, valor, e.Categoria, e.Data.Format("2006-01-02 15:04")}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("data cell: %w", err)
			}
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("set cell: %w", err)
			}
		}
	}

	return f, nil
}
