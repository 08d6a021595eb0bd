package reporting

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/guardops/internal/domain/models"
	"github.com/mamadbah2/guardops/internal/service/finance"
)

// Workbook sheet names.
const (
	SheetLedger   = "Lancamentos"
	SheetCashFlow = "FluxoDeCaixa"
)

var ledgerHeaders = []string{"Data", "Descrição", "Categoria", "Origem", "Tipo", "Status", "Valor"}

// ExportWorkbook renders the ledger and cash flow of q as an xlsx document.
func (s *Service) ExportWorkbook(q finance.Query) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetLedger); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	ledger := s.finance.Ledger(q)
	if err := writeLedger(f, ledger); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(SheetCashFlow); err != nil {
		return nil, fmt.Errorf("create cash flow sheet: %w", err)
	}
	if err := writeRows(f, SheetCashFlow, cashFlowRows(s.finance.CashFlow(q))); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Debug("workbook exported")
	return buf.Bytes(), nil
}

func writeLedger(f *excelize.File, ledger finance.Ledger) error {
	rows := make([][]interface{}, 0, len(ledger.Items)+5)
	header := make([]interface{}, len(ledgerHeaders))
	for i, h := range ledgerHeaders {
		header[i] = h
	}
	rows = append(rows, header)

	for _, item := range ledger.Items {
		rows = append(rows, []interface{}{
			item.Date.Format(models.DateLayout),
			item.Description,
			item.Category,
			item.SourceName,
			typeLabel(item),
			string(item.Status),
			item.Amount.InexactFloat64(),
		})
	}

	rows = append(rows,
		[]interface{}{},
		[]interface{}{"Entradas", ledger.Totals.Income.InexactFloat64()},
		[]interface{}{"Saídas", ledger.Totals.Expense.InexactFloat64()},
		[]interface{}{"Saldo", ledger.Totals.Balance.InexactFloat64()},
	)
	return writeRows(f, SheetLedger, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
