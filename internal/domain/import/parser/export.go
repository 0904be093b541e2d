package parser

import (
	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/model"
)

type exportRow struct {
	Date        string `csv:"date"`
	Description string `csv:"description"`
	Amount      string `csv:"amount"`
	Direction   string `csv:"direction"`
}

// ExportCSV renders parsed transactions as CSV so users can review an import.
func ExportCSV(transactions []model.ParsedTransaction) ([]byte, error) {
	rows := make([]*exportRow, 0, len(transactions))
	for _, tx := range transactions {
		rows = append(rows, &exportRow{
			Date:        tx.Date.Format("2006-01-02"),
			Description: tx.Description,
			Amount:      tx.Amount.StringFixed(2),
			Direction:   string(tx.Direction),
		})
	}
	return gocsv.MarshalBytes(&rows)
}
