package pipeline

import (
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/dvloznov/fatura-itau/internal/domain"
	infra "github.com/dvloznov/fatura-itau/internal/infra/bigquery"
)

func newDocumentID() string {
	return uuid.NewString()
}

// toTransactionRows converts parsed records into warehouse rows.
func toTransactionRows(documentID, parsingRunID string, records []domain.CardTransaction, now time.Time) ([]*infra.TransactionRow, error) {
	rows := make([]*infra.TransactionRow, 0, len(records))
	for i, rec := range records {
		if !rec.Date.IsValid() {
			return nil, fmt.Errorf("transaction %d: invalid date %v", i, rec.Date)
		}
		row := &infra.TransactionRow{
			TransactionID:   uuid.NewString(),
			DocumentID:      documentID,
			ParsingRunID:    parsingRunID,
			TransactionDate: rec.Date,
			Establishment:   rec.Establishment,
			Amount:          rec.Amount.Rat(),
			ValueText:       rec.Value,
			Pass:            int64(rec.Pass),
			CreatedTS:       now,
		}
		if rec.Card != "" {
			row.Card = bigquery.NullString{StringVal: rec.Card, Valid: true}
		}
		if rec.Page > 0 {
			row.StatementPageNo = bigquery.NullInt64{Int64: int64(rec.Page), Valid: true}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
