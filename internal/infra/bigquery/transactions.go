package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

const transactionsTable = "card_transactions"

// TransactionRow is one reconciled statement line.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id" json:"transaction_id"`

	DocumentID   string `bigquery:"document_id" json:"document_id"`
	ParsingRunID string `bigquery:"parsing_run_id" json:"parsing_run_id"`

	TransactionDate civil.Date `bigquery:"transaction_date" json:"transaction_date"`
	Establishment   string     `bigquery:"establishment" json:"establishment"`

	Amount    *big.Rat `bigquery:"amount" json:"-"` // REQUIRED NUMERIC
	ValueText string   `bigquery:"value_text" json:"value"`

	Card            bigquery.NullString `bigquery:"card" json:"card,omitempty"`
	Pass            int64               `bigquery:"pass" json:"pass"`
	StatementPageNo bigquery.NullInt64  `bigquery:"statement_page_no" json:"statement_page_no,omitempty"`

	CreatedTS time.Time `bigquery:"created_ts" json:"created_ts"`
}

func newID() string {
	return uuid.NewString()
}

// InsertTransactions streams rows into card_transactions.
func (r *BigQueryDocumentRepository) InsertTransactions(ctx context.Context, rows []*TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}
	if err := r.table(transactionsTable).Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}
	return nil
}

// ListTransactionsByDocument returns the transactions of the most recent
// successful parsing run of documentID, in statement order.
func (r *BigQueryDocumentRepository) ListTransactionsByDocument(ctx context.Context, documentID string) ([]*TransactionRow, error) {
	q := r.client.Query(fmt.Sprintf(`
		WITH latest AS (
			SELECT parsing_run_id
			FROM %s
			WHERE document_id = @document_id
			  AND status = @status
			ORDER BY finished_ts DESC
			LIMIT 1
		)
		SELECT
			t.transaction_id,
			t.document_id,
			t.parsing_run_id,
			t.transaction_date,
			t.establishment,
			t.amount,
			t.value_text,
			t.card,
			t.pass,
			t.statement_page_no,
			t.created_ts
		FROM %s t
		INNER JOIN latest l
		  ON t.parsing_run_id = l.parsing_run_id
		ORDER BY t.transaction_date, t.establishment, t.amount
	`, r.qualified(parsingRunsTable), r.qualified(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "document_id", Value: documentID},
		{Name: "status", Value: RunStatusSuccess},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactionsByDocument: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactionsByDocument: iter next: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}
