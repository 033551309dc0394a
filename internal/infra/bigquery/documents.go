package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const documentsTable = "documents"

// DocumentRow is one uploaded statement PDF.
type DocumentRow struct {
	DocumentID string `bigquery:"document_id"` // REQUIRED
	GCSURI     string `bigquery:"gcs_uri"`     // REQUIRED

	DocumentType string `bigquery:"document_type"` // REQUIRED
	SourceSystem string `bigquery:"source_system"` // NULLABLE

	UploadTS time.Time `bigquery:"upload_ts"` // REQUIRED

	OriginalFilename string `bigquery:"original_filename"` // NULLABLE
	FileMimeType     string `bigquery:"file_mime_type"`    // NULLABLE
	ChecksumSHA256   string `bigquery:"checksum_sha256"`   // NULLABLE

	Metadata bigquery.NullJSON `bigquery:"metadata"` // NULLABLE
}

// InsertDocument streams a single DocumentRow into the documents table.
func (r *BigQueryDocumentRepository) InsertDocument(ctx context.Context, row *DocumentRow) error {
	if err := r.table(documentsTable).Inserter().Put(ctx, row); err != nil {
		return fmt.Errorf("InsertDocument: inserting row: %w", err)
	}
	return nil
}

// FindDocumentByChecksum retrieves a document by its SHA-256 checksum.
// Returns nil if no document with the given checksum exists.
func (r *BigQueryDocumentRepository) FindDocumentByChecksum(ctx context.Context, checksum string) (*DocumentRow, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT
			document_id,
			gcs_uri,
			document_type,
			source_system,
			upload_ts,
			original_filename,
			file_mime_type,
			checksum_sha256,
			metadata
		FROM %s
		WHERE checksum_sha256 = @checksum
		ORDER BY upload_ts
		LIMIT 1
	`, r.qualified(documentsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "checksum", Value: checksum},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindDocumentByChecksum: reading query: %w", err)
	}

	var row DocumentRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindDocumentByChecksum: reading row: %w", err)
	}
	return &row, nil
}
