package jobs

import (
	"context"
	"fmt"

	"github.com/dvloznov/fatura-itau/internal/logger"
)

// IngestFunc ingests one statement and reports what it produced.
type IngestFunc func(ctx context.Context, gcsURI string) (DocumentResult, error)

// NewConvertBatchHandler returns a JobHandler that ingests every URI of a
// ConvertBatchJob. Documents are isolated: one failure is recorded on its
// result and the rest continue. On retry only the failed URIs run again.
// The handler fails when any document failed.
func NewConvertBatchHandler(ingest IngestFunc) JobHandler {
	return func(ctx context.Context, job Job) error {
		batch, ok := job.(*ConvertBatchJob)
		if !ok {
			return fmt.Errorf("unsupported job type %q", job.GetType())
		}
		log := logger.FromContext(ctx).With().Str("job_id", batch.JobID).Logger()

		failed := 0
		for _, uri := range batch.GCSURIs {
			if prev, ok := batch.Result(uri); ok && prev.Succeeded() {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			res, err := ingest(logger.WithContext(ctx, log), uri)
			res.GCSURI = uri
			if err != nil {
				res.Error = err.Error()
				failed++
				log.Error().Err(err).Str("gcs_uri", uri).Msg("Document failed")
			}
			batch.SetResult(res)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d documents failed", failed, len(batch.GCSURIs))
		}
		return nil
	}
}
