package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/fatura-itau/internal/logger"
)

func TestConvertBatchHandler(t *testing.T) {
	ctx := logger.WithContext(context.Background(), zerolog.Nop())

	var calls []string
	brokenOnce := true
	ingest := func(ctx context.Context, uri string) (DocumentResult, error) {
		calls = append(calls, uri)
		if uri == "gs://b/broken.pdf" && brokenOnce {
			brokenOnce = false
			return DocumentResult{}, errors.New("no due date")
		}
		return DocumentResult{DocumentID: "doc-" + uri[len(uri)-5:], Records: 3}, nil
	}
	handler := NewConvertBatchHandler(ingest)

	job := &ConvertBatchJob{JobID: "j", GCSURIs: []string{"gs://b/a.pdf", "gs://b/broken.pdf", "gs://b/c.pdf"}}

	err := handler(ctx, job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 documents failed")
	assert.Equal(t, []string{"gs://b/a.pdf", "gs://b/broken.pdf", "gs://b/c.pdf"}, calls)

	res, ok := job.Result("gs://b/broken.pdf")
	require.True(t, ok)
	assert.Equal(t, "no due date", res.Error)
	assert.False(t, res.Succeeded())

	c, _ := job.Result("gs://b/c.pdf")
	assert.True(t, c.Succeeded(), "documents after a failure still run")

	// Retry only runs the failed document.
	calls = nil
	require.NoError(t, handler(ctx, job))
	assert.Equal(t, []string{"gs://b/broken.pdf"}, calls)
	assert.Len(t, job.Documents, 3)

	res, _ = job.Result("gs://b/broken.pdf")
	assert.True(t, res.Succeeded())
}

type otherJob struct{}

func (otherJob) GetID() string        { return "x" }
func (otherJob) GetType() JobType     { return "other" }
func (otherJob) GetStatus() JobStatus { return JobStatusPending }

func TestConvertBatchHandler_RejectsOtherJobs(t *testing.T) {
	handler := NewConvertBatchHandler(nil)
	assert.Error(t, handler(context.Background(), otherJob{}))
}
