package gcsuploader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{uri: "gs://faturas/statements/2025/marco.pdf", wantBucket: "faturas", wantObject: "statements/2025/marco.pdf"},
		{uri: "gs://faturas/marco.pdf", wantBucket: "faturas", wantObject: "marco.pdf"},
		{uri: "gs://faturas", wantErr: true},
		{uri: "gs://faturas/", wantErr: true},
		{uri: "s3://faturas/marco.pdf", wantErr: true},
		{uri: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantObject, object)
		})
	}
}

func TestExtractFilenameFromGCSURI(t *testing.T) {
	assert.Equal(t, "file.pdf", ExtractFilenameFromGCSURI("gs://bucket/folder/file.pdf"))
	assert.Equal(t, "bucket", ExtractFilenameFromGCSURI("gs://bucket"))
}

func TestObjectNaming(t *testing.T) {
	assert.Equal(t, "exports/abc/fatura.csv", ObjectName("exports/", "abc", "/tmp/fatura.csv"))
	assert.Equal(t, "gs://b/exports/abc/fatura.csv", ObjectURI("b", "/exports/abc/fatura.csv"))
}
