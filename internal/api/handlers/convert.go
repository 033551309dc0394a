package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/dvloznov/fatura-itau/internal/api/middleware"
	"github.com/dvloznov/fatura-itau/internal/domain"
	"github.com/dvloznov/fatura-itau/internal/export"
	"github.com/dvloznov/fatura-itau/internal/logger"
	"github.com/dvloznov/fatura-itau/internal/normalize"
	"github.com/dvloznov/fatura-itau/internal/pdftext"
	"github.com/dvloznov/fatura-itau/internal/pipeline"
	"github.com/dvloznov/fatura-itau/internal/statement"
)

// MaxUploadBytes caps the size of an uploaded statement.
const MaxUploadBytes = 32 << 20

// TotalHeader carries the statement total on convert responses.
const TotalHeader = "X-Total"

// Converter parses one uploaded statement.
type Converter interface {
	Convert(ctx context.Context, source string, data []byte) (*pipeline.Conversion, error)
}

// ConvertHandler handles the synchronous conversion endpoints.
type ConvertHandler struct {
	converter Converter
}

// NewConvertHandler creates a new convert handler.
func NewConvertHandler(converter Converter) *ConvertHandler {
	return &ConvertHandler{converter: converter}
}

// Convert handles POST /api/convert?format=csv|tsv|xlsx
func (h *ConvertHandler) Convert(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, ok := h.convertUpload(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, []export.Document{conv.Document}, export.Options{}); err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("Failed to render export")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to render export")
		return
	}

	name := export.OutputName(conv.Document.Source, format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set(TotalHeader, normalize.FormatValue(export.Total(conv.Document)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// PreviewRecord is one row of a preview response.
type PreviewRecord struct {
	Data            string `json:"data"`
	Estabelecimento string `json:"estabelecimento"`
	Valor           string `json:"valor"`
	Card            string `json:"card,omitempty"`
	Pass            int    `json:"pass"`
}

// PreviewResponse is the body of POST /api/preview.
type PreviewResponse struct {
	Source  string            `json:"source"`
	DueDate string            `json:"due_date"`
	Records []PreviewRecord   `json:"records"`
	Count   int               `json:"count"`
	Total   string            `json:"total"`
	Taxes   map[string]string `json:"taxes,omitempty"`
	Stats   statement.Stats   `json:"stats"`
}

// Preview handles POST /api/preview
func (h *ConvertHandler) Preview(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.convertUpload(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, newPreviewResponse(conv))
}

func newPreviewResponse(conv *pipeline.Conversion) PreviewResponse {
	resp := PreviewResponse{
		Source:  conv.Document.Source,
		DueDate: domain.FormatDate(conv.Result.DueDate),
		Records: make([]PreviewRecord, 0, len(conv.Document.Records)),
		Count:   len(conv.Document.Records),
		Total:   normalize.FormatValue(export.Total(conv.Document)),
		Stats:   conv.Result.Stats,
	}
	for _, rec := range conv.Document.Records {
		resp.Records = append(resp.Records, PreviewRecord{
			Data:            rec.DateString(),
			Estabelecimento: rec.Establishment,
			Valor:           rec.Value,
			Card:            rec.Card,
			Pass:            rec.Pass,
		})
	}
	if len(conv.Result.Taxes) > 0 {
		resp.Taxes = make(map[string]string, len(conv.Result.Taxes))
		for card, v := range conv.Result.Taxes {
			resp.Taxes[card] = normalize.FormatValue(v)
		}
	}
	return resp
}

// convertUpload reads the multipart "file" field and converts it. On failure
// it writes the error response and returns false.
func (h *ConvertHandler) convertUpload(w http.ResponseWriter, r *http.Request) (*pipeline.Conversion, bool) {
	log := logger.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "File too large")
			return nil, false
		}
		middleware.WriteError(w, http.StatusBadRequest, "Multipart field \"file\" is required")
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read upload")
		return nil, false
	}

	source := filepath.Base(header.Filename)
	conv, err := h.converter.Convert(r.Context(), source, data)
	if err != nil {
		status, msg := conversionError(err)
		log.Warn().Err(err).Str("source", source).Int("status", status).Msg("Conversion failed")
		middleware.WriteError(w, status, msg)
		return nil, false
	}
	return conv, true
}

func conversionError(err error) (int, string) {
	switch {
	case errors.Is(err, pdftext.ErrEncrypted):
		return http.StatusUnprocessableEntity, "PDF is password protected"
	case errors.Is(err, statement.ErrNoDueDate):
		return http.StatusUnprocessableEntity, "Statement due date not found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "Request cancelled"
	default:
		return http.StatusUnprocessableEntity, fmt.Sprintf("Could not read statement: %v", err)
	}
}
