package pipeline

// Default values for document records.
const (
	// DefaultSourceSystem is the issuer whose statement layout the parser reads.
	DefaultSourceSystem = "ITAU"

	// DefaultDocumentType is the document type for uploaded files.
	DefaultDocumentType = "CREDIT_CARD_STATEMENT"

	// PDFMimeType is recorded on documents fetched from storage.
	PDFMimeType = "application/pdf"
)
