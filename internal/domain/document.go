package domain

// Supported document MIME types
const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEWebP = "image/webp"
	MIMEPDF  = "application/pdf"
	MIMEText = "text/plain"
)

// Document is an uploaded PFT report handed to the extraction collaborator.
type Document struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

// IsImage reports whether the document is a raster image.
func (d Document) IsImage() bool {
	switch d.MIMEType {
	case MIMEJPEG, MIMEPNG, MIMEWebP:
		return true
	default:
		return false
	}
}

// IsPDF reports whether the document is a PDF.
func (d Document) IsPDF() bool {
	return d.MIMEType == MIMEPDF
}

// IsText reports whether the document is already extracted text.
func (d Document) IsText() bool {
	return d.MIMEType == MIMEText
}

// ExtractionAttempt records one strategy's try at a document.
type ExtractionAttempt struct {
	Strategy string `json:"strategy"`
	Skipped  bool   `json:"skipped,omitempty"`
	Error    string `json:"error,omitempty"`
	Fields   int    `json:"fields"`
}

// ExtractionOutcome is the result of a successful extraction chain run.
type ExtractionOutcome struct {
	Strategy    string              `json:"strategy"`
	Values      map[string]any      `json:"values"`
	Measurement Measurement         `json:"measurement"`
	Attempts    []ExtractionAttempt `json:"attempts"`
}
