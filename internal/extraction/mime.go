package extraction

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/pft-analyzer-server/internal/domain"
)

var extensionTypes = map[string]string{
	".jpg":  domain.MIMEJPEG,
	".jpeg": domain.MIMEJPEG,
	".png":  domain.MIMEPNG,
	".webp": domain.MIMEWebP,
	".pdf":  domain.MIMEPDF,
	".txt":  domain.MIMEText,
}

// DetectDocument builds a document from an upload. The declared type wins
// when it is specific; otherwise the type is sniffed from the content and
// finally guessed from the file extension.
func DetectDocument(name, declared string, data []byte) (domain.Document, error) {
	mimeType := normalizeMIME(declared)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = normalizeMIME(http.DetectContentType(data))
	}
	if !isSupported(mimeType) {
		if guess, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]; ok {
			mimeType = guess
		}
	}
	if !isSupported(mimeType) {
		return domain.Document{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedDocument, mimeType)
	}
	if len(data) == 0 {
		return domain.Document{}, fmt.Errorf("%w: empty upload", domain.ErrUnsupportedDocument)
	}

	return domain.Document{Name: name, MIMEType: mimeType, Data: data}, nil
}

func normalizeMIME(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return strings.ToLower(value)
	}
	if mediaType == "image/jpg" {
		return domain.MIMEJPEG
	}
	return mediaType
}

func isSupported(mimeType string) bool {
	switch mimeType {
	case domain.MIMEJPEG, domain.MIMEPNG, domain.MIMEWebP, domain.MIMEPDF, domain.MIMEText:
		return true
	default:
		return false
	}
}
