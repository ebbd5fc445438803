// Package extraction turns uploaded PFT reports into raw key/value maps. It
// never produces a domain.Measurement itself; values are cleaned up by the
// measurement parser before they reach the interpreter.
package extraction

import (
	"context"

	"github.com/pft-analyzer-server/internal/domain"
)

// Extractor is one extraction strategy.
type Extractor interface {
	// Name identifies the strategy in logs and attempt records.
	Name() string
	// Supports reports whether the strategy can read the document type.
	Supports(doc domain.Document) bool
	// Extract returns the raw values found in the document.
	Extract(ctx context.Context, doc domain.Document) (map[string]any, error)
}
