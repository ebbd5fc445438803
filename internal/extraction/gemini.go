package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"github.com/pft-analyzer-server/internal/domain"
	"github.com/pft-analyzer-server/internal/gemini"
)

// extractionPrompt asks a vision model for the fixed key set. Missing values
// come back as 0.0, which the measurement parser reads as "not present".
const extractionPrompt = `You are a medical data extraction assistant.
Analyze this Pulmonary Function Test (PFT) report.
Extract the following values specifically. If a value is not present, return 0.0.

Return ONLY a raw JSON object (no markdown formatting) with these exact keys:
{
  "FEV1": float (Liters, actual/observed),
  "FEV1_pred": float (% predicted),
  "FVC": float (Liters, actual/observed),
  "FVC_pred": float (% predicted),
  "FEV1_FVC": float (ratio percentage, e.g. 75.5 for 75.5%),
  "TLC": float (Liters, actual/observed),
  "TLC_pred": float (% predicted),
  "RV": float (Liters, actual/observed),
  "RV_pred": float (% predicted),
  "DLCO": float (actual/observed),
  "DLCO_pred": float (% predicted),
  "FEF25_75": float (L/s, actual/observed)
}

Look closely at the columns. Usually labeled "Pre", "Observed", "Actual" vs "Ref", "Pred", "%Pred".
Use pre-bronchodilator values when both pre and post are reported.`

// GeminiExtractor reads a report image, PDF or text with a Gemini model.
type GeminiExtractor struct {
	generator gemini.Generator
	model     string
}

// NewGeminiExtractor creates an extractor bound to one model name.
func NewGeminiExtractor(generator gemini.Generator, model string) *GeminiExtractor {
	return &GeminiExtractor{generator: generator, model: model}
}

// Name implements Extractor
func (e *GeminiExtractor) Name() string { return "gemini:" + e.model }

// Supports implements Extractor
func (e *GeminiExtractor) Supports(doc domain.Document) bool {
	return doc.IsImage() || doc.IsPDF() || doc.IsText()
}

// Extract implements Extractor
func (e *GeminiExtractor) Extract(ctx context.Context, doc domain.Document) (map[string]any, error) {
	var content genai.Part = genai.Blob{MIMEType: doc.MIMEType, Data: doc.Data}
	if doc.IsText() {
		content = genai.Text(string(doc.Data))
	}

	reply, err := e.generator.Generate(ctx, gemini.Request{
		Model: e.model,
		Parts: []genai.Part{genai.Text(extractionPrompt), content},
		JSON:  true,
	})
	if err != nil {
		return nil, err
	}

	return decodeValues(reply)
}

// decodeValues parses a model reply. A reply in which no recognized key
// carries a non-zero number is the prompt's "nothing found" answer.
func decodeValues(reply string) (map[string]any, error) {
	var values map[string]any
	if err := json.Unmarshal([]byte(gemini.StripCodeFences(reply)), &values); err != nil {
		return nil, fmt.Errorf("decoding extraction reply: %w", err)
	}
	for key, raw := range values {
		if _, ok := domain.ResolveParameter(key); ok && isMeasured(raw) {
			return values, nil
		}
	}
	return nil, ErrNoValuesFound
}

func isMeasured(raw any) bool {
	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(n), "%"), 64)
		if err != nil {
			return false
		}
		v = f
	default:
		return false
	}
	return v != 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
