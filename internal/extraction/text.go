package extraction

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/pft-analyzer-server/internal/domain"
)

// ErrNoValuesFound is returned when a strategy ran but recognized nothing.
var ErrNoValuesFound = errors.New("no PFT values found")

// rowPattern recognizes the label of one report row. observed and percent
// name the parameters the row's columns feed; percent may be empty.
type rowPattern struct {
	label    *regexp.Regexp
	observed domain.Parameter
	percent  domain.Parameter
}

// Order matters: the ratio row has to be tried before the FEV1 row.
var rowPatterns = []rowPattern{
	{regexp.MustCompile(`(?i)^\s*FEV\s*1\s*(?:/|%|_)\s*FVC(?:\s*%)?`), domain.FEV1FVC, ""},
	{regexp.MustCompile(`(?i)^\s*FEV\s*1(?:\b|_)`), domain.FEV1, domain.FEV1Pred},
	{regexp.MustCompile(`(?i)^\s*FVC(?:\b|_)`), domain.FVC, domain.FVCPred},
	{regexp.MustCompile(`(?i)^\s*TLC(?:\b|_)`), domain.TLC, domain.TLCPred},
	{regexp.MustCompile(`(?i)^\s*RV(?:\b|_)`), domain.RV, domain.RVPred},
	{regexp.MustCompile(`(?i)^\s*DL\s*CO(?:\b|_)`), domain.DLCO, domain.DLCOPred},
	{regexp.MustCompile(`(?i)^\s*FEF\s*25\s*[-_]?\s*75(?:\b|_)`), domain.FEF2575, ""},
}

var (
	numberPattern  = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	percentPrefix  = regexp.MustCompile(`(?i)^[\s_:(]*(?:%|percent|pct)?\s*pred(?:icted)?\)?`)
	percentSpacing = regexp.MustCompile(`%\s+`)
)

// Column header tokens, lower-cased with "% pred" collapsed to "%pred".
var (
	observedColumns = map[string]bool{"pre": true, "actual": true, "observed": true, "obs": true, "meas": true, "measured": true, "best": true, "value": true}
	percentColumns  = map[string]bool{"%pred": true, "%ref": true, "%predicted": true, "pct": true}
	otherColumns    = map[string]bool{"ref": true, "pred": true, "predicted": true, "lln": true, "uln": true, "z": true, "z-score": true, "post": true, "%chg": true, "%change": true}
)

// columnLayout records where the observed and % predicted values sit among
// a row's numbers. -1 means unknown.
type columnLayout struct {
	observed int
	percent  int
}

var defaultLayout = columnLayout{observed: 0, percent: 2}

// TextPatternExtractor reads OCR or copied report text line by line. Each
// row label is followed by its numbers; a column header, when present,
// decides which number is observed and which is % predicted.
type TextPatternExtractor struct{}

// NewTextPatternExtractor creates a new text pattern extractor
func NewTextPatternExtractor() *TextPatternExtractor {
	return &TextPatternExtractor{}
}

// Name implements Extractor
func (e *TextPatternExtractor) Name() string { return "text-patterns" }

// Supports implements Extractor
func (e *TextPatternExtractor) Supports(doc domain.Document) bool { return doc.IsText() }

// Extract implements Extractor
func (e *TextPatternExtractor) Extract(ctx context.Context, doc domain.Document) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	values := ParseReportText(string(doc.Data))
	if len(values) == 0 {
		return nil, ErrNoValuesFound
	}
	return values, nil
}

// ParseReportText extracts raw values from report text. The first value seen
// for a parameter wins, so a pre-bronchodilator column listed before the
// post-bronchodilator one is preferred.
func ParseReportText(text string) map[string]any {
	values := make(map[string]any)
	layout := defaultLayout

	set := func(p domain.Parameter, v float64) {
		if p == "" {
			return
		}
		if _, seen := values[string(p)]; !seen {
			values[string(p)] = v
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if parseRow(line, layout, set) {
			continue
		}
		if header, ok := parseHeader(line); ok {
			layout = header
		}
	}

	return values
}

// parseRow reads one labelled row and reports whether the line carried a
// recognized label.
func parseRow(line string, layout columnLayout, set func(domain.Parameter, float64)) bool {
	for _, row := range rowPatterns {
		loc := row.label.FindStringIndex(line)
		if loc == nil {
			continue
		}
		rest := line[loc[1]:]
		if strings.HasPrefix(strings.TrimSpace(rest), "/") {
			// RV/TLC, DLCO/VA and similar derived rows
			return true
		}

		if m := percentPrefix.FindStringIndex(rest); m != nil {
			if nums := numbers(rest[m[1]:]); len(nums) > 0 {
				set(row.percent, nums[0])
			}
			return true
		}

		nums := numbers(rest)
		if len(nums) == 0 {
			return true
		}
		observed := nums[0]
		if layout.observed >= 0 && layout.observed < len(nums) {
			observed = nums[layout.observed]
		}
		set(row.observed, observed)
		if row.percent != "" && layout.percent >= 0 && layout.percent < len(nums) {
			set(row.percent, nums[layout.percent])
		}
		return true
	}
	return false
}

// parseHeader recognizes a column header line such as
// "Parameter  Ref  Pre  % Pred".
func parseHeader(line string) (columnLayout, bool) {
	normalized := percentSpacing.ReplaceAllString(strings.ToLower(line), "%")
	layout := columnLayout{observed: -1, percent: -1}
	column := 0
	for _, token := range strings.Fields(normalized) {
		switch {
		case observedColumns[token]:
			if layout.observed < 0 {
				layout.observed = column
			}
		case percentColumns[token]:
			if layout.percent < 0 {
				layout.percent = column
			}
		case otherColumns[token]:
		default:
			continue
		}
		column++
	}
	if column < 2 || (layout.observed < 0 && layout.percent < 0) {
		return columnLayout{}, false
	}
	return layout, true
}

func numbers(s string) []float64 {
	var out []float64
	for _, match := range numberPattern.FindAllString(s, -1) {
		v, err := strconv.ParseFloat(match, 64)
		if err == nil {
			out = append(out, v)
		}
	}
	return out
}
