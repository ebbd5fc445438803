// Package narrative turns structured interpretation findings into text and
// builds the downloadable report. The interpretation rules never emit
// formatting; everything a reader sees is produced here.
package narrative

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pft-analyzer-server/internal/domain"
)

// Style selects how severity and headings are emphasized.
type Style int

const (
	// Plain renders unformatted text for reports and logs.
	Plain Style = iota
	// Markdown bolds headline findings and severities.
	Markdown
)

// ParseStyle maps "plain" or "markdown" to a Style.
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "plain", "text":
		return Plain, nil
	case "markdown", "md":
		return Markdown, nil
	default:
		return Plain, fmt.Errorf("unknown narrative style %q", s)
	}
}

// Renderer converts findings into sentences.
type Renderer struct {
	style Style
}

// NewRenderer creates a renderer for the given style.
func NewRenderer(style Style) *Renderer {
	return &Renderer{style: style}
}

// Section renders every finding of one result section, one entry per line.
func (r *Renderer) Section(findings []domain.Finding) []string {
	lines := make([]string, 0, len(findings))
	for _, f := range findings {
		lines = append(lines, r.Finding(f))
	}
	return lines
}

// Finding renders one finding.
func (r *Renderer) Finding(f domain.Finding) string {
	switch f.Tag {
	case domain.TagMixedDefect:
		return r.headline("Mixed Pattern") + fmt.Sprintf(": FEV1/FVC %s (< 70%%) with FVC %s predicted (< 80%%).",
			pct(f, domain.FEV1FVC), pct(f, domain.FVCPred))
	case domain.TagObstructiveDefect:
		return r.headline("Obstructive Pattern") + fmt.Sprintf(": FEV1/FVC ratio is %s (< 70%%).", pct(f, domain.FEV1FVC))
	case domain.TagRestrictivePattern:
		return r.headline("Restrictive Pattern Suggested") + fmt.Sprintf(": FVC is %s predicted (< 80%%).", pct(f, domain.FVCPred))
	case domain.TagPreservedRatio:
		return fmt.Sprintf("FEV1/FVC ratio is preserved at %s.", pct(f, domain.FEV1FVC))
	case domain.TagNormalSpirometry:
		return r.headline("Normal Spirometry") + ": no obstructive or restrictive defect."
	case domain.TagSpirometryNotAvailable:
		return "Spirometry values not available."
	case domain.TagSeverity:
		return fmt.Sprintf("Severity (%s): %s", f.Parameter.Label(), r.severity(f.Severity))

	case domain.TagLungVolumesNotAvailable:
		return "Lung volume data not available."
	case domain.TagRestrictionConfirmed:
		return r.headline("Restriction Confirmed") + fmt.Sprintf(": TLC is %s predicted (< 80%%).", pct(f, domain.TLCPred))
	case domain.TagHyperinflation:
		return r.headline("Hyperinflation") + fmt.Sprintf(": TLC is %s predicted (> 120%%).", pct(f, domain.TLCPred))
	case domain.TagNormalLungVolumes:
		return fmt.Sprintf("Normal lung volumes: TLC is %s predicted.", pct(f, domain.TLCPred))
	case domain.TagAirTrapping:
		return r.headline("Air Trapping") + fmt.Sprintf(": RV is %s predicted (> 120%%).", pct(f, domain.RVPred))
	case domain.TagDecreasedRV:
		return fmt.Sprintf("Decreased RV: %s predicted (< 80%%).", pct(f, domain.RVPred))
	case domain.TagNormalRV:
		return fmt.Sprintf("Normal RV: %s predicted.", pct(f, domain.RVPred))

	case domain.TagDiffusionNotAvailable:
		return "DLCO not available."
	case domain.TagReducedDiffusion:
		return r.headline("Reduced Diffusion Capacity") + fmt.Sprintf(": DLCO is %s predicted (< 80%%).", pct(f, domain.DLCOPred))
	case domain.TagIncreasedDiffusion:
		return r.headline("Increased Diffusion Capacity") + fmt.Sprintf(": DLCO is %s predicted (> 120%%).", pct(f, domain.DLCOPred))
	case domain.TagNormalDiffusion:
		return fmt.Sprintf("Normal diffusion capacity: DLCO is %s predicted.", pct(f, domain.DLCOPred))
	case domain.TagDifferential:
		return "Consider: " + strings.Join(f.Items, ", ") + "."

	case domain.TagPatternSummary:
		return r.summary(f)
	case domain.TagInsufficientData:
		return "Insufficient data to classify; enter spirometry, lung volume or DLCO values."
	case domain.TagParenchymalInvolvement:
		return fmt.Sprintf("Reduced DLCO (%s predicted) with obstruction suggests emphysema or parenchymal involvement.", pct(f, domain.DLCOPred))
	case domain.TagRecommendations:
		return "Recommendations: " + strings.Join(f.Items, "; ") + "."
	default:
		return string(f.Tag)
	}
}

// Lines renders the finding as a heading line followed by list items, for
// findings that carry an item list. Other findings render as a single line.
func (r *Renderer) Lines(f domain.Finding) []string {
	if len(f.Items) == 0 {
		return []string{r.Finding(f)}
	}
	head := "Differential diagnosis:"
	if f.Tag == domain.TagRecommendations {
		head = "Recommendations:"
	}
	lines := []string{r.headline(head)}
	for _, item := range f.Items {
		lines = append(lines, "- "+item)
	}
	return lines
}

func (r *Renderer) summary(f domain.Finding) string {
	text := f.Pattern.String() + " Pattern"
	if f.Severity != "" {
		text = fmt.Sprintf("%s %s (%s %s)",
			r.severity(f.Severity), strings.ToLower(f.Pattern.Description()), f.Parameter.Label(), pct(f, f.Parameter))
	}
	return r.headline("Impression") + ": " + text
}

func (r *Renderer) headline(s string) string {
	if r.style == Markdown {
		return "**" + s + "**"
	}
	return s
}

func (r *Renderer) severity(s domain.Severity) string {
	if r.style == Markdown && s.Tier() != domain.TierNormal {
		return "**" + s.String() + "**"
	}
	return s.String()
}

func pct(f domain.Finding, p domain.Parameter) string {
	v, ok := f.Value(p)
	if !ok {
		return "n/a"
	}
	return FormatValue(v) + "%"
}

// FormatValue prints a measurement with at most two decimals and no
// trailing zeros.
func FormatValue(v float64) string {
	return strconv.FormatFloat(roundTo(v, 2), 'f', -1, 64)
}

func roundTo(v float64, places int) float64 {
	s := strconv.FormatFloat(v, 'f', places, 64)
	out, _ := strconv.ParseFloat(s, 64)
	return out
}

// Sections holds the rendered text of every result section.
type Sections struct {
	Spirometry  []string `json:"spirometry"`
	LungVolumes []string `json:"lung_volumes"`
	Diffusion   []string `json:"diffusion"`
	Impression  []string `json:"impression"`
}

// Render renders all sections of result. Findings with item lists expand to
// a heading followed by one line per item.
func (r *Renderer) Render(result *domain.InterpretationResult) Sections {
	return Sections{
		Spirometry:  r.expand(result.SpirometryFindings),
		LungVolumes: r.expand(result.VolumeFindings),
		Diffusion:   r.expand(result.DiffusionFindings),
		Impression:  r.expand(result.ImpressionLines),
	}
}

func (r *Renderer) expand(findings []domain.Finding) []string {
	lines := make([]string, 0, len(findings))
	for _, f := range findings {
		lines = append(lines, r.Lines(f)...)
	}
	return lines
}
