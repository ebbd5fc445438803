package narrative

import (
	"fmt"
	"strings"
	"time"

	"github.com/pft-analyzer-server/internal/domain"
)

// Disclaimer is appended to every report and AI opinion.
const Disclaimer = "This interpretation is generated by software to assist clinicians. " +
	"It is not a medical device and does not replace professional medical judgement. " +
	"Verify all values against the original report and the clinical presentation."

// WithDisclaimer appends the disclaimer to free text.
func WithDisclaimer(text string) string {
	return strings.TrimSpace(text) + "\n\nDisclaimer: " + Disclaimer
}

// ReportFilename names the downloadable report file.
func ReportFilename(generatedAt time.Time) string {
	return "pft_report_" + generatedAt.UTC().Format("20060102_1504") + ".txt"
}

// BuildReport renders the plain-text report for one measurement and its
// interpretation.
func BuildReport(m domain.Measurement, result *domain.InterpretationResult, generatedAt time.Time) string {
	r := NewRenderer(Plain)
	var b strings.Builder

	b.WriteString("PULMONARY FUNCTION TEST INTERPRETATION\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", generatedAt.UTC().Format("2006-01-02 15:04 MST"))

	b.WriteString("MEASUREMENTS\n")
	values := m.Values()
	if len(values) == 0 {
		b.WriteString("  No values entered.\n")
	}
	for _, p := range domain.AllParameters() {
		if v, ok := values[p]; ok {
			fmt.Fprintf(&b, "  %-16s %s\n", p.Label(), withUnit(v, p.Unit()))
		}
	}

	fmt.Fprintf(&b, "\nPATTERN: %s\n", result.Pattern)
	if result.InsufficientData {
		b.WriteString("(insufficient data)\n")
	}

	writeSection(&b, r, "SPIROMETRY", result.SpirometryFindings)
	writeSection(&b, r, "LUNG VOLUMES", result.VolumeFindings)
	writeSection(&b, r, "DIFFUSION CAPACITY", result.DiffusionFindings)
	writeSection(&b, r, "IMPRESSION", result.ImpressionLines)

	b.WriteString("\nDISCLAIMER\n")
	b.WriteString(Disclaimer)
	b.WriteString("\n")
	return b.String()
}

func writeSection(b *strings.Builder, r *Renderer, title string, findings []domain.Finding) {
	fmt.Fprintf(b, "\n%s\n", title)
	for _, f := range findings {
		lines := r.Lines(f)
		fmt.Fprintf(b, "  %s\n", lines[0])
		for _, line := range lines[1:] {
			fmt.Fprintf(b, "    %s\n", line)
		}
	}
}

func withUnit(v float64, unit string) string {
	switch unit {
	case "":
		return FormatValue(v)
	case "%":
		return FormatValue(v) + "%"
	default:
		return FormatValue(v) + " " + unit
	}
}
