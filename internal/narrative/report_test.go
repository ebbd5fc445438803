package narrative

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pft-analyzer-server/internal/domain"
)

func TestBuildReport(t *testing.T) {
	m := domain.Measurement{
		FEV1:     domain.Float(1.86),
		FEV1Pred: domain.Float(60),
		FEV1FVC:  domain.Float(56),
		DLCOPred: domain.Float(59),
	}
	result := &domain.InterpretationResult{
		Pattern:            domain.PatternObstructive,
		SpirometryFindings: []domain.Finding{{Tag: domain.TagObstructiveDefect, Values: values(domain.FEV1FVC, 56.0)}},
		VolumeFindings:     []domain.Finding{{Tag: domain.TagLungVolumesNotAvailable}},
		DiffusionFindings: []domain.Finding{
			{Tag: domain.TagReducedDiffusion, Values: values(domain.DLCOPred, 59.0)},
			{Tag: domain.TagDifferential, Items: []string{domain.DxEmphysemaCOPD, domain.DxAnemia}},
		},
		ImpressionLines: []domain.Finding{{Tag: domain.TagPatternSummary, Pattern: domain.PatternObstructive}},
	}
	generated := time.Date(2024, 3, 1, 10, 30, 0, 0, time.FixedZone("CET", 3600))

	report := BuildReport(m, result, generated)

	assert.True(t, strings.HasPrefix(report, "PULMONARY FUNCTION TEST INTERPRETATION\nGenerated: 2024-03-01 09:30 UTC\n"))
	assert.Contains(t, report, "  FEV1             1.86 L\n")
	assert.Contains(t, report, "  FEV1 % Pred      60%\n")
	assert.Contains(t, report, "  FEV1/FVC Ratio   56%\n")
	assert.NotContains(t, report, "FVC % Pred")
	assert.Contains(t, report, "PATTERN: Obstructive\n")
	assert.Contains(t, report, "SPIROMETRY\n  Obstructive Pattern: FEV1/FVC ratio is 56% (< 70%).\n")
	assert.Contains(t, report, "LUNG VOLUMES\n  Lung volume data not available.\n")
	assert.Contains(t, report, "  Differential diagnosis:\n    - Emphysema/COPD\n    - Anemia\n")
	assert.True(t, strings.HasSuffix(report, Disclaimer+"\n"))
	assert.NotContains(t, report, "insufficient data")
}

func TestBuildReport_Empty(t *testing.T) {
	result := &domain.InterpretationResult{Pattern: domain.PatternNormal, InsufficientData: true}

	report := BuildReport(domain.Measurement{}, result, time.Unix(0, 0))

	assert.Contains(t, report, "No values entered.")
	assert.Contains(t, report, "PATTERN: Normal\n(insufficient data)\n")
}

func TestWithDisclaimerAndFilename(t *testing.T) {
	assert.Equal(t, "Text.\n\nDisclaimer: "+Disclaimer, WithDisclaimer("  Text.\n"))
	assert.Equal(t, "pft_report_20240301_0930.txt", ReportFilename(time.Date(2024, 3, 1, 10, 30, 0, 0, time.FixedZone("CET", 3600))))
}
