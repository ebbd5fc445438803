package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pft-analyzer-server/internal/domain"
)

func f(v float64) *float64 { return domain.Float(v) }

func findingTags(findings []domain.Finding) []domain.FindingTag {
	tags := make([]domain.FindingTag, 0, len(findings))
	for _, fd := range findings {
		tags = append(tags, fd.Tag)
	}
	return tags
}

func TestDetectPattern(t *testing.T) {
	tests := []struct {
		name     string
		fev1FVC  *float64
		fev1Pred *float64
		fvcPred  *float64
		pattern  domain.Pattern
		tags     []domain.FindingTag
	}{
		{
			name:    "Both thresholds breached is mixed",
			fev1FVC: f(65), fvcPred: f(75),
			pattern: domain.PatternMixed,
			tags:    []domain.FindingTag{domain.TagMixedDefect},
		},
		{
			name:    "Low ratio with FVC missing is obstructive",
			fev1FVC: f(65),
			pattern: domain.PatternObstructive,
			tags:    []domain.FindingTag{domain.TagObstructiveDefect},
		},
		{
			name:    "Low ratio with normal FVC is obstructive",
			fev1FVC: f(55), fev1Pred: f(45), fvcPred: f(92),
			pattern: domain.PatternObstructive,
			tags:    []domain.FindingTag{domain.TagObstructiveDefect, domain.TagSeverity},
		},
		{
			name:    "Preserved ratio with low FVC is restrictive",
			fev1FVC: f(75), fvcPred: f(70),
			pattern: domain.PatternRestrictive,
			tags:    []domain.FindingTag{domain.TagRestrictivePattern, domain.TagPreservedRatio, domain.TagSeverity},
		},
		{
			name:    "Low FVC without ratio is restrictive",
			fvcPred: f(60),
			pattern: domain.PatternRestrictive,
			tags:    []domain.FindingTag{domain.TagRestrictivePattern, domain.TagSeverity},
		},
		{
			name:    "Normal values",
			fev1FVC: f(85), fvcPred: f(90),
			pattern: domain.PatternNormal,
			tags:    []domain.FindingTag{domain.TagNormalSpirometry},
		},
		{
			name:    "Ratio exactly 70 is not obstructed",
			fev1FVC: f(70), fvcPred: f(80),
			pattern: domain.PatternNormal,
			tags:    []domain.FindingTag{domain.TagNormalSpirometry},
		},
		{
			name:     "Nothing available",
			fev1Pred: f(50),
			pattern:  domain.PatternNormal,
			tags:     []domain.FindingTag{domain.TagSpirometryNotAvailable},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pattern, findings := DetectPattern(tt.fev1FVC, tt.fev1Pred, tt.fvcPred)
			assert.Equal(t, tt.pattern, pattern)
			assert.Equal(t, tt.tags, findingTags(findings))
		})
	}
}

func TestDetectPattern_MixedTakesPrecedenceOverObstructive(t *testing.T) {
	pattern, findings := DetectPattern(f(65), f(58), f(75))

	require.Equal(t, domain.PatternMixed, pattern)
	require.Len(t, findings, 2)

	v, ok := findings[0].Value(domain.FVCPred)
	assert.True(t, ok)
	assert.Equal(t, 75.0, v)

	assert.Equal(t, domain.TagSeverity, findings[1].Tag)
	assert.Equal(t, domain.FEV1Pred, findings[1].Parameter)
	assert.Equal(t, domain.SeverityModeratelySevere, findings[1].Severity)
}

func TestDetectPattern_ObstructiveSeverityUsesFEV1(t *testing.T) {
	_, findings := DetectPattern(f(60), f(62), nil)

	require.Len(t, findings, 2)
	assert.Equal(t, domain.FEV1Pred, findings[1].Parameter)
	assert.Equal(t, domain.SeverityModerate, findings[1].Severity)
	assert.Equal(t, domain.TierWarning, findings[1].Tier)
}

func TestDetectPattern_MeasuredZeroIsNotMissing(t *testing.T) {
	pattern, _ := DetectPattern(f(85), nil, f(0))
	assert.Equal(t, domain.PatternRestrictive, pattern)

	pattern, _ = DetectPattern(f(85), nil, nil)
	assert.Equal(t, domain.PatternNormal, pattern)
}
