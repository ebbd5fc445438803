package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pft-analyzer-server/internal/domain"
)

func TestInterpretDLCO_Reduced(t *testing.T) {
	findings := InterpretDLCO(f(60))

	require.Len(t, findings, 3)
	assert.Equal(t, domain.TagReducedDiffusion, findings[0].Tag)

	assert.Equal(t, domain.TagSeverity, findings[1].Tag)
	assert.Equal(t, domain.DLCOPred, findings[1].Parameter)
	assert.Equal(t, domain.SeverityModerate, findings[1].Severity)

	assert.Equal(t, domain.TagDifferential, findings[2].Tag)
	assert.Equal(t, []string{
		domain.DxEmphysemaCOPD,
		domain.DxInterstitialLungDisease,
		domain.DxPulmonaryVascular,
		domain.DxAnemia,
	}, findings[2].Items)
}

func TestInterpretDLCO_Increased(t *testing.T) {
	findings := InterpretDLCO(f(135))

	require.Len(t, findings, 2)
	assert.Equal(t, domain.TagIncreasedDiffusion, findings[0].Tag)
	assert.Equal(t, []string{
		domain.DxPolycythemia,
		domain.DxAlveolarHemorrhage,
		domain.DxLeftToRightShunt,
	}, findings[1].Items)
}

func TestInterpretDLCO_NormalAndMissing(t *testing.T) {
	assert.Equal(t, []domain.FindingTag{domain.TagNormalDiffusion}, findingTags(InterpretDLCO(f(80))))
	assert.Equal(t, []domain.FindingTag{domain.TagNormalDiffusion}, findingTags(InterpretDLCO(f(120))))
	assert.Equal(t, []domain.FindingTag{domain.TagDiffusionNotAvailable}, findingTags(InterpretDLCO(nil)))
}

func TestInterpretDLCO_DifferentialIsNotShared(t *testing.T) {
	first := InterpretDLCO(f(50))
	first[2].Items[0] = "mutated"

	second := InterpretDLCO(f(50))
	assert.Equal(t, domain.DxEmphysemaCOPD, second[2].Items[0])
}
