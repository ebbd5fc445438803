package service

import (
	"github.com/pft-analyzer-server/internal/domain"
)

// ReducedDiffusionDifferential lists causes of a reduced DLCO.
var ReducedDiffusionDifferential = []string{
	domain.DxEmphysemaCOPD,
	domain.DxInterstitialLungDisease,
	domain.DxPulmonaryVascular,
	domain.DxAnemia,
}

// IncreasedDiffusionDifferential lists causes of an increased DLCO.
var IncreasedDiffusionDifferential = []string{
	domain.DxPolycythemia,
	domain.DxAlveolarHemorrhage,
	domain.DxLeftToRightShunt,
}

// InterpretDLCO grades the diffusion capacity % predicted.
func InterpretDLCO(dlcoPred *float64) []domain.Finding {
	if dlcoPred == nil {
		return []domain.Finding{{Tag: domain.TagDiffusionNotAvailable}}
	}

	values := map[domain.Parameter]float64{domain.DLCOPred: *dlcoPred}
	switch {
	case *dlcoPred < LowerLimitPredicted:
		return []domain.Finding{
			{Tag: domain.TagReducedDiffusion, Values: values},
			severityFinding(domain.DLCOPred, *dlcoPred),
			{Tag: domain.TagDifferential, Items: cloneStrings(ReducedDiffusionDifferential)},
		}
	case *dlcoPred > UpperLimitPredicted:
		return []domain.Finding{
			{Tag: domain.TagIncreasedDiffusion, Values: values},
			{Tag: domain.TagDifferential, Items: cloneStrings(IncreasedDiffusionDifferential)},
		}
	default:
		return []domain.Finding{{Tag: domain.TagNormalDiffusion, Values: values}}
	}
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
