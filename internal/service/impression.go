package service

import (
	"github.com/pft-analyzer-server/internal/domain"
)

// patternDifferentials is the fixed differential diagnosis template per pattern.
var patternDifferentials = map[domain.Pattern][]string{
	domain.PatternObstructive: {
		domain.DxCOPD,
		domain.DxAsthma,
		domain.DxBronchiectasis,
		domain.DxChronicBronchitis,
	},
	domain.PatternRestrictive: {
		domain.DxILD,
		domain.DxChestWall,
		domain.DxNeuromuscular,
		domain.DxObesity,
		domain.DxPleural,
	},
	domain.PatternMixed: {
		domain.DxCPFE,
		domain.DxCOPDWithILD,
		domain.DxSevereAsthmaTrapping,
	},
}

// PatternDifferential returns the differential diagnosis list for a pattern.
// Normal has none.
func PatternDifferential(p domain.Pattern) []string {
	return cloneStrings(patternDifferentials[p])
}

// Recommendations returns the recommendation block for a pattern.
func Recommendations(p domain.Pattern) []string {
	recs := []string{domain.RecClinicalCorrelation, domain.RecConsiderImaging}
	if p.IsAbnormal() {
		recs = append(recs, domain.RecFollowUpPFTs, domain.RecPulmonologyReferral)
	}
	return recs
}

// Synthesize builds the impression lines: pattern summary, differential,
// the parenchymal note for obstruction with reduced DLCO, then recommendations.
func Synthesize(pattern domain.Pattern, m domain.Measurement) []domain.Finding {
	summary := domain.Finding{Tag: domain.TagPatternSummary, Pattern: pattern}
	if kind, value, ok := gradingParameter(pattern, m); ok {
		summary.Parameter = kind
		summary.Severity, summary.Tier = ClassifySeverity(value, kind)
		summary.Values = map[domain.Parameter]float64{kind: value}
	}

	lines := []domain.Finding{summary}

	if dx := PatternDifferential(pattern); len(dx) > 0 {
		lines = append(lines, domain.Finding{Tag: domain.TagDifferential, Pattern: pattern, Items: dx})
	}

	if pattern == domain.PatternObstructive {
		if dlco, ok := m.Get(domain.DLCOPred); ok && dlco < LowerLimitPredicted {
			lines = append(lines, domain.Finding{
				Tag:    domain.TagParenchymalInvolvement,
				Values: map[domain.Parameter]float64{domain.DLCOPred: dlco},
			})
		}
	}

	lines = append(lines, domain.Finding{Tag: domain.TagRecommendations, Items: Recommendations(pattern)})
	return lines
}

// gradingParameter picks the value that grades the overall defect: FEV1 for
// airflow defects, TLC (falling back to FVC) for restriction.
func gradingParameter(pattern domain.Pattern, m domain.Measurement) (domain.Parameter, float64, bool) {
	switch pattern {
	case domain.PatternObstructive, domain.PatternMixed:
		v, ok := m.Get(domain.FEV1Pred)
		return domain.FEV1Pred, v, ok
	case domain.PatternRestrictive:
		if v, ok := m.Get(domain.TLCPred); ok {
			return domain.TLCPred, v, true
		}
		v, ok := m.Get(domain.FVCPred)
		return domain.FVCPred, v, ok
	default:
		return "", 0, false
	}
}
