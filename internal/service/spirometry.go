package service

import (
	"github.com/pft-analyzer-server/internal/domain"
)

// DetectPattern classifies spirometry into a ventilatory pattern.
//
// Branches are evaluated in order and the first match wins:
//  1. FEV1/FVC < 70 and FVC < 80% predicted: Mixed
//  2. FEV1/FVC < 70: Obstructive
//  3. FVC < 80% predicted: Restrictive
//  4. otherwise Normal
//
// Mixed must be checked before the single-defect branches. An absent input
// never triggers the branch that depends on it.
func DetectPattern(fev1FVC, fev1Pred, fvcPred *float64) (domain.Pattern, []domain.Finding) {
	obstructed := fev1FVC != nil && *fev1FVC < ObstructionRatioThreshold
	lowFVC := fvcPred != nil && *fvcPred < LowerLimitPredicted

	switch {
	case obstructed && lowFVC:
		findings := []domain.Finding{{
			Tag:     domain.TagMixedDefect,
			Pattern: domain.PatternMixed,
			Values: map[domain.Parameter]float64{
				domain.FEV1FVC: *fev1FVC,
				domain.FVCPred: *fvcPred,
			},
		}}
		if fev1Pred != nil {
			findings = append(findings, severityFinding(domain.FEV1Pred, *fev1Pred))
		}
		return domain.PatternMixed, findings

	case obstructed:
		findings := []domain.Finding{{
			Tag:     domain.TagObstructiveDefect,
			Pattern: domain.PatternObstructive,
			Values:  map[domain.Parameter]float64{domain.FEV1FVC: *fev1FVC},
		}}
		if fev1Pred != nil {
			findings = append(findings, severityFinding(domain.FEV1Pred, *fev1Pred))
		}
		return domain.PatternObstructive, findings

	case lowFVC:
		findings := []domain.Finding{{
			Tag:     domain.TagRestrictivePattern,
			Pattern: domain.PatternRestrictive,
			Values:  map[domain.Parameter]float64{domain.FVCPred: *fvcPred},
		}}
		if fev1FVC != nil {
			findings = append(findings, domain.Finding{
				Tag:    domain.TagPreservedRatio,
				Values: map[domain.Parameter]float64{domain.FEV1FVC: *fev1FVC},
			})
		}
		findings = append(findings, severityFinding(domain.FVCPred, *fvcPred))
		return domain.PatternRestrictive, findings
	}

	if fev1FVC == nil && fvcPred == nil {
		return domain.PatternNormal, []domain.Finding{{Tag: domain.TagSpirometryNotAvailable}}
	}

	normal := domain.Finding{
		Tag:     domain.TagNormalSpirometry,
		Pattern: domain.PatternNormal,
		Values:  map[domain.Parameter]float64{},
	}
	if fev1FVC != nil {
		normal.Values[domain.FEV1FVC] = *fev1FVC
	}
	if fvcPred != nil {
		normal.Values[domain.FVCPred] = *fvcPred
	}
	return domain.PatternNormal, []domain.Finding{normal}
}
