package service

import (
	"github.com/pft-analyzer-server/internal/domain"
)

// InterpretVolumes evaluates TLC and RV % predicted. RV is only read when TLC
// is present.
func InterpretVolumes(tlcPred, rvPred *float64) []domain.Finding {
	if tlcPred == nil {
		return []domain.Finding{{Tag: domain.TagLungVolumesNotAvailable}}
	}

	tlc := map[domain.Parameter]float64{domain.TLCPred: *tlcPred}
	var findings []domain.Finding
	switch {
	case *tlcPred < LowerLimitPredicted:
		findings = append(findings,
			domain.Finding{Tag: domain.TagRestrictionConfirmed, Pattern: domain.PatternRestrictive, Values: tlc},
			severityFinding(domain.TLCPred, *tlcPred),
		)
	case *tlcPred > UpperLimitPredicted:
		findings = append(findings, domain.Finding{Tag: domain.TagHyperinflation, Values: tlc})
	default:
		findings = append(findings, domain.Finding{Tag: domain.TagNormalLungVolumes, Values: tlc})
	}

	if rvPred != nil {
		rv := map[domain.Parameter]float64{domain.RVPred: *rvPred}
		switch {
		case *rvPred > UpperLimitPredicted:
			findings = append(findings, domain.Finding{Tag: domain.TagAirTrapping, Values: rv})
		case *rvPred < LowerLimitPredicted:
			findings = append(findings, domain.Finding{Tag: domain.TagDecreasedRV, Values: rv})
		default:
			findings = append(findings, domain.Finding{Tag: domain.TagNormalRV, Values: rv})
		}
	}

	return findings
}
