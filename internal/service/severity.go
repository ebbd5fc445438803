package service

import (
	"github.com/pft-analyzer-server/internal/domain"
)

// Interpretation thresholds, all in percent.
const (
	// ObstructionRatioThreshold is the FEV1/FVC value below which airflow is obstructed.
	ObstructionRatioThreshold = 70.0
	// LowerLimitPredicted is the % predicted value below which a parameter is reduced.
	LowerLimitPredicted = 80.0
	// UpperLimitPredicted is the % predicted value above which a parameter is increased.
	UpperLimitPredicted = 120.0
)

// severityBands is the shared grading table. Lower bounds are inclusive and
// bands are checked from the top down; anything below the last band is Very Severe.
var severityBands = []struct {
	min      float64
	severity domain.Severity
}{
	{80, domain.SeverityNormal},
	{70, domain.SeverityMild},
	{60, domain.SeverityModerate},
	{50, domain.SeverityModeratelySevere},
	{35, domain.SeveritySevere},
}

// ClassifySeverity grades a % predicted value. The same table applies to every
// parameter kind, so kind only labels the result. Any real value is accepted.
func ClassifySeverity(value float64, kind domain.Parameter) (domain.Severity, domain.Tier) {
	for _, band := range severityBands {
		if value >= band.min {
			return band.severity, band.severity.Tier()
		}
	}
	return domain.SeverityVerySevere, domain.SeverityVerySevere.Tier()
}

// severityFinding builds the severity statement for a graded parameter.
func severityFinding(kind domain.Parameter, value float64) domain.Finding {
	severity, tier := ClassifySeverity(value, kind)
	return domain.Finding{
		Tag:       domain.TagSeverity,
		Parameter: kind,
		Severity:  severity,
		Tier:      tier,
		Values:    map[domain.Parameter]float64{kind: value},
	}
}
