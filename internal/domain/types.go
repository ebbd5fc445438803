// Package domain contains core entities and types for Pulmonary Function Test
// (PFT) interpretation: spirometry, lung volumes and diffusion capacity.
//
// Thresholds follow commonly taught rule-of-thumb interpretation
// (FEV1/FVC < 70%, % predicted < 80%) and are not a validated predictive model.
package domain

import (
	"errors"
)

// Pattern is the ventilatory defect pattern derived from spirometry.
type Pattern string

const (
	PatternNormal      Pattern = "Normal"
	PatternObstructive Pattern = "Obstructive"
	PatternRestrictive Pattern = "Restrictive"
	PatternMixed       Pattern = "Mixed"
)

// Severity is the grade assigned to a % predicted value.
type Severity string

const (
	SeverityNormal           Severity = "Normal"
	SeverityMild             Severity = "Mild"
	SeverityModerate         Severity = "Moderate"
	SeverityModeratelySevere Severity = "Moderately Severe"
	SeveritySevere           Severity = "Severe"
	SeverityVerySevere       Severity = "Very Severe"
)

// Tier groups severities into the three display buckets used by renderers.
type Tier string

const (
	TierNormal   Tier = "normal"
	TierWarning  Tier = "warning"
	TierAbnormal Tier = "abnormal"
)

// Validation errors
var (
	ErrNotFound                = errors.New("not found")
	ErrInvalidPattern          = errors.New("invalid PFT pattern")
	ErrInvalidSeverity         = errors.New("invalid severity")
	ErrUnknownParameter        = errors.New("unknown PFT parameter")
	ErrUnsupportedDocument     = errors.New("unsupported document type")
	ErrExtractionExhausted     = errors.New("all extraction strategies failed")
	ErrNoAPIKey                = errors.New("API key is not configured")
	ErrNarrativeNotConfigured  = errors.New("narrative provider is not configured")
	ErrExtractionNotConfigured = errors.New("document extraction is not configured")
)

// IsValid reports whether the pattern is one of the four known patterns.
func (p Pattern) IsValid() bool {
	switch p {
	case PatternNormal, PatternObstructive, PatternRestrictive, PatternMixed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the pattern.
func (p Pattern) String() string {
	return string(p)
}

// IsAbnormal reports whether the pattern represents a ventilatory defect.
func (p Pattern) IsAbnormal() bool {
	return p.IsValid() && p != PatternNormal
}

// Description returns a human-readable description of the pattern for reports.
func (p Pattern) Description() string {
	switch p {
	case PatternNormal:
		return "No ventilatory defect"
	case PatternObstructive:
		return "Obstructive ventilatory defect"
	case PatternRestrictive:
		return "Restrictive ventilatory defect"
	case PatternMixed:
		return "Mixed obstructive and restrictive ventilatory defect"
	default:
		return "Unknown pattern"
	}
}

// LogFields returns structured logging fields for audit trails.
func (p Pattern) LogFields() map[string]any {
	return map[string]any{
		"pattern":     string(p),
		"is_valid":    p.IsValid(),
		"is_abnormal": p.IsAbnormal(),
	}
}

// ParsePattern converts a string into a Pattern.
func ParsePattern(s string) (Pattern, error) {
	p := Pattern(s)
	if !p.IsValid() {
		return "", ErrInvalidPattern
	}
	return p, nil
}

// IsValid reports whether the severity is one of the six grades.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityNormal, SeverityMild, SeverityModerate, SeverityModeratelySevere, SeveritySevere, SeverityVerySevere:
		return true
	default:
		return false
	}
}

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// Tier returns the display tier the severity belongs to.
func (s Severity) Tier() Tier {
	switch s {
	case SeverityNormal:
		return TierNormal
	case SeverityMild, SeverityModerate:
		return TierWarning
	case SeverityModeratelySevere, SeveritySevere, SeverityVerySevere:
		return TierAbnormal
	default:
		return ""
	}
}

// LogFields returns structured logging fields for audit trails.
func (s Severity) LogFields() map[string]any {
	return map[string]any{
		"severity": string(s),
		"tier":     string(s.Tier()),
		"is_valid": s.IsValid(),
	}
}

// ParseSeverity converts a string into a Severity.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if !sev.IsValid() {
		return "", ErrInvalidSeverity
	}
	return sev, nil
}

// String returns the string representation of the tier.
func (t Tier) String() string {
	return string(t)
}
