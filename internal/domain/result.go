package domain

// InterpretationResult is the output of one interpretation run. It carries no
// timestamps or identifiers so that equal measurements give equal results.
type InterpretationResult struct {
	Pattern            Pattern   `json:"pattern"`
	InsufficientData   bool      `json:"insufficient_data"`
	SpirometryFindings []Finding `json:"spirometry_findings"`
	VolumeFindings     []Finding `json:"volume_findings"`
	DiffusionFindings  []Finding `json:"diffusion_findings"`
	ImpressionLines    []Finding `json:"impression_lines"`
}

// LogFields returns structured logging fields for audit trails.
func (r *InterpretationResult) LogFields() map[string]any {
	return map[string]any{
		"pattern":           string(r.Pattern),
		"insufficient_data": r.InsufficientData,
		"spirometry_count":  len(r.SpirometryFindings),
		"volume_count":      len(r.VolumeFindings),
		"diffusion_count":   len(r.DiffusionFindings),
		"impression_count":  len(r.ImpressionLines),
	}
}

// HasTag reports whether any section of the result contains a finding with tag.
func (r *InterpretationResult) HasTag(tag FindingTag) bool {
	for _, section := range [][]Finding{r.SpirometryFindings, r.VolumeFindings, r.DiffusionFindings, r.ImpressionLines} {
		for _, f := range section {
			if f.Tag == tag {
				return true
			}
		}
	}
	return false
}
