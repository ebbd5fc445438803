package service

import (
	"github.com/sirupsen/logrus"

	"github.com/pft-analyzer-server/internal/domain"
)

// Interpreter runs the PFT interpretation rules. It holds no state between
// calls; the logger is only used for audit output.
type Interpreter struct {
	logger *logrus.Logger
}

// NewInterpreter creates a new interpreter
func NewInterpreter(logger *logrus.Logger) *Interpreter {
	return &Interpreter{logger: logger}
}

// Interpret evaluates a measurement and logs the outcome.
func (i *Interpreter) Interpret(m domain.Measurement) *domain.InterpretationResult {
	result := Interpret(m)

	if i.logger != nil {
		i.logger.WithFields(logrus.Fields(m.LogFields())).
			WithFields(logrus.Fields(result.LogFields())).
			Debug("Completed PFT interpretation")
	}

	return result
}

// Interpret evaluates a measurement. The spirometry, volume and diffusion
// interpreters are independent; the impression consumes the spirometry pattern.
func Interpret(m domain.Measurement) *domain.InterpretationResult {
	pattern, spirometry := DetectPattern(m.FEV1FVC, m.FEV1Pred, m.FVCPred)

	result := &domain.InterpretationResult{
		Pattern:            pattern,
		InsufficientData:   insufficientData(m),
		SpirometryFindings: spirometry,
		VolumeFindings:     InterpretVolumes(m.TLCPred, m.RVPred),
		DiffusionFindings:  InterpretDLCO(m.DLCOPred),
	}

	if result.InsufficientData {
		result.ImpressionLines = []domain.Finding{
			{Tag: domain.TagPatternSummary, Pattern: domain.PatternNormal},
			{Tag: domain.TagInsufficientData},
			{Tag: domain.TagRecommendations, Items: Recommendations(domain.PatternNormal)},
		}
		return result
	}

	result.ImpressionLines = Synthesize(pattern, m)
	return result
}

// insufficientData reports whether none of the classifying fields is present.
func insufficientData(m domain.Measurement) bool {
	for _, p := range []domain.Parameter{domain.FEV1FVC, domain.FVCPred, domain.TLCPred, domain.DLCOPred} {
		if _, ok := m.Get(p); ok {
			return false
		}
	}
	return true
}
