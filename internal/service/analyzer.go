package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pft-analyzer-server/internal/domain"
	"github.com/pft-analyzer-server/internal/narrative"
)

// Analyzer drives one PFT report from entry to interpretation. It owns no
// measurement state itself; every call loads a copy from the session store.
type Analyzer struct {
	logger      *logrus.Logger
	store       domain.SessionStore
	extractor   domain.DocumentExtractor
	opinion     domain.OpinionProvider
	interpreter *Interpreter
	parser      *MeasurementParser
	now         func() time.Time
}

// NewAnalyzer creates a new analyzer. extractor and opinion may be nil, in
// which case the corresponding operations report that they are not configured.
func NewAnalyzer(
	logger *logrus.Logger,
	store domain.SessionStore,
	extractor domain.DocumentExtractor,
	opinion domain.OpinionProvider,
) *Analyzer {
	return &Analyzer{
		logger:      logger,
		store:       store,
		extractor:   extractor,
		opinion:     opinion,
		interpreter: NewInterpreter(logger),
		parser:      NewMeasurementParser(logger),
		now:         time.Now,
	}
}

// Parser returns the parser used at the input boundary.
func (a *Analyzer) Parser() *MeasurementParser {
	return a.parser
}

// CanExtract reports whether document extraction is configured.
func (a *Analyzer) CanExtract() bool {
	return a.extractor != nil
}

// CanNarrate reports whether the AI opinion provider is configured.
func (a *Analyzer) CanNarrate() bool {
	return a.opinion != nil
}

// StartSession opens a new empty session.
func (a *Analyzer) StartSession(ctx context.Context) (*domain.Session, error) {
	session, err := a.store.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	a.logger.WithField("session_id", session.ID).Info("Started PFT session")
	return session, nil
}

// GetSession returns the current state of a session.
func (a *Analyzer) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	session, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	return session, nil
}

// EditField applies a single manual edit. Empty text clears the field.
func (a *Analyzer) EditField(ctx context.Context, id, key, text string) (*domain.Session, error) {
	return a.EditFields(ctx, id, map[string]string{key: text})
}

// EditFields applies a batch of manual edits atomically.
func (a *Analyzer) EditFields(ctx context.Context, id string, edits map[string]string) (*domain.Session, error) {
	return a.update(ctx, id, func(m *domain.Measurement) error {
		return a.parser.ApplyEdits(m, edits)
	})
}

// ReplaceMeasurement overwrites the session measurement.
func (a *Analyzer) ReplaceMeasurement(ctx context.Context, id string, m domain.Measurement) (*domain.Session, error) {
	return a.update(ctx, id, func(current *domain.Measurement) error {
		*current = m.Clone()
		return nil
	})
}

// ResetSession clears the measurement and keeps the session ID, which is how
// a new report is started.
func (a *Analyzer) ResetSession(ctx context.Context, id string) (*domain.Session, error) {
	session, err := a.update(ctx, id, func(m *domain.Measurement) error {
		*m = domain.Measurement{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.logger.WithField("session_id", id).Info("Reset PFT session")
	return session, nil
}

// EndSession discards the session and its measurement.
func (a *Analyzer) EndSession(ctx context.Context, id string) error {
	if err := a.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	a.logger.WithField("session_id", id).Info("Ended PFT session")
	return nil
}

// ExtractInto runs document extraction and merges the extracted values into
// the session. Fields the document did not yield keep their current value.
func (a *Analyzer) ExtractInto(ctx context.Context, id string, doc domain.Document) (*domain.ExtractionOutcome, *domain.Session, error) {
	if a.extractor == nil {
		return nil, nil, domain.ErrExtractionNotConfigured
	}

	if _, err := a.GetSession(ctx, id); err != nil {
		return nil, nil, err
	}

	outcome, err := a.extractor.Extract(ctx, doc)
	if err != nil {
		a.logger.WithError(err).WithFields(logrus.Fields{
			"session_id": id,
			"document":   doc.Name,
			"mime_type":  doc.MIMEType,
		}).Warn("Document extraction failed")
		return outcome, nil, fmt.Errorf("extracting %s: %w", doc.Name, err)
	}

	outcome.Measurement = a.parser.FromValues(outcome.Values)

	session, err := a.update(ctx, id, func(m *domain.Measurement) error {
		m.Merge(outcome.Measurement)
		return nil
	})
	if err != nil {
		return outcome, nil, err
	}

	a.logger.WithFields(logrus.Fields{
		"session_id": id,
		"strategy":   outcome.Strategy,
		"attempts":   len(outcome.Attempts),
	}).WithFields(logrus.Fields(outcome.Measurement.LogFields())).Info("Merged extracted PFT values")

	return outcome, session, nil
}

// Interpret runs the interpretation rules on the session measurement.
func (a *Analyzer) Interpret(ctx context.Context, id string) (*domain.InterpretationResult, error) {
	session, err := a.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.interpreter.Interpret(session.Measurement), nil
}

// InterpretMeasurement runs the interpretation rules without a session.
func (a *Analyzer) InterpretMeasurement(m domain.Measurement) *domain.InterpretationResult {
	return a.interpreter.Interpret(m.Clone())
}

// Report renders the downloadable plain-text report for a session.
func (a *Analyzer) Report(ctx context.Context, id string) (string, error) {
	session, err := a.GetSession(ctx, id)
	if err != nil {
		return "", err
	}
	result := a.interpreter.Interpret(session.Measurement)
	return narrative.BuildReport(session.Measurement, result, a.now()), nil
}

// Opinion asks the narrative provider for an alternate free-text opinion on
// the session. The rule-based interpretation stays canonical.
func (a *Analyzer) Opinion(ctx context.Context, id string) (string, error) {
	if a.opinion == nil {
		return "", domain.ErrNarrativeNotConfigured
	}

	session, err := a.GetSession(ctx, id)
	if err != nil {
		return "", err
	}

	result := a.interpreter.Interpret(session.Measurement)
	if result.InsufficientData {
		return "", domain.NewValidationError("measurement", "no spirometry, volume or diffusion values to interpret", "")
	}

	text, err := a.opinion.Opinion(ctx, session.Measurement, result)
	if err != nil {
		return "", fmt.Errorf("generating opinion: %w", err)
	}
	return narrative.WithDisclaimer(text), nil
}

// update loads a session, applies fn to a copy of its measurement and saves it.
func (a *Analyzer) update(ctx context.Context, id string, fn func(m *domain.Measurement) error) (*domain.Session, error) {
	session, err := a.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	m := session.Measurement.Clone()
	if err := fn(&m); err != nil {
		return nil, err
	}

	session.Measurement = m
	session.UpdatedAt = a.now().UTC()
	if err := a.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("saving session %s: %w", id, err)
	}
	return session, nil
}
