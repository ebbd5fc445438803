package service

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pft-analyzer-server/internal/domain"
)

// MeasurementParser builds measurements at the input boundary. It is the only
// place where raw values are cleaned up before reaching the interpreter.
type MeasurementParser struct {
	logger *logrus.Logger
}

// NewMeasurementParser creates a new measurement parser
func NewMeasurementParser(logger *logrus.Logger) *MeasurementParser {
	return &MeasurementParser{logger: logger}
}

// FromValues converts extraction output into a partial measurement. Unknown
// keys and malformed values are dropped. A literal zero is read as "not
// present" because extraction prompts ask for 0.0 when a value is missing.
// When several keys name the same parameter the canonical key wins, then the
// first key in sorted order.
func (mp *MeasurementParser) FromValues(values map[string]any) domain.Measurement {
	var m domain.Measurement
	for _, key := range slices.Sorted(maps.Keys(values)) {
		raw := values[key]
		p, ok := domain.ResolveParameter(key)
		if !ok {
			mp.debug("Ignoring unrecognized extracted key", logrus.Fields{"key": key})
			continue
		}
		if _, seen := m.Get(p); seen && key != string(p) {
			mp.debug("Ignoring duplicate extracted key", logrus.Fields{"key": key, "parameter": p})
			continue
		}

		v, ok := toFloat(raw)
		if !ok {
			mp.debug("Dropping malformed extracted value", logrus.Fields{"key": key, "value": raw})
			continue
		}
		if v == 0 {
			continue
		}
		if p == domain.FEV1FVC && v > 0 && v <= 1 {
			v *= 100
		}

		_ = m.Set(p, clampValue(p, v))
	}
	return m
}

// ApplyEdit applies one manual edit to m. Empty text clears the field. Typed
// values are taken as entered, so a FEV1_FVC of 1 means 1%.
func (mp *MeasurementParser) ApplyEdit(m *domain.Measurement, key, text string) error {
	p, ok := domain.ResolveParameter(key)
	if !ok {
		return domain.NewValidationError(key, "unknown PFT parameter", text)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return m.Unset(p)
	}

	v, err := parseNumber(text)
	if err != nil {
		return domain.NewValidationError(string(p), "value must be a number", text)
	}

	return m.Set(p, clampValue(p, v))
}

// ApplyEdits applies a batch of manual edits in key order. It stops at the
// first invalid edit and leaves m unchanged in that case. Two keys naming
// the same parameter are rejected.
func (mp *MeasurementParser) ApplyEdits(m *domain.Measurement, edits map[string]string) error {
	keys := slices.Sorted(maps.Keys(edits))
	if err := rejectDuplicates(keys); err != nil {
		return err
	}

	next := m.Clone()
	for _, key := range keys {
		if err := mp.ApplyEdit(&next, key, edits[key]); err != nil {
			return err
		}
	}
	*m = next
	return nil
}

// FromNumbers builds a measurement from numeric input such as a JSON body.
// Unlike extraction output a zero here is a real measurement, and values are
// taken as given apart from clamping.
func (mp *MeasurementParser) FromNumbers(values map[string]float64) (domain.Measurement, error) {
	keys := slices.Sorted(maps.Keys(values))
	if err := rejectDuplicates(keys); err != nil {
		return domain.Measurement{}, err
	}

	var m domain.Measurement
	for _, key := range keys {
		v := values[key]
		p, ok := domain.ResolveParameter(key)
		if !ok {
			return domain.Measurement{}, domain.NewValidationError(key, "unknown PFT parameter", formatNumber(v))
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return domain.Measurement{}, domain.NewValidationError(string(p), "value must be finite", formatNumber(v))
		}
		_ = m.Set(p, clampValue(p, v))
	}
	return m, nil
}

// rejectDuplicates fails when two keys resolve to the same parameter.
// Unknown keys are left for the caller to report.
func rejectDuplicates(keys []string) error {
	seen := make(map[domain.Parameter]string, len(keys))
	for _, key := range keys {
		p, ok := domain.ResolveParameter(key)
		if !ok {
			continue
		}
		if first, dup := seen[p]; dup {
			return domain.NewValidationError(string(p), fmt.Sprintf("given twice, as %q and %q", first, key), key)
		}
		seen[p] = key
	}
	return nil
}

func (mp *MeasurementParser) debug(msg string, fields logrus.Fields) {
	if mp.logger != nil {
		mp.logger.WithFields(fields).Debug(msg)
	}
}

// clampValue bounds ratio and percent predicted values to the display range.
func clampValue(p domain.Parameter, v float64) float64 {
	switch {
	case p == domain.FEV1FVC:
		return clamp(v, domain.MinRatioPercent, domain.MaxRatioPercent)
	case p.IsPercentPredicted():
		return clamp(v, domain.MinPercentPredicted, domain.MaxPercentPredicted)
	default:
		return v
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func toFloat(raw any) (float64, bool) {
	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		v = f
	case string:
		f, err := parseNumber(n)
		if err != nil {
			return 0, false
		}
		v = f
	default:
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// parseNumber accepts plain decimals with an optional trailing percent sign.
func parseNumber(text string) (float64, error) {
	text = strings.TrimSuffix(strings.TrimSpace(text), "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing number %q: %w", text, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("parsing number %q: not finite", text)
	}
	return v, nil
}
