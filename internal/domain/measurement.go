package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Parameter identifies a recognized PFT field.
type Parameter string

const (
	FEV1     Parameter = "FEV1"
	FEV1Pred Parameter = "FEV1_pred"
	FVC      Parameter = "FVC"
	FVCPred  Parameter = "FVC_pred"
	FEV1FVC  Parameter = "FEV1_FVC"
	TLC      Parameter = "TLC"
	TLCPred  Parameter = "TLC_pred"
	RV       Parameter = "RV"
	RVPred   Parameter = "RV_pred"
	DLCO     Parameter = "DLCO"
	DLCOPred Parameter = "DLCO_pred"
	FEF2575  Parameter = "FEF25_75"
)

// Bounds applied at the input boundary.
const (
	MinPercentPredicted = 0.0
	MaxPercentPredicted = 200.0
	MinRatioPercent     = 0.0
	MaxRatioPercent     = 100.0
)

var allParameters = []Parameter{
	FEV1, FEV1Pred, FVC, FVCPred, FEV1FVC,
	TLC, TLCPred, RV, RVPred,
	DLCO, DLCOPred, FEF2575,
}

// AllParameters returns every recognized parameter in report order.
func AllParameters() []Parameter {
	out := make([]Parameter, len(allParameters))
	copy(out, allParameters)
	return out
}

// IsValid reports whether p is a recognized parameter key.
func (p Parameter) IsValid() bool {
	for _, known := range allParameters {
		if p == known {
			return true
		}
	}
	return false
}

// String returns the key form of the parameter.
func (p Parameter) String() string {
	return string(p)
}

// IsPercentPredicted reports whether the parameter holds a % predicted value.
func (p Parameter) IsPercentPredicted() bool {
	switch p {
	case FEV1Pred, FVCPred, TLCPred, RVPred, DLCOPred:
		return true
	default:
		return false
	}
}

// Unit returns the display unit of the parameter.
func (p Parameter) Unit() string {
	switch p {
	case FEV1, FVC, TLC, RV:
		return "L"
	case FEF2575:
		return "L/s"
	case DLCO:
		return ""
	default:
		return "%"
	}
}

// Label returns the human-readable label of the parameter.
func (p Parameter) Label() string {
	switch p {
	case FEV1:
		return "FEV1"
	case FEV1Pred:
		return "FEV1 % Pred"
	case FVC:
		return "FVC"
	case FVCPred:
		return "FVC % Pred"
	case FEV1FVC:
		return "FEV1/FVC Ratio"
	case TLC:
		return "TLC"
	case TLCPred:
		return "TLC % Pred"
	case RV:
		return "RV"
	case RVPred:
		return "RV % Pred"
	case DLCO:
		return "DLCO"
	case DLCOPred:
		return "DLCO % Pred"
	case FEF2575:
		return "FEF25-75"
	default:
		return string(p)
	}
}

// Measurement is one PFT record. A nil field means "not available", which is
// distinct from a measured zero.
type Measurement struct {
	FEV1     *float64 `json:"FEV1,omitempty"`
	FEV1Pred *float64 `json:"FEV1_pred,omitempty"`
	FVC      *float64 `json:"FVC,omitempty"`
	FVCPred  *float64 `json:"FVC_pred,omitempty"`
	FEV1FVC  *float64 `json:"FEV1_FVC,omitempty"`
	TLC      *float64 `json:"TLC,omitempty"`
	TLCPred  *float64 `json:"TLC_pred,omitempty"`
	RV       *float64 `json:"RV,omitempty"`
	RVPred   *float64 `json:"RV_pred,omitempty"`
	DLCO     *float64 `json:"DLCO,omitempty"`
	DLCOPred *float64 `json:"DLCO_pred,omitempty"`
	FEF2575  *float64 `json:"FEF25_75,omitempty"`
}

// Float returns a pointer to v, for building measurements from literals.
func Float(v float64) *float64 {
	return &v
}

func (m *Measurement) field(p Parameter) **float64 {
	switch p {
	case FEV1:
		return &m.FEV1
	case FEV1Pred:
		return &m.FEV1Pred
	case FVC:
		return &m.FVC
	case FVCPred:
		return &m.FVCPred
	case FEV1FVC:
		return &m.FEV1FVC
	case TLC:
		return &m.TLC
	case TLCPred:
		return &m.TLCPred
	case RV:
		return &m.RV
	case RVPred:
		return &m.RVPred
	case DLCO:
		return &m.DLCO
	case DLCOPred:
		return &m.DLCOPred
	case FEF2575:
		return &m.FEF2575
	default:
		return nil
	}
}

// Get returns the value of p and whether it is present.
func (m Measurement) Get(p Parameter) (float64, bool) {
	f := m.field(p)
	if f == nil || *f == nil {
		return 0, false
	}
	return **f, true
}

// Set stores v for p.
func (m *Measurement) Set(p Parameter, v float64) error {
	f := m.field(p)
	if f == nil {
		return fmt.Errorf("%w: %s", ErrUnknownParameter, p)
	}
	*f = Float(v)
	return nil
}

// Unset marks p as not available.
func (m *Measurement) Unset(p Parameter) error {
	f := m.field(p)
	if f == nil {
		return fmt.Errorf("%w: %s", ErrUnknownParameter, p)
	}
	*f = nil
	return nil
}

// Merge overwrites fields of m with every field present in partial.
func (m *Measurement) Merge(partial Measurement) {
	for _, p := range allParameters {
		if v, ok := partial.Get(p); ok {
			*m.field(p) = Float(v)
		}
	}
}

// Clone returns a deep copy of m.
func (m Measurement) Clone() Measurement {
	var out Measurement
	out.Merge(m)
	return out
}

// Values returns the present fields keyed by parameter.
func (m Measurement) Values() map[Parameter]float64 {
	out := make(map[Parameter]float64)
	for _, p := range allParameters {
		if v, ok := m.Get(p); ok {
			out[p] = v
		}
	}
	return out
}

// IsEmpty reports whether no field is present.
func (m Measurement) IsEmpty() bool {
	for _, p := range allParameters {
		if _, ok := m.Get(p); ok {
			return false
		}
	}
	return true
}

// Fingerprint returns a stable hash of the present values, used as a cache key.
func (m Measurement) Fingerprint() string {
	var b strings.Builder
	for _, p := range allParameters {
		if v, ok := m.Get(p); ok {
			b.WriteString(string(p))
			b.WriteByte('=')
			b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
			b.WriteByte(';')
		}
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// LogFields returns structured logging fields describing which fields are present.
func (m Measurement) LogFields() map[string]any {
	present := make([]string, 0, len(allParameters))
	for _, p := range allParameters {
		if _, ok := m.Get(p); ok {
			present = append(present, string(p))
		}
	}
	return map[string]any{
		"present_fields": present,
		"field_count":    len(present),
	}
}
