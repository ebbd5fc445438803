package service

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pft-analyzer-server/internal/domain"
)

func TestMeasurementParser_FromValues(t *testing.T) {
	parser := NewMeasurementParser(nil)

	m := parser.FromValues(map[string]any{
		"FEV1":      1.85,
		"FEV1_pred": "62",
		"FVC":       json.Number("3.10"),
		"FVC_pred":  0.0,
		"FEV1_FVC":  0.6,
		"TLC_pred":  260,
		"DLCO_pred": -5.0,
		"RV_pred":   "n/a",
		"Comment":   "patient coughed",
		"RV":        math.Inf(1),
		"DLCO":      []int{1},
	})

	assert.Equal(t, map[domain.Parameter]float64{
		domain.FEV1:     1.85,
		domain.FEV1Pred: 62,
		domain.FVC:      3.10,
		domain.FEV1FVC:  60,
		domain.TLCPred:  200,
		domain.DLCOPred: 0,
	}, m.Values())
}

func TestMeasurementParser_FromValues_ZeroIsAbsent(t *testing.T) {
	parser := NewMeasurementParser(nil)

	m := parser.FromValues(map[string]any{
		"FEV1":     0.0, "FEV1_pred": 0.0, "FVC": 0.0, "FVC_pred": 0.0,
		"FEV1_FVC": 0.0, "TLC": 0.0, "TLC_pred": 0.0, "DLCO": 0.0, "DLCO_pred": 0.0,
	})

	assert.True(t, m.IsEmpty())
	assert.True(t, Interpret(m).InsufficientData)
}

func TestMeasurementParser_RatioScaling(t *testing.T) {
	parser := NewMeasurementParser(nil)

	tests := []struct {
		name string
		raw  any
		want float64
	}{
		{"Fraction", 0.72, 72},
		{"Fraction of one", 1.0, 100},
		{"Percent", 68.0, 68},
		{"Over one hundred", 140.0, 100},
		{"Percent string", "65%", 65},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := parser.FromValues(map[string]any{"FEV1/FVC": tt.raw})
			v, ok := m.Get(domain.FEV1FVC)
			require.True(t, ok)
			assert.InDelta(t, tt.want, v, 1e-9)
		})
	}
}

func TestMeasurementParser_ApplyEdit(t *testing.T) {
	parser := NewMeasurementParser(nil)

	m := domain.Measurement{FVCPred: domain.Float(70)}

	require.NoError(t, parser.ApplyEdit(&m, "FEV1_FVC", " 65 "))
	require.NoError(t, parser.ApplyEdit(&m, "DLCO % pred", "250"))
	require.NoError(t, parser.ApplyEdit(&m, "FEV1", "0"))
	require.NoError(t, parser.ApplyEdit(&m, "FVC_pred", ""))

	assert.Equal(t, map[domain.Parameter]float64{
		domain.FEV1FVC:  65,
		domain.DLCOPred: 200,
		domain.FEV1:     0,
	}, m.Values())
}

func TestMeasurementParser_ApplyEdit_Errors(t *testing.T) {
	parser := NewMeasurementParser(nil)

	tests := []struct {
		name  string
		key   string
		text  string
		field string
	}{
		{"Unknown key", "PEF", "5", "PEF"},
		{"Not a number", "FEV1", "abc", "FEV1"},
		{"Not finite", "FVC_pred", "NaN", "FVC_pred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m domain.Measurement
			err := parser.ApplyEdit(&m, tt.key, tt.text)

			var vErr *domain.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
			assert.True(t, m.IsEmpty())
		})
	}
}

func TestMeasurementParser_ApplyEdits_AllOrNothing(t *testing.T) {
	parser := NewMeasurementParser(nil)
	m := domain.Measurement{FEV1: domain.Float(2)}

	err := parser.ApplyEdits(&m, map[string]string{"FVC": "3", "bogus": "1"})
	require.Error(t, err)
	assert.Equal(t, map[domain.Parameter]float64{domain.FEV1: 2}, m.Values())

	require.NoError(t, parser.ApplyEdits(&m, map[string]string{"FVC": "3", "FEV1": ""}))
	assert.Equal(t, map[domain.Parameter]float64{domain.FVC: 3}, m.Values())
}

func TestMeasurementParser_FromNumbers(t *testing.T) {
	parser := NewMeasurementParser(nil)

	m, err := parser.FromNumbers(map[string]float64{"FEV1_FVC": 0, "fvc_pred": 75})
	require.NoError(t, err)
	assert.Equal(t, map[domain.Parameter]float64{domain.FEV1FVC: 0, domain.FVCPred: 75}, m.Values())

	_, err = parser.FromNumbers(map[string]float64{"unknown": 1})
	var vErr *domain.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestMeasurementParser_DuplicateAliases(t *testing.T) {
	parser := NewMeasurementParser(nil)

	t.Run("Numbers rejected", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			_, err := parser.FromNumbers(map[string]float64{"FEV1_FVC": 65, "FEV1/FVC": 75})
			var vErr *domain.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, "FEV1_FVC", vErr.Field)
		}
	})

	t.Run("Edits rejected", func(t *testing.T) {
		m := domain.Measurement{FEV1: domain.Float(2)}
		err := parser.ApplyEdits(&m, map[string]string{"DLCO_pred": "60", "%DLCO": "70"})
		var vErr *domain.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "DLCO_pred", vErr.Field)
		assert.Equal(t, map[domain.Parameter]float64{domain.FEV1: 2}, m.Values())
	})

	t.Run("Extraction prefers canonical key", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			m := parser.FromValues(map[string]any{"FEV1/FVC": 75.0, "FEV1_FVC": 65.0, "FEV1%FVC": 80.0})
			v, ok := m.Get(domain.FEV1FVC)
			require.True(t, ok)
			assert.Equal(t, 65.0, v)
		}
	})

	t.Run("Extraction falls back to sorted order", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			m := parser.FromValues(map[string]any{"FEV1/FVC": 75.0, "FEV1%FVC": 80.0})
			v, ok := m.Get(domain.FEV1FVC)
			require.True(t, ok)
			assert.Equal(t, 80.0, v)
		}
	})
}

func TestMeasurementParser_ManualRatioNotScaled(t *testing.T) {
	parser := NewMeasurementParser(nil)

	var m domain.Measurement
	require.NoError(t, parser.ApplyEdit(&m, "FEV1_FVC", "1"))
	v, _ := m.Get(domain.FEV1FVC)
	assert.Equal(t, 1.0, v)

	m, err := parser.FromNumbers(map[string]float64{"FEV1/FVC": 0.7})
	require.NoError(t, err)
	v, _ = m.Get(domain.FEV1FVC)
	assert.Equal(t, 0.7, v)
}
