package extraction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pft-analyzer-server/internal/domain"
)

func TestParseReportText_TableWithHeader(t *testing.T) {
	text := `PULMONARY FUNCTION REPORT
Patient: J. Doe    Age: 64

Spirometry        Ref     Pre    % Pred   Post
FEV1 (L)          3.10    1.86   60       1.95
FVC (L)           4.02    3.30   82       3.35
FEV1/FVC (%)      77      56     73
FEF25-75 (L/s)    3.2     0.9    28

Lung Volumes
TLC (L)           6.10    7.50   123
RV (L)            2.20    3.50   159
RV/TLC (%)        36      47     130

Diffusion
DLCO              24.1    14.2   59
DLCO/VA           4.3     3.9    91
`

	values := ParseReportText(text)

	assert.Equal(t, map[string]any{
		"FEV1":      1.86,
		"FEV1_pred": 60.0,
		"FVC":       3.30,
		"FVC_pred":  82.0,
		"FEV1_FVC":  56.0,
		"FEF25_75":  0.9,
		"TLC":       7.50,
		"TLC_pred":  123.0,
		"RV":        3.50,
		"RV_pred":   159.0,
		"DLCO":      14.2,
		"DLCO_pred": 59.0,
	}, values)
}

func TestParseReportText_DefaultLayout(t *testing.T) {
	values := ParseReportText("FEV1 2.10 3.00 70\nFVC 3.00\nDLCO 18.2 25.0 73")

	assert.Equal(t, map[string]any{
		"FEV1":      2.10,
		"FEV1_pred": 70.0,
		"FVC":       3.00,
		"DLCO":      18.2,
		"DLCO_pred": 73.0,
	}, values)
}

func TestParseReportText_KeyValueLines(t *testing.T) {
	text := `FEV1 % pred: 62
FVC_pred = 71
FEV1/FVC: 65%
TLC % predicted 68
DLCO_pred: 48`

	assert.Equal(t, map[string]any{
		"FEV1_pred": 62.0,
		"FVC_pred":  71.0,
		"FEV1_FVC":  65.0,
		"TLC_pred":  68.0,
		"DLCO_pred": 48.0,
	}, ParseReportText(text))
}

func TestParseReportText_FirstValueWins(t *testing.T) {
	values := ParseReportText("FEV1/FVC 62\nFEV1/FVC 66")
	assert.Equal(t, 62.0, values["FEV1_FVC"])
}

func TestParseReportText_ProseIsNotAHeader(t *testing.T) {
	text := "Effort was good and the value is reproducible\nFEV1 2.10 3.00 70"
	assert.Equal(t, 70.0, ParseReportText(text)["FEV1_pred"])
}

func TestTextPatternExtractor(t *testing.T) {
	e := NewTextPatternExtractor()
	ctx := context.Background()

	assert.Equal(t, "text-patterns", e.Name())
	assert.True(t, e.Supports(domain.Document{MIMEType: domain.MIMEText}))
	assert.False(t, e.Supports(domain.Document{MIMEType: domain.MIMEPNG}))

	values, err := e.Extract(ctx, domain.Document{MIMEType: domain.MIMEText, Data: []byte("FVC_pred: 70")})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"FVC_pred": 70.0}, values)

	_, err = e.Extract(ctx, domain.Document{MIMEType: domain.MIMEText, Data: []byte("no numbers here")})
	assert.ErrorIs(t, err, ErrNoValuesFound)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = e.Extract(cancelled, domain.Document{MIMEType: domain.MIMEText, Data: []byte("FVC_pred: 70")})
	assert.ErrorIs(t, err, context.Canceled)
}
