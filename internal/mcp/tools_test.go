package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pft-analyzer-server/internal/domain"
	"github.com/pft-analyzer-server/internal/narrative"
)

const reportText = `Spirometry        Ref     Pre    % Pred
FEV1 (L)          3.10    1.86   60
FVC (L)           4.02    3.30   82
FEV1/FVC (%)      77      56     73
DLCO              24.1    14.2   59
`

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestHandleInterpret(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name         string
		input        InterpretInput
		wantPattern  domain.Pattern
		insufficient bool
		wantErr      bool
	}{
		{
			name: "obstructive",
			input: InterpretInput{MeasurementInput: MeasurementInput{Measurement: map[string]float64{
				"FEV1_FVC": 56, "FEV1_pred": 60, "FVC_pred": 82,
			}}},
			wantPattern: domain.PatternObstructive,
		},
		{
			name: "restrictive with aliases",
			input: InterpretInput{MeasurementInput: MeasurementInput{Measurement: map[string]float64{
				"fev1/fvc": 85, "FEV1 % pred": 70, "fvc_pred": 65,
			}}},
			wantPattern: domain.PatternRestrictive,
		},
		{
			name:         "empty record",
			input:        InterpretInput{},
			wantPattern:  domain.PatternNormal,
			insufficient: true,
		},
		{
			name: "unknown parameter",
			input: InterpretInput{MeasurementInput: MeasurementInput{Measurement: map[string]float64{
				"PEF": 80,
			}}},
			wantErr: true,
		},
		{
			name: "unknown style",
			input: InterpretInput{
				MeasurementInput: MeasurementInput{Measurement: map[string]float64{"FEV1_pred": 90}},
				Style:            "html",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, out, err := server.handleInterpret(context.Background(), nil, tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, out.Interpretation)
			assert.Equal(t, tt.wantPattern, out.Interpretation.Pattern)
			assert.Equal(t, tt.insufficient, out.Interpretation.InsufficientData)
			assert.NotEmpty(t, out.Rendered.Impression)
			assert.Contains(t, resultText(t, result), "Impression")
		})
	}
}

func TestHandleInterpret_MarkdownStyle(t *testing.T) {
	server := newTestServer(t)

	input := InterpretInput{
		MeasurementInput: MeasurementInput{Measurement: map[string]float64{"FEV1_FVC": 56, "FEV1_pred": 60, "FVC_pred": 82}},
		Style:            "markdown",
	}
	_, out, err := server.handleInterpret(context.Background(), nil, input)
	require.NoError(t, err)

	plain, _, err := server.handleInterpret(context.Background(), nil, InterpretInput{MeasurementInput: input.MeasurementInput})
	require.NoError(t, err)
	assert.Contains(t, renderSections(out.Rendered), "**")
	assert.NotContains(t, resultText(t, plain), "**")
}

func TestHandleSeverity(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name          string
		input         SeverityInput
		wantParameter domain.Parameter
		wantSeverity  domain.Severity
		wantTier      domain.Tier
		wantErr       bool
	}{
		{
			name:          "default parameter",
			input:         SeverityInput{Value: 85},
			wantParameter: domain.FEV1Pred,
			wantSeverity:  domain.SeverityNormal,
			wantTier:      domain.TierNormal,
		},
		{
			name:          "moderate dlco",
			input:         SeverityInput{Value: 62, Parameter: "dlco_pred"},
			wantParameter: domain.DLCOPred,
			wantSeverity:  domain.SeverityModerate,
			wantTier:      domain.TierWarning,
		},
		{
			name:          "very severe",
			input:         SeverityInput{Value: 20, Parameter: "FVC_pred"},
			wantParameter: domain.FVCPred,
			wantSeverity:  domain.SeverityVerySevere,
			wantTier:      domain.TierAbnormal,
		},
		{
			name:    "absolute parameter rejected",
			input:   SeverityInput{Value: 60, Parameter: "FEV1"},
			wantErr: true,
		},
		{
			name:    "unknown parameter rejected",
			input:   SeverityInput{Value: 60, Parameter: "PEF"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, out, err := server.handleSeverity(context.Background(), nil, tt.input)
			if tt.wantErr {
				var validationErr *domain.ValidationError
				assert.True(t, errors.As(err, &validationErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantParameter, out.Parameter)
			assert.Equal(t, tt.wantSeverity, out.Severity)
			assert.Equal(t, tt.wantTier, out.Tier)
			assert.Contains(t, resultText(t, result), string(tt.wantSeverity))
		})
	}
}

func TestHandleReport(t *testing.T) {
	server := newTestServer(t)
	input := ReportInput{MeasurementInput: MeasurementInput{Measurement: map[string]float64{
		"FEV1_FVC": 56, "FEV1_pred": 60, "FVC_pred": 82,
	}}}

	result, out, err := server.handleReport(context.Background(), nil, input)
	require.NoError(t, err)
	assert.Empty(t, out.Path)
	assert.Contains(t, out.Report, "PATTERN: Obstructive")
	assert.Contains(t, out.Report, "Generated: 2024-03-05 14:30 UTC")
	assert.Contains(t, out.Report, narrative.Disclaimer)
	assert.Equal(t, out.Report, resultText(t, result))

	_, err = os.Stat(server.config.ReportDir())
	assert.True(t, os.IsNotExist(err), "nothing is written unless save is set")
}

func TestHandleReport_Save(t *testing.T) {
	server := newTestServer(t)
	input := ReportInput{
		MeasurementInput: MeasurementInput{Measurement: map[string]float64{"TLC_pred": 70}},
		Save:             true,
	}

	_, out, err := server.handleReport(context.Background(), nil, input)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(server.config.ReportDir(), "pft_report_20240305_1430.txt"), out.Path)
	saved, err := os.ReadFile(out.Path)
	require.NoError(t, err)
	assert.Equal(t, out.Report, string(saved))

	info, err := os.Stat(out.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestHandleExtract_Text(t *testing.T) {
	server := newTestServer(t)

	result, out, err := server.handleExtract(context.Background(), nil, ExtractInput{Text: reportText, Interpret: true})
	require.NoError(t, err)

	assert.Equal(t, "text-patterns", out.Strategy)
	assert.Equal(t, map[domain.Parameter]float64{
		domain.FEV1:     1.86,
		domain.FEV1Pred: 60,
		domain.FVC:      3.30,
		domain.FVCPred:  82,
		domain.FEV1FVC:  56,
		domain.DLCO:     14.2,
		domain.DLCOPred: 59,
	}, out.Values)
	require.NotNil(t, out.Interpretation)
	assert.Equal(t, domain.PatternObstructive, out.Interpretation.Pattern)
	assert.Contains(t, resultText(t, result), "Extracted with text-patterns")
}

func TestHandleExtract_File(t *testing.T) {
	server := newTestServer(t)
	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(path, []byte(reportText), 0o600))

	_, out, err := server.handleExtract(context.Background(), nil, ExtractInput{Path: path})
	require.NoError(t, err)

	assert.Equal(t, "text-patterns", out.Strategy)
	assert.Nil(t, out.Interpretation)
	assert.Len(t, out.Values, 7)
}

func TestHandleExtract_UsesExtractor(t *testing.T) {
	extractor := &stubExtractor{outcome: &domain.ExtractionOutcome{
		Strategy: "gemini:test",
		Values:   map[string]any{"FEV1_pred": 72.0, "FEV1_FVC": 0.5},
		Attempts: []domain.ExtractionAttempt{{Strategy: "gemini:test", Fields: 2}},
	}}
	server := newTestServer(t, WithExtractor(extractor))
	path := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n0000"), 0o600))

	_, out, err := server.handleExtract(context.Background(), nil, ExtractInput{Path: path})
	require.NoError(t, err)

	require.Len(t, extractor.docs, 1)
	assert.Equal(t, domain.MIMEPNG, extractor.docs[0].MIMEType)
	assert.Equal(t, "scan.png", extractor.docs[0].Name)
	assert.Equal(t, map[domain.Parameter]float64{domain.FEV1Pred: 72, domain.FEV1FVC: 50}, out.Values)
}

func TestHandleExtract_Errors(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "archive.zip")
	require.NoError(t, os.WriteFile(zipPath, []byte("PK\x03\x04"), 0o600))
	pngPath := filepath.Join(dir, "scan.png")
	require.NoError(t, os.WriteFile(pngPath, []byte("\x89PNG\r\n\x1a\n0000"), 0o600))

	tests := []struct {
		name    string
		input   ExtractInput
		wantErr error
	}{
		{
			name:  "no input",
			input: ExtractInput{},
		},
		{
			name:  "both path and text",
			input: ExtractInput{Path: zipPath, Text: reportText},
		},
		{
			name:  "missing file",
			input: ExtractInput{Path: filepath.Join(dir, "missing.pdf")},
		},
		{
			name:    "unsupported type",
			input:   ExtractInput{Path: zipPath},
			wantErr: domain.ErrUnsupportedDocument,
		},
		{
			name:    "image without vision strategy",
			input:   ExtractInput{Path: pngPath},
			wantErr: domain.ErrUnsupportedDocument,
		},
		{
			name:    "text without values",
			input:   ExtractInput{Text: "no numbers here"},
			wantErr: domain.ErrExtractionExhausted,
		},
	}

	server := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _, err := server.handleExtract(context.Background(), nil, tt.input)
			require.Error(t, err)
			assert.Nil(t, result)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestHandleOpinion(t *testing.T) {
	measurement := MeasurementInput{Measurement: map[string]float64{"FEV1_FVC": 56, "FEV1_pred": 60, "FVC_pred": 82}}

	t.Run("success", func(t *testing.T) {
		opinion := &stubOpinion{text: "Moderate obstruction."}
		server := newTestServer(t, WithOpinion(opinion))

		result, out, err := server.handleOpinion(context.Background(), nil, measurement)
		require.NoError(t, err)
		assert.Equal(t, 1, opinion.calls)
		assert.Contains(t, out.Opinion, "Moderate obstruction.")
		assert.Contains(t, out.Opinion, narrative.Disclaimer)
		assert.Equal(t, out.Opinion, resultText(t, result))
	})

	t.Run("insufficient data", func(t *testing.T) {
		opinion := &stubOpinion{text: "unused"}
		server := newTestServer(t, WithOpinion(opinion))

		_, _, err := server.handleOpinion(context.Background(), nil, MeasurementInput{})
		require.Error(t, err)
		assert.Zero(t, opinion.calls)
	})

	t.Run("provider failure", func(t *testing.T) {
		server := newTestServer(t, WithOpinion(&stubOpinion{err: errors.New("quota exceeded")}))

		_, _, err := server.handleOpinion(context.Background(), nil, measurement)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quota exceeded")
	})
}
