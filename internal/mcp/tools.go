package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/pft-analyzer-server/internal/domain"
	"github.com/pft-analyzer-server/internal/extraction"
	"github.com/pft-analyzer-server/internal/narrative"
	"github.com/pft-analyzer-server/internal/service"
)

// maxDocumentBytes bounds files read by extract_pft.
const maxDocumentBytes = 20 << 20

// Tool names
const (
	ToolInterpret = "interpret_pft"
	ToolSeverity  = "classify_severity"
	ToolReport    = "render_report"
	ToolExtract   = "extract_pft"
	ToolOpinion   = "pft_opinion"
)

// MeasurementInput is shared by the tools that take a PFT record.
type MeasurementInput struct {
	Measurement map[string]float64 `json:"measurement" jsonschema:"PFT values keyed by parameter: FEV1, FEV1_pred, FVC, FVC_pred, FEV1_FVC, TLC, TLC_pred, RV, RV_pred, DLCO, DLCO_pred, FEF25_75. Omit values that were not measured."`
}

// InterpretInput is the interpret_pft argument.
type InterpretInput struct {
	MeasurementInput
	Style string `json:"style,omitempty" jsonschema:"finding text style: plain or markdown"`
}

// InterpretOutput is the interpret_pft result.
type InterpretOutput struct {
	Interpretation *domain.InterpretationResult `json:"interpretation"`
	Rendered       narrative.Sections           `json:"rendered"`
}

// SeverityInput is the classify_severity argument.
type SeverityInput struct {
	Value     float64 `json:"value" jsonschema:"percent predicted value"`
	Parameter string  `json:"parameter,omitempty" jsonschema:"percent predicted parameter being graded, default FEV1_pred"`
}

// SeverityOutput is the classify_severity result.
type SeverityOutput struct {
	Parameter domain.Parameter `json:"parameter"`
	Value     float64          `json:"value"`
	Severity  domain.Severity  `json:"severity"`
	Tier      domain.Tier      `json:"tier"`
}

// ReportInput is the render_report argument.
type ReportInput struct {
	MeasurementInput
	Save bool `json:"save,omitempty" jsonschema:"also write the report to the reports directory"`
}

// ReportOutput is the render_report result.
type ReportOutput struct {
	Report string `json:"report"`
	Path   string `json:"path,omitempty"`
}

// ExtractInput is the extract_pft argument. Exactly one of Path and Text is set.
type ExtractInput struct {
	Path      string `json:"path,omitempty" jsonschema:"local path of a PFT report image, PDF or text file"`
	Text      string `json:"text,omitempty" jsonschema:"PFT report text, for example OCR output"`
	Interpret bool   `json:"interpret,omitempty" jsonschema:"also interpret the extracted values"`
}

// ExtractOutput is the extract_pft result.
type ExtractOutput struct {
	Strategy       string                       `json:"strategy"`
	Values         map[domain.Parameter]float64 `json:"values"`
	Attempts       []domain.ExtractionAttempt   `json:"attempts"`
	Interpretation *domain.InterpretationResult `json:"interpretation,omitempty"`
}

// OpinionOutput is the pft_opinion result.
type OpinionOutput struct {
	Opinion string `json:"opinion"`
}

// registerTools registers tools with the MCP SDK.
func (s *Server) registerTools() {
	s.logger.Info("Registering tools with MCP SDK...")

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolInterpret,
		Description: "Interpret pulmonary function test values: ventilatory pattern, severity, lung volumes, diffusion capacity, impression and differential.",
	}, s.handleInterpret)
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolSeverity,
		Description: "Grade a percent predicted value from Normal to Very Severe.",
	}, s.handleSeverity)
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolReport,
		Description: "Render the plain-text PFT interpretation report for a set of values.",
	}, s.handleReport)
	s.tools = []string{ToolInterpret, ToolSeverity, ToolReport}

	if s.extractor != nil {
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        ToolExtract,
			Description: "Extract PFT values from a report file or report text.",
		}, s.handleExtract)
		s.tools = append(s.tools, ToolExtract)
	}
	if s.opinion != nil {
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        ToolOpinion,
			Description: "Ask an AI model for a pulmonologist style narrative on PFT values. The rule-based interpretation remains canonical.",
		}, s.handleOpinion)
		s.tools = append(s.tools, ToolOpinion)
	}

	s.logger.WithField("tool_count", len(s.tools)).Info("Successfully registered all tools")
}

func (s *Server) handleInterpret(ctx context.Context, req *mcp.CallToolRequest, in InterpretInput) (*mcp.CallToolResult, InterpretOutput, error) {
	s.logger.WithField("tool", ToolInterpret).Info("Tool invoked")

	m, err := s.parser.FromNumbers(in.Measurement)
	if err != nil {
		return nil, InterpretOutput{}, err
	}
	style := s.style
	if in.Style != "" {
		if style, err = narrative.ParseStyle(in.Style); err != nil {
			return nil, InterpretOutput{}, err
		}
	}

	result := s.interpreter.Interpret(m)
	out := InterpretOutput{
		Interpretation: result,
		Rendered:       narrative.NewRenderer(style).Render(result),
	}
	return textResult(renderSections(out.Rendered)), out, nil
}

func (s *Server) handleSeverity(ctx context.Context, req *mcp.CallToolRequest, in SeverityInput) (*mcp.CallToolResult, SeverityOutput, error) {
	s.logger.WithField("tool", ToolSeverity).Info("Tool invoked")

	kind := domain.FEV1Pred
	if in.Parameter != "" {
		p, ok := domain.ResolveParameter(in.Parameter)
		if !ok || !p.IsPercentPredicted() {
			return nil, SeverityOutput{}, domain.NewValidationError("parameter", "not a percent predicted parameter", in.Parameter)
		}
		kind = p
	}

	severity, tier := service.ClassifySeverity(in.Value, kind)
	out := SeverityOutput{Parameter: kind, Value: in.Value, Severity: severity, Tier: tier}
	text := fmt.Sprintf("%s %s: %s (%s)", kind.Label(), narrative.FormatValue(in.Value), severity, tier)
	return textResult(text), out, nil
}

func (s *Server) handleReport(ctx context.Context, req *mcp.CallToolRequest, in ReportInput) (*mcp.CallToolResult, ReportOutput, error) {
	s.logger.WithField("tool", ToolReport).Info("Tool invoked")

	m, err := s.parser.FromNumbers(in.Measurement)
	if err != nil {
		return nil, ReportOutput{}, err
	}

	generatedAt := s.now()
	out := ReportOutput{Report: narrative.BuildReport(m, s.interpreter.Interpret(m), generatedAt)}

	if in.Save {
		if err := s.config.EnsureDataDir(); err != nil {
			return nil, ReportOutput{}, fmt.Errorf("creating report directory: %w", err)
		}
		out.Path = filepath.Join(s.config.ReportDir(), narrative.ReportFilename(generatedAt))
		if err := os.WriteFile(out.Path, []byte(out.Report), 0o600); err != nil {
			return nil, ReportOutput{}, fmt.Errorf("saving report: %w", err)
		}
		s.logger.WithField("path", out.Path).Info("Saved PFT report")
	}

	return textResult(out.Report), out, nil
}

func (s *Server) handleExtract(ctx context.Context, req *mcp.CallToolRequest, in ExtractInput) (*mcp.CallToolResult, ExtractOutput, error) {
	s.logger.WithField("tool", ToolExtract).Info("Tool invoked")

	doc, err := loadDocument(in)
	if err != nil {
		return nil, ExtractOutput{}, err
	}

	outcome, err := s.extractor.Extract(ctx, doc)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"document":  doc.Name,
			"mime_type": doc.MIMEType,
		}).Warn("Document extraction failed")
		if outcome != nil && len(outcome.Attempts) > 0 {
			return nil, ExtractOutput{}, fmt.Errorf("extracting %s: %w (%s)", doc.Name, err, describeAttempts(outcome.Attempts))
		}
		return nil, ExtractOutput{}, fmt.Errorf("extracting %s: %w", doc.Name, err)
	}

	m := s.parser.FromValues(outcome.Values)
	outcome.Measurement = m
	out := ExtractOutput{
		Strategy: outcome.Strategy,
		Values:   m.Values(),
		Attempts: outcome.Attempts,
	}
	if in.Interpret {
		out.Interpretation = s.interpreter.Interpret(m)
	}

	encoded, err := json.MarshalIndent(out.Values, "", "  ")
	if err != nil {
		return nil, ExtractOutput{}, err
	}
	return textResult(fmt.Sprintf("Extracted with %s:\n%s", out.Strategy, encoded)), out, nil
}

func (s *Server) handleOpinion(ctx context.Context, req *mcp.CallToolRequest, in MeasurementInput) (*mcp.CallToolResult, OpinionOutput, error) {
	s.logger.WithField("tool", ToolOpinion).Info("Tool invoked")

	m, err := s.parser.FromNumbers(in.Measurement)
	if err != nil {
		return nil, OpinionOutput{}, err
	}
	result := s.interpreter.Interpret(m)
	if result.InsufficientData {
		return nil, OpinionOutput{}, domain.NewValidationError("measurement", "no spirometry, volume or diffusion values to interpret", "")
	}

	text, err := s.opinion.Opinion(ctx, m, result)
	if err != nil {
		return nil, OpinionOutput{}, fmt.Errorf("generating opinion: %w", err)
	}
	out := OpinionOutput{Opinion: narrative.WithDisclaimer(text)}
	return textResult(out.Opinion), out, nil
}

// loadDocument reads the document named by the extract_pft input.
func loadDocument(in ExtractInput) (domain.Document, error) {
	switch {
	case in.Path != "" && in.Text != "":
		return domain.Document{}, domain.NewValidationError("path", "set either path or text, not both", in.Path)
	case in.Text != "":
		return domain.Document{Name: "text", MIMEType: domain.MIMEText, Data: []byte(in.Text)}, nil
	case in.Path == "":
		return domain.Document{}, domain.NewValidationError("path", "path or text is required", "")
	}

	info, err := os.Stat(in.Path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("reading %s: %w", in.Path, err)
	}
	if info.Size() > maxDocumentBytes {
		return domain.Document{}, domain.NewValidationError("path", fmt.Sprintf("file exceeds %d bytes", maxDocumentBytes), in.Path)
	}
	data, err := os.ReadFile(in.Path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("reading %s: %w", in.Path, err)
	}
	return extraction.DetectDocument(filepath.Base(in.Path), "", data)
}

func describeAttempts(attempts []domain.ExtractionAttempt) string {
	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		switch {
		case a.Skipped:
			parts = append(parts, a.Strategy+": skipped")
		case a.Error != "":
			parts = append(parts, a.Strategy+": "+a.Error)
		default:
			parts = append(parts, fmt.Sprintf("%s: %d fields", a.Strategy, a.Fields))
		}
	}
	return strings.Join(parts, "; ")
}

func renderSections(sections narrative.Sections) string {
	var b strings.Builder
	write := func(title string, lines []string) {
		b.WriteString(title)
		b.WriteString("\n")
		for _, line := range lines {
			b.WriteString("  ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	write("Spirometry", sections.Spirometry)
	write("Lung volumes", sections.LungVolumes)
	write("Diffusion", sections.Diffusion)
	write("Impression", sections.Impression)
	return strings.TrimRight(b.String(), "\n")
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
