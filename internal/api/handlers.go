package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pft-analyzer-server/internal/domain"
	"github.com/pft-analyzer-server/internal/extraction"
	"github.com/pft-analyzer-server/internal/middleware"
	"github.com/pft-analyzer-server/internal/narrative"
	"github.com/pft-analyzer-server/internal/service"
)

// SessionResponse is returned by every endpoint that changes a session. The
// interpretation is recomputed from the stored measurement each time.
type SessionResponse struct {
	Session        *domain.Session              `json:"session"`
	Interpretation *domain.InterpretationResult `json:"interpretation"`
	Rendered       narrative.Sections           `json:"rendered"`
}

// InterpretationResponse pairs the structured result with its rendered text.
type InterpretationResponse struct {
	Interpretation *domain.InterpretationResult `json:"interpretation"`
	Rendered       narrative.Sections           `json:"rendered"`
}

// ExtractionResponse reports which strategy read the document and what it found.
type ExtractionResponse struct {
	SessionResponse
	Extraction *domain.ExtractionOutcome `json:"extraction"`
}

// SeverityResponse is the classifier lookup result.
type SeverityResponse struct {
	Parameter domain.Parameter `json:"parameter"`
	Value     float64          `json:"value"`
	Severity  domain.Severity  `json:"severity"`
	Tier      domain.Tier      `json:"tier"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"timestamp":  time.Now().UTC(),
		"version":    Version,
		"extraction": s.analyzer.CanExtract(),
		"narrative":  s.analyzer.CanNarrate(),
	})
}

// handleInterpret interprets a measurement given as a JSON object of
// parameter keys to numbers, without creating a session.
func (s *Server) handleInterpret(c *gin.Context) {
	var body map[string]float64
	if err := c.ShouldBindJSON(&body); err != nil {
		s.respondBadRequest(c, "body must be a JSON object of parameter names to numbers")
		return
	}

	m, err := s.analyzer.Parser().FromNumbers(body)
	if err != nil {
		s.respondError(c, err)
		return
	}

	style, ok := s.style(c)
	if !ok {
		return
	}
	result := s.analyzer.InterpretMeasurement(m)
	c.JSON(http.StatusOK, InterpretationResponse{
		Interpretation: result,
		Rendered:       narrative.NewRenderer(style).Render(result),
	})
}

// handleSeverity grades one % predicted value.
func (s *Server) handleSeverity(c *gin.Context) {
	value, err := strconv.ParseFloat(c.Query("value"), 64)
	if err != nil {
		s.respondBadRequest(c, "value must be a number")
		return
	}

	kind := domain.FEV1Pred
	if raw := c.Query("parameter"); raw != "" {
		p, ok := domain.ResolveParameter(raw)
		if !ok || !p.IsPercentPredicted() {
			s.respondBadRequest(c, fmt.Sprintf("parameter %q is not a %% predicted parameter", raw))
			return
		}
		kind = p
	}

	severity, tier := service.ClassifySeverity(value, kind)
	c.JSON(http.StatusOK, SeverityResponse{Parameter: kind, Value: value, Severity: severity, Tier: tier})
}

func (s *Server) handleCreateSession(c *gin.Context) {
	session, err := s.analyzer.StartSession(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.respondSession(c, http.StatusCreated, session)
}

func (s *Server) handleGetSession(c *gin.Context) {
	session, err := s.analyzer.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.respondSession(c, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	if err := s.analyzer.EndSession(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleResetSession starts a new report in the same session.
func (s *Server) handleResetSession(c *gin.Context) {
	session, err := s.analyzer.ResetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.respondSession(c, http.StatusOK, session)
}

// handleEditMeasurement applies manual edits given as parameter key to text.
// An empty string clears the field.
func (s *Server) handleEditMeasurement(c *gin.Context) {
	var edits map[string]string
	if err := c.ShouldBindJSON(&edits); err != nil {
		s.respondBadRequest(c, "body must be a JSON object of parameter names to strings")
		return
	}

	session, err := s.analyzer.EditFields(c.Request.Context(), c.Param("id"), edits)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.respondSession(c, http.StatusOK, session)
}

// handleReplaceMeasurement overwrites the session measurement with numbers.
func (s *Server) handleReplaceMeasurement(c *gin.Context) {
	var body map[string]float64
	if err := c.ShouldBindJSON(&body); err != nil {
		s.respondBadRequest(c, "body must be a JSON object of parameter names to numbers")
		return
	}

	m, err := s.analyzer.Parser().FromNumbers(body)
	if err != nil {
		s.respondError(c, err)
		return
	}

	session, err := s.analyzer.ReplaceMeasurement(c.Request.Context(), c.Param("id"), m)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.respondSession(c, http.StatusOK, session)
}

// handleExtract reads the multipart "file" upload and merges the values it
// yields into the session.
func (s *Server) handleExtract(c *gin.Context) {
	maxBytes := s.configManager.GetServerConfig().MaxUploadBytes
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, domain.NewAPIError(
				domain.ErrCodeInvalidInput,
				"Upload too large",
				fmt.Sprintf("maximum upload size is %d bytes", maxBytes),
				c.GetString(middleware.CorrelationIDKey),
			))
			return
		}
		s.respondBadRequest(c, "multipart field \"file\" is required")
		return
	}

	file, err := header.Open()
	if err != nil {
		s.respondBadRequest(c, "uploaded file could not be read")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondBadRequest(c, "uploaded file could not be read")
		return
	}

	doc, err := extraction.DetectDocument(header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		s.respondError(c, err)
		return
	}

	outcome, session, err := s.analyzer.ExtractInto(c.Request.Context(), c.Param("id"), doc)
	if err != nil {
		details := attemptSummary(outcome)
		if details == "" {
			details = err.Error()
		}
		s.respondErrorDetails(c, err, domain.ErrCodeExtraction, details)
		return
	}

	style, ok := s.style(c)
	if !ok {
		return
	}
	result := s.analyzer.InterpretMeasurement(session.Measurement)
	c.JSON(http.StatusOK, ExtractionResponse{
		SessionResponse: SessionResponse{
			Session:        session,
			Interpretation: result,
			Rendered:       narrative.NewRenderer(style).Render(result),
		},
		Extraction: outcome,
	})
}

func (s *Server) handleGetInterpretation(c *gin.Context) {
	style, ok := s.style(c)
	if !ok {
		return
	}

	result, err := s.analyzer.Interpret(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, InterpretationResponse{
		Interpretation: result,
		Rendered:       narrative.NewRenderer(style).Render(result),
	})
}

// handleGetReport serves the plain-text report as a download.
func (s *Server) handleGetReport(c *gin.Context) {
	report, err := s.analyzer.Report(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	filename := narrative.ReportFilename(time.Now())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(report))
}

// handleOpinion returns the AI narrative opinion for the session.
func (s *Server) handleOpinion(c *gin.Context) {
	text, err := s.analyzer.Opinion(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondErrorDetails(c, err, domain.ErrCodeNarrative, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"opinion":    text,
		"disclaimer": narrative.Disclaimer,
	})
}

func (s *Server) respondSession(c *gin.Context, status int, session *domain.Session) {
	style, ok := s.style(c)
	if !ok {
		return
	}
	result := s.analyzer.InterpretMeasurement(session.Measurement)
	c.JSON(status, SessionResponse{
		Session:        session,
		Interpretation: result,
		Rendered:       narrative.NewRenderer(style).Render(result),
	})
}

// style reads the optional ?style= query parameter.
func (s *Server) style(c *gin.Context) (narrative.Style, bool) {
	style, err := narrative.ParseStyle(c.Query("style"))
	if err != nil {
		s.respondBadRequest(c, err.Error())
		return narrative.Plain, false
	}
	return style, true
}
