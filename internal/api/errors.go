package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pft-analyzer-server/internal/domain"
	"github.com/pft-analyzer-server/internal/middleware"
	"github.com/pft-analyzer-server/internal/resilience"
)

// classifyError maps an error from the analysis workflow to an HTTP status
// and a stable error code. Unrecognized errors are internal unless an
// upstream code is given, in which case they are reported as bad gateway.
func classifyError(err error, upstreamCode string) (int, string, string) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, domain.ErrCodeValidation, "Invalid measurement value"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, domain.ErrCodeSessionNotFound, "Session not found or expired"
	case errors.Is(err, domain.ErrUnsupportedDocument):
		return http.StatusUnsupportedMediaType, domain.ErrCodeUnsupportedDocument, "Unsupported document type"
	case errors.Is(err, domain.ErrExtractionNotConfigured):
		return http.StatusServiceUnavailable, domain.ErrCodeExtraction, "Document extraction is not configured"
	case errors.Is(err, domain.ErrExtractionExhausted):
		return http.StatusUnprocessableEntity, domain.ErrCodeExtraction, "No PFT values could be extracted from the document"
	case errors.Is(err, domain.ErrNarrativeNotConfigured):
		return http.StatusServiceUnavailable, domain.ErrCodeNarrative, "AI opinion is not configured"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, domain.ErrCodeInternalServer, "Request timeout"
	case resilience.IsOpen(err) && upstreamCode != "":
		return http.StatusServiceUnavailable, upstreamCode, "Upstream model temporarily unavailable"
	case upstreamCode != "":
		return http.StatusBadGateway, upstreamCode, "Upstream model request failed"
	default:
		return http.StatusInternalServerError, domain.ErrCodeInternalServer, "Internal server error"
	}
}

// respondError writes err as an APIError.
func (s *Server) respondError(c *gin.Context, err error) {
	s.respondErrorDetails(c, err, "", err.Error())
}

func (s *Server) respondErrorDetails(c *gin.Context, err error, upstreamCode, details string) {
	status, code, message := classifyError(err, upstreamCode)
	requestID := c.GetString(middleware.CorrelationIDKey)

	entry := s.logger.WithError(err).WithFields(logrus.Fields{
		"correlation_id": requestID,
		"code":           code,
		"status":         status,
		"path":           c.FullPath(),
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
		// Internal failures are not echoed to clients.
		if code == domain.ErrCodeInternalServer {
			details = ""
		}
	} else {
		entry.Debug("Request rejected")
	}

	apiErr := domain.NewAPIError(code, message, details, requestID)
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		apiErr.Field = validationErr.Field
	}
	c.AbortWithStatusJSON(status, apiErr)
}

// respondBadRequest rejects a malformed request body or query.
func (s *Server) respondBadRequest(c *gin.Context, details string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, domain.NewAPIError(
		domain.ErrCodeInvalidInput,
		"Invalid request",
		details,
		c.GetString(middleware.CorrelationIDKey),
	))
}

// attemptSummary lists what every extraction strategy did with a document.
func attemptSummary(outcome *domain.ExtractionOutcome) string {
	if outcome == nil || len(outcome.Attempts) == 0 {
		return ""
	}
	parts := make([]string, 0, len(outcome.Attempts))
	for _, a := range outcome.Attempts {
		switch {
		case a.Skipped:
			parts = append(parts, a.Strategy+": skipped")
		case a.Error != "":
			parts = append(parts, a.Strategy+": "+a.Error)
		default:
			parts = append(parts, a.Strategy+": ok")
		}
	}
	return strings.Join(parts, "; ")
}
