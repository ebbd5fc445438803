package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		message   string
		details   string
		requestID string
	}{
		{
			name:      "Validation error",
			code:      ErrCodeValidation,
			message:   "Invalid measurement value",
			details:   "FEV1_pred must be numeric",
			requestID: "req-123",
		},
		{
			name:      "Extraction error",
			code:      ErrCodeExtraction,
			message:   "Extraction failed",
			details:   "all strategies exhausted",
			requestID: "req-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := time.Now().UTC()
			err := NewAPIError(tt.code, tt.message, tt.details, tt.requestID)
			after := time.Now().UTC()

			if err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, err.Code)
			}
			if err.RequestID != tt.requestID {
				t.Errorf("Expected request ID %s, got %s", tt.requestID, err.RequestID)
			}
			if err.Timestamp.Before(before) || err.Timestamp.After(after) {
				t.Errorf("Timestamp %v not within [%v, %v]", err.Timestamp, before, after)
			}

			expected := fmt.Sprintf("%s: %s", tt.code, tt.message)
			if err.Error() != expected {
				t.Errorf("Expected error string %q, got %q", expected, err.Error())
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name      string
		err       *ValidationError
		want      string
		parameter Parameter
		isParam   bool
	}{
		{
			name:      "Edit with raw input",
			err:       NewValidationError("FEV1_pred", "value must be a number", "abc"),
			want:      `FEV1_pred: value must be a number (got "abc")`,
			parameter: FEV1Pred,
			isParam:   true,
		},
		{
			name: "Non parameter field",
			err:  NewValidationError("measurement", "no values to interpret", ""),
			want: "measurement: no values to interpret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, tt.err.Error())
			}
			p, ok := tt.err.Parameter()
			if ok != tt.isParam || (ok && p != tt.parameter) {
				t.Errorf("Expected parameter %q (%t), got %q (%t)", tt.parameter, tt.isParam, p, ok)
			}
		})
	}

	var wrapped error = fmt.Errorf("edit failed: %w", NewValidationError("FVC", "value must be a number", "lots"))
	var target *ValidationError
	if !errors.As(wrapped, &target) {
		t.Fatal("Expected wrapped error to unwrap to *ValidationError")
	}
	if target.Input != "lots" {
		t.Errorf("Expected input lots, got %q", target.Input)
	}
}
