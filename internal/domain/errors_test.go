package domain

import (
	"errors"
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
			name:      "Basic error",
			code:      ErrCodeInvalidInput,
			message:   "Invalid answer vector",
			details:   "answers must contain at most 90 entries",
			requestID: "req-123",
		},
		{
			name:      "Database error",
			code:      ErrCodeDatabaseError,
			message:   "Database connection failed",
			details:   "Unable to connect to PostgreSQL",
			requestID: "req-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAPIError(tt.code, tt.message, tt.details, tt.requestID)

			if err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, err.Code)
			}

			if err.Message != tt.message {
				t.Errorf("Expected message %s, got %s", tt.message, err.Message)
			}

			if err.Details != tt.details {
				t.Errorf("Expected details %s, got %s", tt.details, err.Details)
			}

			if err.RequestID != tt.requestID {
				t.Errorf("Expected requestID %s, got %s", tt.requestID, err.RequestID)
			}

			if time.Since(err.Timestamp) > time.Minute {
				t.Errorf("Timestamp should be recent, got %v", err.Timestamp)
			}

			expectedError := tt.code + ": " + tt.message
			if err.Error() != expectedError {
				t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		message string
		value   interface{}
	}{
		{
			name:    "String validation error",
			field:   "device_id",
			message: "is required",
			value:   "",
		},
		{
			name:    "Integer validation error",
			field:   "answers[3]",
			message: "must be between 0 and 4",
			value:   7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError(tt.field, tt.message, tt.value)

			if err.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, err.Field)
			}

			if err.Message != tt.message {
				t.Errorf("Expected message %s, got %s", tt.message, err.Message)
			}

			if err.Value != tt.value {
				t.Errorf("Expected value %v, got %v", tt.value, err.Value)
			}

			expectedError := "validation error for field '" + tt.field + "': " + tt.message
			if err.Error() != expectedError {
				t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
			}

			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Expected validation error to match ErrInvalidInput")
			}
		})
	}
}

func TestErrorConstants(t *testing.T) {
	constants := map[string]string{
		"ErrCodeInvalidInput":   ErrCodeInvalidInput,
		"ErrCodeNotFound":       ErrCodeNotFound,
		"ErrCodeDatabaseError":  ErrCodeDatabaseError,
		"ErrCodeDeviceMismatch": ErrCodeDeviceMismatch,
		"ErrCodeRateLimit":      ErrCodeRateLimit,
		"ErrCodeAuthentication": ErrCodeAuthentication,
	}

	expectedValues := map[string]string{
		"ErrCodeInvalidInput":   "INVALID_INPUT",
		"ErrCodeNotFound":       "NOT_FOUND",
		"ErrCodeDatabaseError":  "DATABASE_ERROR",
		"ErrCodeDeviceMismatch": "DEVICE_MISMATCH",
		"ErrCodeRateLimit":      "RATE_LIMIT_EXCEEDED",
		"ErrCodeAuthentication": "AUTHENTICATION_ERROR",
	}

	for name, actual := range constants {
		expected := expectedValues[name]
		if actual != expected {
			t.Errorf("Expected %s to be %s, got %s", name, expected, actual)
		}
	}
}
