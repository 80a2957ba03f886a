package errors

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid request", NewInvalidRequestError("bad", nil), StatusBadRequest},
		{"conflict", NewConflictError("dup", nil), StatusConflict},
		{"not found", NewNotFoundError("missing", nil), StatusNotFound},
		{"database", NewDatabaseError("db", nil), StatusInternalServerError},
		{"upstream", NewUpstreamError("llm", nil), StatusInternalServerError},
		{"internal", NewInternalServerError("boom", nil), StatusInternalServerError},
		{"wrapped", fmt.Errorf("outer: %w", NewConflictError("dup", nil)), StatusConflict},
		{"plain error", fmt.Errorf("boom"), StatusInternalServerError},
		{"nil", nil, StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatusCode(tc.err))
		})
	}
}

func TestGetHumanReadableMessage_HidesInternalDetails(t *testing.T) {
	assert.Equal(t, "Invalid email format", GetHumanReadableMessage(NewInvalidRequestError("Invalid email format", nil)))
	assert.Equal(t, "Email already registered", GetHumanReadableMessage(NewConflictError("Email already registered", nil)))

	assert.Equal(t, GenericErrorMessage, GetHumanReadableMessage(NewDatabaseError("unable to count waitlist entries", fmt.Errorf("dial tcp"))))
	assert.Equal(t, GenericErrorMessage, GetHumanReadableMessage(NewUpstreamError("completion failed", fmt.Errorf("401"))))
	assert.Equal(t, GenericErrorMessage, GetHumanReadableMessage(fmt.Errorf("pq: password authentication failed")))
}

func TestIsDuplicateKeyError(t *testing.T) {
	assert.True(t, IsDuplicateKeyError(fmt.Errorf("UNIQUE constraint failed: waitlist_entries.email")))
	assert.True(t, IsDuplicateKeyError(fmt.Errorf(`ERROR: duplicate key value violates unique constraint "idx_email"`)))
	assert.True(t, IsDuplicateKeyError(fmt.Errorf("E11000 duplicate key error collection: mehfil.waitlist")))
	assert.True(t, IsDuplicateKeyError(NewConflictError("exists", nil)))
	assert.False(t, IsDuplicateKeyError(fmt.Errorf("connection refused")))
	assert.False(t, IsDuplicateKeyError(nil))
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(NewInvalidRequestError("x", nil)))
	assert.True(t, IsClientError(NewConflictError("x", nil)))
	assert.False(t, IsClientError(NewUpstreamError("x", nil)))
	assert.False(t, IsClientError(fmt.Errorf("x")))
}

func TestFormatValidationErrors(t *testing.T) {
	type payload struct {
		UserType string `json:"userType" validate:"required,oneof=vendor couple"`
	}

	t.Run("validator errors use json field names", func(t *testing.T) {
		err := validator.New().Struct(&payload{UserType: "planner"})
		out := FormatValidationErrors(err, &payload{})

		assert.Len(t, out, 1)
		assert.Equal(t, "userType", out[0].Field)
		assert.Equal(t, "Must be one of: vendor couple", out[0].Message)
	})

	t.Run("json type errors", func(t *testing.T) {
		var p payload
		err := json.Unmarshal([]byte(`{"userType": 12}`), &p)
		out := FormatValidationErrors(err, &p)

		assert.Len(t, out, 1)
		assert.Equal(t, "userType", out[0].Field)
	})

	t.Run("unknown errors yield nothing", func(t *testing.T) {
		assert.Empty(t, FormatValidationErrors(fmt.Errorf("unexpected EOF"), nil))
	})
}
