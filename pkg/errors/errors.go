// SPDX-License-Identifier: Apache-2.0
// Package errors provides typed error handling with rich context for Praxis.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies Praxis errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeNotFound indicates a resource was not found.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeContextLost indicates context was canceled or lost mid-operation.
	CodeContextLost ErrorCode = "CONTEXT_LOST"

	// CodeSkillNotAvailable indicates a skill was requested outside the active set.
	CodeSkillNotAvailable ErrorCode = "SKILL_NOT_AVAILABLE"

	// CodeParameterParse indicates raw parameters failed schema validation.
	CodeParameterParse ErrorCode = "PARAMETER_PARSE"

	// CodeSkillExecution indicates a skill callable failed during invocation.
	CodeSkillExecution ErrorCode = "SKILL_EXECUTION"

	// CodeNameCollision indicates a dynamic registration conflicted with an
	// existing skill of a different fingerprint.
	CodeNameCollision ErrorCode = "NAME_COLLISION"

	// CodePlanValidation indicates a plan step referenced a skill outside the
	// curated set.
	CodePlanValidation ErrorCode = "PLAN_VALIDATION"

	// CodePerception indicates a capture or augmentation call failed.
	CodePerception ErrorCode = "PERCEPTION_FAILURE"

	// CodeProvider indicates a malformed, empty, or failed reasoning-provider
	// response.
	CodeProvider ErrorCode = "PROVIDER_ERROR"

	// CodeFailureLimit indicates the consecutive-failure limit was exceeded.
	CodeFailureLimit ErrorCode = "FAILURE_LIMIT_EXCEEDED"

	// CodeMemoryError indicates a working-memory or snapshot error.
	CodeMemoryError ErrorCode = "MEMORY_ERROR"
)

// AgentError is a typed error with rich context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type AgentError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Recoverable bool
}

// Error implements the error interface.
func (e *AgentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *AgentError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *AgentError) MarshalJSON() ([]byte, error) {
	type Alias AgentError
	return json.Marshal(&struct {
		Message     string `json:"message"`
		Code        string `json:"code"`
		Err         string `json:"error,omitempty"`
		Recoverable bool   `json:"recoverable"`
		*Alias
	}{
		Message:     e.Error(),
		Code:        string(e.Code),
		Err:         fmt.Sprintf("%v", e.Err),
		Recoverable: e.Recoverable,
		Alias:       (*Alias)(e),
	})
}

// New creates a new AgentError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *AgentError {
	return &AgentError{
		Code:    code,
		Message: msg,
		Err:     cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *AgentError) WithContext(key string, value interface{}) *AgentError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *AgentError) WithRecoverable(recoverable bool) *AgentError {
	e.Recoverable = recoverable
	return e
}

// AsAgentError attempts to convert an error to an AgentError.
// Returns the error as AgentError if it is one, or wraps it otherwise.
func AsAgentError(err error) *AgentError {
	if err == nil {
		return nil
	}
	var ae *AgentError
	if stderrors.As(err, &ae) {
		return ae
	}
	return New(CodeInternal, "wrapped error", err)
}

// CodeOf returns the error code of err, or CodeInternal for untyped errors.
// Returns an empty code for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var ae *AgentError
	if stderrors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given error code.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// RecoverableString returns "true" or "false" as a string for observability.
func (e *AgentError) RecoverableString() string {
	if e.Recoverable {
		return "true"
	}
	return "false"
}
