// Package mcp implements the Model Context Protocol control surface for
// semdex: the stdio server and its tools.
package mcp

import (
	"errors"
	"fmt"

	semerrors "github.com/semdex/semdex/internal/errors"
)

// MCP error codes. The -320xx range follows JSON-RPC conventions for
// application-defined errors.
const (
	ErrCodeInvalidParams = -32602
	ErrCodeInternalError = -32603

	// ErrCodeIndexingBusy indicates an indexing run is already active.
	ErrCodeIndexingBusy = -32010

	// ErrCodeEmbeddingFailed indicates the embedding provider failed.
	ErrCodeEmbeddingFailed = -32011

	// ErrCodeConfig indicates a configuration problem the operator must fix.
	ErrCodeConfig = -32012

	// ErrCodeDatabase indicates a persistence failure.
	ErrCodeDatabase = -32013
)

// MCPError is the protocol-level error carried back to the client.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// NewInvalidParamsError creates a parameter validation error.
func NewInvalidParamsError(message string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: message}
}

// MapError converts internal errors to MCP errors by taxonomy category.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var me *MCPError
	if errors.As(err, &me) {
		return me
	}

	var se *semerrors.Error
	if !errors.As(err, &se) {
		return &MCPError{Code: ErrCodeInternalError, Message: err.Error()}
	}

	switch {
	case se.Code == semerrors.ErrCodeBusy:
		return &MCPError{Code: ErrCodeIndexingBusy, Message: se.Message}
	case se.Category == semerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: se.Message}
	case se.Category == semerrors.CategoryConfig:
		return &MCPError{Code: ErrCodeConfig, Message: se.Message}
	case se.Category == semerrors.CategoryProvider:
		return &MCPError{Code: ErrCodeEmbeddingFailed, Message: se.Message}
	case se.Category == semerrors.CategoryIO:
		return &MCPError{Code: ErrCodeDatabase, Message: se.Message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: se.Message}
	}
}
