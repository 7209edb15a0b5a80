// Package errors provides custom error types for the ppmi500 curation pipeline.
// These errors enable better error handling, programmatic error checking,
// and improved debugging throughout the application.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the curation pipeline
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrMissingColumn indicates that a table lacks a required column
	ErrMissingColumn = errors.New("missing column")

	// ErrUnrecognizedCode indicates a QC cell outside the known pass/fail vocabulary
	ErrUnrecognizedCode = errors.New("unrecognized QC code")

	// ErrObjectStore indicates that the remote metadata store failed
	ErrObjectStore = errors.New("object store failure")

	// ErrKeyMismatch indicates that output visit keys differ from the identity table
	ErrKeyMismatch = errors.New("visit key mismatch")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ColumnError reports a column that an operation needs but a table does not carry.
type ColumnError struct {
	Table  string
	Column string
}

// Error implements the error interface
func (e *ColumnError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("table %s has no column %q", e.Table, e.Column)
	}
	return fmt.Sprintf("table has no column %q", e.Column)
}

// Is implements errors.Is support
func (e *ColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}

// NewColumnError creates a new ColumnError
func NewColumnError(table, column string) *ColumnError {
	return &ColumnError{Table: table, Column: column}
}

// UnrecognizedCodeError describes a reviewer cell whose text is not a known
// pass/fail encoding. The cell is treated as missing by the consolidator.
type UnrecognizedCodeError struct {
	Site    string `json:"site" yaml:"site"`
	Row     int    `json:"row" yaml:"row"`
	ImageID string `json:"image_id" yaml:"image_id"`
	Column  string `json:"column" yaml:"column"`
	Value   string `json:"value" yaml:"value"`
}

// Error implements the error interface
func (e *UnrecognizedCodeError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "unrecognized QC code %q in column %s", e.Value, e.Column)
	if e.Site != "" {
		fmt.Fprintf(&sb, " (site %s, row %d", e.Site, e.Row)
		if e.ImageID != "" {
			fmt.Fprintf(&sb, ", image %s", e.ImageID)
		}
		sb.WriteString(")")
	}
	return sb.String()
}

// Is implements errors.Is support
func (e *UnrecognizedCodeError) Is(target error) bool {
	return target == ErrUnrecognizedCode
}

// NewUnrecognizedCodeError creates a new UnrecognizedCodeError
func NewUnrecognizedCodeError(column, value string) *UnrecognizedCodeError {
	return &UnrecognizedCodeError{Column: column, Value: value}
}

// ObjectStoreError represents a failed call against the remote metadata store
type ObjectStoreError struct {
	Operation string // "list", "get"
	Bucket    string
	Key       string
	Err       error
}

// Error implements the error interface
func (e *ObjectStoreError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("object store %s s3://%s/%s: %v", e.Operation, e.Bucket, e.Key, e.Err)
	}
	return fmt.Sprintf("object store %s on bucket %s: %v", e.Operation, e.Bucket, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *ObjectStoreError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ObjectStoreError) Is(target error) bool {
	return target == ErrObjectStore
}

// NewObjectStoreError creates a new ObjectStoreError
func NewObjectStoreError(operation, bucket, key string, err error) *ObjectStoreError {
	return &ObjectStoreError{
		Operation: operation,
		Bucket:    bucket,
		Key:       key,
		Err:       err,
	}
}

// KeyMismatchError reports visit keys that the identity table and the output disagree on.
type KeyMismatchError struct {
	Missing []string // in identity, absent from output
	Extra   []string // in output, absent from identity
}

// Error implements the error interface
func (e *KeyMismatchError) Error() string {
	return fmt.Sprintf("visit keys differ from identity table: %d missing %v, %d extra %v",
		len(e.Missing), e.Missing, len(e.Extra), e.Extra)
}

// Is implements errors.Is support
func (e *KeyMismatchError) Is(target error) bool {
	return target == ErrKeyMismatch
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "csv", "json", "yaml"
	File    string
	Line    int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d: %s", e.Format, e.File, e.Line, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsMissingColumn checks if an error reports a missing table column
func IsMissingColumn(err error) bool {
	return errors.Is(err, ErrMissingColumn)
}

// IsUnrecognizedCode checks if an error reports an unknown QC encoding
func IsUnrecognizedCode(err error) bool {
	return errors.Is(err, ErrUnrecognizedCode)
}

// IsObjectStore checks if an error came from the remote metadata store
func IsObjectStore(err error) bool {
	return errors.Is(err, ErrObjectStore)
}

// IsKeyMismatch checks if an error reports diverging visit keys
func IsKeyMismatch(err error) bool {
	return errors.Is(err, ErrKeyMismatch)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapCanceled marks err, usually a context error, as a cancellation of operation.
func WrapCanceled(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, ErrCanceled, err)
}

// WrapObjectStore wraps an error as an ObjectStoreError
func WrapObjectStore(operation, bucket, key string, err error) error {
	if err == nil {
		return nil
	}
	return NewObjectStoreError(operation, bucket, key, err)
}
