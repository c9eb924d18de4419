// Package errs implements the error taxonomy of SPEC_FULL.md §7:
// ConfigurationError, ContractViolation, PortFailure, ParseFailure, and
// DocumentFailure. Each wraps an underlying cause and exposes Unwrap so
// callers can use errors.As/errors.Is against either the wrapper type or
// the cause.
package errs

import "fmt"

// ConfigurationError is raised at startup when configuration values violate
// an invariant (weights not summing to 1, threshold out of range, negative
// limits). Fatal — the process should not start.
type ConfigurationError struct {
	Field string
	Cause error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Field, e.Cause)
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }

func NewConfigurationError(field string, cause error) *ConfigurationError {
	return &ConfigurationError{Field: field, Cause: cause}
}

// ContractViolation marks a programmer error: a missing required argument
// such as projectId in persist metadata. Fatal for the current document.
type ContractViolation struct {
	Contract string
	Cause    error
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("contract violation: %s: %v", e.Contract, e.Cause)
}

func (e *ContractViolation) Unwrap() error { return e.Cause }

func NewContractViolation(contract string, cause error) *ContractViolation {
	return &ContractViolation{Contract: contract, Cause: cause}
}

// PortFailure wraps an error returned by an external capability port (LLM,
// embedder, or storage). Whether it is swallowed or propagated depends on
// where it occurred (see SPEC_FULL.md §7): per-chunk LLM failures are
// swallowed by KGExtractor; storage failures propagate and fail the
// document.
type PortFailure struct {
	Port  string
	Cause error
}

func (e *PortFailure) Error() string {
	return fmt.Sprintf("port failure: %s: %v", e.Port, e.Cause)
}

func (e *PortFailure) Unwrap() error { return e.Cause }

func NewPortFailure(port string, cause error) *PortFailure {
	return &PortFailure{Port: port, Cause: cause}
}

// ParseFailure marks a chunk whose LLM response could not be parsed even
// after all tolerance heuristics were applied. Never fatal: the caller
// degrades to an empty extraction for that chunk.
type ParseFailure struct {
	ChunkID string
	Cause   error
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("parse failure: chunk %s: %v", e.ChunkID, e.Cause)
}

func (e *ParseFailure) Unwrap() error { return e.Cause }

func NewParseFailure(chunkID string, cause error) *ParseFailure {
	return &ParseFailure{ChunkID: chunkID, Cause: cause}
}

// DocumentFailure is any error that propagates all the way to the ingestion
// boundary. DocumentGate transitions the document to FAILED with this
// error's message and re-raises it to the caller.
type DocumentFailure struct {
	DocID string
	Cause error
}

func (e *DocumentFailure) Error() string {
	return fmt.Sprintf("document %s failed: %v", e.DocID, e.Cause)
}

func (e *DocumentFailure) Unwrap() error { return e.Cause }

func NewDocumentFailure(docID string, cause error) *DocumentFailure {
	return &DocumentFailure{DocID: docID, Cause: cause}
}
