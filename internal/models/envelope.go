package models

import "time"

// Envelope is the uniform response shape every tool returns.
type Envelope struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message,omitempty"`
	Data     interface{}    `json:"data,omitempty"`
	Error    *EnvelopeError `json:"error,omitempty"`
	Metadata Metadata       `json:"metadata"`
}

// EnvelopeError carries the stable error code plus structured detail.
type EnvelopeError struct {
	Code         ErrorCode      `json:"code"`
	Message      string         `json:"message"`
	Blockers     []BlockerInfo  `json:"blockers,omitempty"`
	MissingNotes []ExpectedNote `json:"missingNotes,omitempty"`
}

// Metadata stamps every envelope with server identity.
type Metadata struct {
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// NewMetadata builds envelope metadata for the current instant.
func NewMetadata(version string) Metadata {
	return Metadata{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   version,
	}
}

// OkEnvelope wraps data in a success envelope.
func OkEnvelope(data interface{}, message, version string) *Envelope {
	return &Envelope{
		Success:  true,
		Message:  message,
		Data:     data,
		Metadata: NewMetadata(version),
	}
}

// ErrEnvelope wraps a domain error in a failure envelope.
func ErrEnvelope(err *DomainError, version string) *Envelope {
	return &Envelope{
		Success: false,
		Error: &EnvelopeError{
			Code:         err.Code,
			Message:      err.Message,
			Blockers:     err.Blockers,
			MissingNotes: err.MissingNotes,
		},
		Metadata: NewMetadata(version),
	}
}
