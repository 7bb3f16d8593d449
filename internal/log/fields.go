// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldPageID    = "page_id"
	FieldAttemptID = "attempt_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Handoff fields
	FieldPlatform  = "platform"
	FieldState     = "state"
	FieldReason    = "reason"
	FieldTimeoutMS = "timeout_ms"
	FieldURI       = "uri"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// HTTP fields
	FieldMethod   = "method"
	FieldPath     = "path"
	FieldStatus   = "status"
	FieldDuration = "duration_ms"
	FieldRemote   = "remote_addr"
)
