// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the service.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"
	HTTPRequestIDKey  = "http.request_id"

	PageIDKey    = "relay.page_id"
	AttemptIDKey = "handoff.attempt_id"
	PlatformKey  = "handoff.platform"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// HandoffAttributes creates span attributes for a page-scoped handoff request.
// Empty values are omitted.
func HandoffAttributes(pageID, attemptID, platform string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if pageID != "" {
		attrs = append(attrs, attribute.String(PageIDKey, pageID))
	}
	if attemptID != "" {
		attrs = append(attrs, attribute.String(AttemptIDKey, attemptID))
	}
	if platform != "" {
		attrs = append(attrs, attribute.String(PlatformKey, platform))
	}
	return attrs
}
