// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthcheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/healthz":
			w.WriteHeader(http.StatusOK)
		case "/readyz":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	addr := strings.TrimPrefix(srv.URL, "http://")

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, healthcheck([]string{"-mode", "live", "-addr", addr}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "successful (live)")

	stderr.Reset()
	assert.Equal(t, 1, healthcheck([]string{"-addr", addr}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "503")

	assert.Equal(t, 2, healthcheck([]string{"-mode", "sideways", "-addr", addr}, &stdout, &stderr))
}
