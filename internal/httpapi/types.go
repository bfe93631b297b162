// Package httpapi serves the dashboard controller over a JSON REST API and a
// websocket snapshot stream.
package httpapi

import (
	"time"

	"marketdash/internal/controller"
	"marketdash/internal/domain"
)

// ErrorResponse is the body of every plain error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status      string    `json:"status"`
	Running     bool      `json:"running"`
	Version     uint64    `json:"version"`
	LastRefresh time.Time `json:"lastRefresh"`
}

// SearchResponse is returned by GET /api/search.
type SearchResponse struct {
	Term       string                  `json:"term"`
	Results    []domain.SymbolMatch    `json:"results"`
	Superseded bool                    `json:"superseded,omitempty"`
	Error      *controller.ErrorReport `json:"error,omitempty"`
}

// SelectionErrorResponse is the 502 body of a failed PUT /api/selection.
type SelectionErrorResponse struct {
	Error  string                  `json:"error"`
	Report *controller.ErrorReport `json:"report"`
}
