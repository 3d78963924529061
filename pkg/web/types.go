// Package web provides HTTP request and response types for the release API.
package web

import "time"

// CreateReleaseRequest represents the request body for creating a new release.
type CreateReleaseRequest struct {
	Product        string         `json:"product"                   validate:"required"`
	Version        string         `json:"version"                   validate:"required"`
	Branch         string         `json:"branch"                    validate:"required"`
	Revision       string         `json:"revision"                  validate:"required,hexadecimal,min=8"`
	BuildNumber    int            `json:"build_number"              validate:"required,min=1"`
	ReleaseETA     *time.Time     `json:"release_eta,omitempty"`
	PartialUpdates map[string]any `json:"partial_updates,omitempty"`
}
