package models

import "time"

// Health status constants
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// Role values stored on conversation turns
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ErrorResponse is the body of a rejected or failed search request
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse represents the /health endpoint body
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
	Services  Metadata  `json:"services"`
}

// Metadata represents generic metadata
type Metadata map[string]interface{}
