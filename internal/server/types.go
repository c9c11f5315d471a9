package server

import "github.com/aman-zulfiqar/hive-engine-lp-bot/internal/models"

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Details any    `json:"details,omitempty"` // dev mode only
}

type HealthResponse struct {
	OK    bool   `json:"ok"`
	Redis string `json:"redis"`
}

type RunsResponse struct {
	Items []*models.RunReport `json:"items"`
}

// TradingResponse is the state of the kill switch.
type TradingResponse struct {
	Halted bool `json:"halted"`
}

type FlagUpsertRequest struct {
	Key   string `json:"key"`
	Value bool   `json:"value"`
}

type FlagUpdateRequest struct {
	Value bool `json:"value"`
}
