package api

import (
	"github.com/aquasense/tds-monitor/pkg/types"
)

type statusResponse struct {
	Status    string      `json:"status"`
	Service   string      `json:"service"`
	Version   string      `json:"version"`
	Stats     types.Stats `json:"stats"`
	Timestamp string      `json:"timestamp"`
}

type ingestResponse struct {
	Status    string  `json:"status"`
	Message   string  `json:"message"`
	DeviceID  string  `json:"device_id"`
	TDS       float64 `json:"tds"`
	Timestamp string  `json:"timestamp"`
}

type errorResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail"`
}

type exportRequest struct {
	Path     string `json:"path,omitempty"`
	DeviceID string `json:"device_id,omitempty"`
	Days     int    `json:"days,omitempty"`
}

type exportResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
	Detail string `json:"detail,omitempty"`
}

type pruneRequest struct {
	Days int `json:"days,omitempty"`
}

type pruneResponse struct {
	Status  string `json:"status"`
	Deleted int64  `json:"deleted"`
}
