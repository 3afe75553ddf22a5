package models

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a report
type Status string

// Report statuses. Any status may move to any other.
const (
	StatusSubmitted  Status = "Submitted"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
	StatusRejected   Status = "Rejected"
)

// Statuses lists every valid status in lifecycle order.
var Statuses = []Status{StatusSubmitted, StatusInProgress, StatusResolved, StatusRejected}

// ParseStatus returns the canonical status matching s case-insensitively.
func ParseStatus(s string) (Status, bool) {
	s = strings.TrimSpace(s)
	for _, status := range Statuses {
		if strings.EqualFold(string(status), s) {
			return status, true
		}
	}
	return "", false
}

// Report represents a citizen-submitted civic issue
type Report struct {
	ID                 int64     `json:"id"`
	Title              string    `json:"title"`
	Category           string    `json:"category"`
	Priority           string    `json:"priority"`
	Location           string    `json:"location"`
	Description        string    `json:"description"`
	Photo              []byte    `json:"photo"` // base64 in JSON, null when absent
	Status             Status    `json:"status"`
	AssignedDepartment string    `json:"assigned_department"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Task is the ownership projection of a report
type Task struct {
	ReportID    int64     `json:"report_id"`
	AssignedTo  string    `json:"assigned_to"`
	Status      Status    `json:"status"`
	LastUpdated time.Time `json:"last_updated"`
}

// NewReport holds the fields supplied by a citizen
type NewReport struct {
	Title       string
	Category    string
	Priority    string
	Location    string
	Description string
	Photo       []byte
}

// ReportFilter selects reports; empty fields match everything.
type ReportFilter struct {
	Status     string `form:"status"`
	Category   string `form:"category"`
	Priority   string `form:"priority"`
	Location   string `form:"location"`
	Department string `form:"department"`
}

// UpdateStatusRequest is the body of a status change
type UpdateStatusRequest struct {
	Status string `json:"status" form:"status" binding:"required"`
}

// StatusCount is the number of reports in one status
type StatusCount struct {
	Status Status `json:"status"`
	Count  int    `json:"count"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Time    string `json:"time"`
}
