package models

import "encoding/json"

// RegistrationRequest is the body for POST /api/submit.
type RegistrationRequest struct {
	Name             string          `json:"name" binding:"required"`
	Email            string          `json:"email" binding:"required"`
	SelectedSchedule string          `json:"selectedSchedule"`
	ScheduleID       json.RawMessage `json:"scheduleId"`
}

// SubmissionResult is the body returned by POST /api/submit.
type SubmissionResult struct {
	Message             string          `json:"message"`
	EverWebinarResponse json.RawMessage `json:"everwebinarResponse,omitempty"`
}
