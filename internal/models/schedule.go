package models

import "encoding/json"

// ScheduleEntry is one bookable slot as listed by the webinar provider.
type ScheduleEntry struct {
	Date string `json:"date"`
	// ScheduleID is the provider's opaque identifier, forwarded verbatim.
	ScheduleID json.RawMessage `json:"scheduleId"`
	Comment    string          `json:"comment"`
}
