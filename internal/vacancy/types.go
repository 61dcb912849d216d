// Package vacancy defines the canonical vacancy record and the contracts
// shared by source adapters, the ingestion pipeline, and the store.
package vacancy

import (
	"fmt"
	"time"
)

// Platform identifies the upstream source of a vacancy.
type Platform string

// Platform values persisted as reference rows.
const (
	PlatformHeadHunter Platform = "HeadHunter"
	PlatformSuperJob   Platform = "SuperJob"
	PlatformTelegram   Platform = "Telegram"
)

// SalaryNegotiable is stored when a source provides no salary bounds at all.
const SalaryNegotiable = "По договоренности"

// RegionUnknown is stored when a city is absent from the region mapping.
const RegionUnknown = "Unknown"

// SearchParams captures the upstream listing query. Adapters map the fields
// onto their source's query-string names.
type SearchParams struct {
	Query   string `json:"query"`
	Area    string `json:"area"`
	PerPage int    `json:"per_page"`
}

// Record is the unified vacancy shape every source schema is transformed
// into. Empty CompanyName/CityName mean "no reference row" at the store.
type Record struct {
	Platform    Platform  `json:"platform"`
	ExternalID  string    `json:"external_id"`
	Title       string    `json:"title"`
	CompanyName string    `json:"company_name,omitempty"`
	CityName    string    `json:"city_name,omitempty"`
	Region      string    `json:"region"`
	Salary      string    `json:"salary"`
	URL         string    `json:"url,omitempty"`
	Experience  string    `json:"experience,omitempty"`
	Employment  string    `json:"employment,omitempty"`
	WorkFormat  string    `json:"work_format,omitempty"`
	Schedule    string    `json:"schedule,omitempty"`
	Skills      string    `json:"skills,omitempty"`
	Education   string    `json:"education,omitempty"`
	Description string    `json:"description,omitempty"`
	Address     string    `json:"address,omitempty"`
	Contacts    string    `json:"contacts,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// RecordError identifies one skipped record inside a completed run.
type RecordError struct {
	Identifier string `json:"identifier"`
	Reason     string `json:"reason"`
}

// Report status values.
const (
	ReportStatusSuccess = "success"
	ReportStatusError   = "error"
)

// Report summarizes one ingestion run. Per-record failures land in Errors
// without failing the run; only a listing-level failure yields an error
// status with zero attempts.
type Report struct {
	RunID      string        `json:"run_id,omitempty"`
	Platform   Platform      `json:"platform"`
	Status     string        `json:"status"`
	SavedCount int           `json:"saved_count"`
	Attempted  int           `json:"attempted"`
	Errors     []RecordError `json:"errors"`
	Message    string        `json:"message"`
}

// SuccessMessage renders the operator-facing summary line for a run.
func SuccessMessage(saved int) string {
	return fmt.Sprintf("Успешно сохранено %d вакансий", saved)
}

// ChannelMessage is the data shape pushed by the external messaging-channel
// client. Only its metadata is consumed here; connectivity lives elsewhere.
type ChannelMessage struct {
	ChannelUsername string    `json:"channel_username"`
	ChannelTitle    string    `json:"channel_title"`
	MessageID       int64     `json:"message_id"`
	Text            string    `json:"text"`
	Date            time.Time `json:"date"`
}
