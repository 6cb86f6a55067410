package storage

import (
	"sort"
	"strings"
	"time"
)

// RatesSnapshot stores a previously parsed rate table for a retailer.
type RatesSnapshot struct {
	ID        uint      `json:"-" gorm:"primaryKey;column:id"`
	Retailer  string    `json:"retailer" gorm:"column:retailer;index"`
	Payload   []byte    `json:"payload" gorm:"column:payload"`
	FetchedAt time.Time `json:"fetched_at" gorm:"column:fetched_at"`
}

func (RatesSnapshot) TableName() string { return "rates_snapshots" }

// AuditEvent records one toggle of a signup checklist item. JSON names match
// the body posted by the checklist page.
type AuditEvent struct {
	ID        string         `json:"id" gorm:"primaryKey;column:id"`
	Name      string         `json:"name" gorm:"column:name;index"`
	Label     string         `json:"checkboxLabel" gorm:"column:checkbox_label"`
	Checked   bool           `json:"isChecked" gorm:"column:is_checked"`
	Timestamp time.Time      `json:"timestamp" gorm:"column:timestamp;index"`
	Meta      map[string]any `json:"meta,omitempty" gorm:"column:meta;type:text;serializer:json"`
}

func (AuditEvent) TableName() string { return "audit_events" }

// AuditFilter narrows ListAuditEvents. Zero values mean no filter.
type AuditFilter struct {
	Name  string
	Limit int
}

// Setting is a runtime key/value override, e.g. the refresh schedule.
type Setting struct {
	Key       string    `gorm:"primaryKey;column:key"`
	Value     string    `gorm:"column:value"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Setting) TableName() string { return "settings" }

// ScheduledJob is the last-run record of a background job.
type ScheduledJob struct {
	Name           string    `json:"name" gorm:"primaryKey;column:name"`
	LastRunAt      time.Time `json:"last_run_at" gorm:"column:last_run_at"`
	LastDurationMs int64     `json:"last_duration_ms" gorm:"column:last_duration_ms"`
	LastSuccess    bool      `json:"last_success" gorm:"column:last_success"`
	LastError      string    `json:"last_error" gorm:"column:last_error"`
}

func (ScheduledJob) TableName() string { return "scheduled_jobs" }

// filterEvents applies f to events, newest first. Events with equal
// timestamps keep reverse insertion order.
func filterEvents(events []AuditEvent, f AuditFilter) []AuditEvent {
	out := make([]AuditEvent, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		if f.Name != "" && !strings.EqualFold(strings.TrimSpace(ev.Name), strings.TrimSpace(f.Name)) {
			continue
		}
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}
