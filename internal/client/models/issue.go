// Package models defines the records exchanged between the client facade,
// the mock backend and the real backend. JSON names follow the backend
// contract.
package models

import (
	"sort"
	"time"
)

// Status is an issue lifecycle state. Transitions only move forward:
// reported → assigned → in-progress → resolved.
type Status string

const (
	StatusReported   Status = "reported"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
)

var statusRank = map[Status]int{
	StatusReported:   0,
	StatusAssigned:   1,
	StatusInProgress: 2,
	StatusResolved:   3,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransition reports whether moving from s to next respects the forward
// only lifecycle. Staying in the same non-terminal state is allowed so an
// assigned issue can be reassigned; nothing leaves resolved.
func (s Status) CanTransition(next Status) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	if s == StatusResolved {
		return false
	}
	return to >= from
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Well-known categories. The set is open: the backend accepts any string.
const (
	CategoryPotholes        = "potholes"
	CategoryGarbage         = "garbage"
	CategoryStreetLights    = "street-lights"
	CategoryDrainage        = "drainage"
	CategoryWaterSupply     = "water-supply"
	CategoryParkMaintenance = "park-maintenance"
	CategoryTrafficSignals  = "traffic-signals"
	CategoryNoisePollution  = "noise-pollution"
	CategoryOther           = "other"
)

// TimeLayout renders timestamps with millisecond precision in UTC, the
// format the backend emits.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp formats t for ReportedDate and ResolvedDate.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Issue is a reported civic problem.
type Issue struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Location      string   `json:"location"`
	Category      string   `json:"category"`
	Priority      Priority `json:"priority"`
	Images        []string `json:"images"`
	ReportedBy    string   `json:"reportedBy"`
	ReportedDate  string   `json:"reportedDate"`
	Status        Status   `json:"status"`
	AssignedTo    string   `json:"assignedTo,omitempty"`
	EstimatedTime string   `json:"estimatedTime,omitempty"`
	Upvotes       int      `json:"upvotes"`
	AfterImage    string   `json:"afterImage,omitempty"`
	ResolvedDate  string   `json:"resolvedDate,omitempty"`
	Department    string   `json:"department,omitempty"`
	Cost          string   `json:"cost,omitempty"`
	IsAnonymous   bool     `json:"isAnonymous,omitempty"`
}

// Clone returns a deep copy; Images is not shared.
func (i Issue) Clone() Issue {
	if i.Images != nil {
		i.Images = append([]string(nil), i.Images...)
	}
	return i
}

// ReportedAt parses ReportedDate; the zero time is returned when unset or
// malformed.
func (i Issue) ReportedAt() time.Time {
	t, _ := time.Parse(time.RFC3339Nano, i.ReportedDate)
	return t
}

// UnresolvedFirst returns a copy of issues with unresolved issues before
// resolved ones, newest first within each group.
func UnresolvedFirst(issues []Issue) []Issue {
	out := make([]Issue, len(issues))
	copy(out, issues)
	sort.SliceStable(out, func(a, b int) bool {
		ra, rb := out[a].Status == StatusResolved, out[b].Status == StatusResolved
		if ra != rb {
			return !ra
		}
		return out[a].ReportedAt().After(out[b].ReportedAt())
	})
	return out
}

// FilterByStatus keeps issues in status s, preserving order.
func FilterByStatus(issues []Issue, s Status) []Issue {
	out := make([]Issue, 0, len(issues))
	for _, is := range issues {
		if is.Status == s {
			out = append(out, is)
		}
	}
	return out
}
