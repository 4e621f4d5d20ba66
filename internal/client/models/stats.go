package models

import "time"

// WardStat is one row of the backend analytics ward table.
type WardStat struct {
	Ward       string  `json:"ward"`
	Issues     int     `json:"issues"`
	Resolved   int     `json:"resolved"`
	ActiveRate float64 `json:"activeRate"`
}

// Analytics is the GET /analytics response.
type Analytics struct {
	TotalIssues         int        `json:"totalIssues"`
	ResolvedIssues      int        `json:"resolvedIssues"`
	AverageResponseTime float64    `json:"averageResponseTime"`
	CitizenSatisfaction float64    `json:"citizenSatisfaction"`
	WardStats           []WardStat `json:"wardStats"`
}

// Summary holds transparency figures computed locally from an issue list.
type Summary struct {
	Total          int
	ByStatus       map[Status]int
	ByCategory     map[string]int
	ResolutionRate float64
	// AverageResolution is the mean time from report to resolution over
	// issues that carry both timestamps.
	AverageResolution time.Duration
}

func Summarize(issues []Issue) Summary {
	s := Summary{
		Total:      len(issues),
		ByStatus:   make(map[Status]int),
		ByCategory: make(map[string]int),
	}

	var total time.Duration
	var timed int
	for _, is := range issues {
		s.ByStatus[is.Status]++
		s.ByCategory[is.Category]++

		if is.Status != StatusResolved {
			continue
		}
		resolved, err := time.Parse(time.RFC3339Nano, is.ResolvedDate)
		if err != nil {
			continue
		}
		reported := is.ReportedAt()
		if reported.IsZero() || resolved.Before(reported) {
			continue
		}
		total += resolved.Sub(reported)
		timed++
	}

	if s.Total > 0 {
		s.ResolutionRate = float64(s.ByStatus[StatusResolved]) / float64(s.Total)
	}
	if timed > 0 {
		s.AverageResolution = total / time.Duration(timed)
	}
	return s
}
