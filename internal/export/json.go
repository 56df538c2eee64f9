package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sadopc/timeledger/internal/engine"
)

var clock = time.Now

type entriesExport struct {
	ExportedAt string      `json:"exported_at"`
	Count      int         `json:"count"`
	Entries    []jsonEntry `json:"entries"`
}

type jsonEntry struct {
	ID          int64  `json:"id"`
	Project     string `json:"project,omitempty"`
	ProjectID   *int64 `json:"project_id"`
	Team        string `json:"team,omitempty"`
	User        string `json:"user,omitempty"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time,omitempty"`
	DurationSec int64  `json:"duration_seconds"`
	Duration    string `json:"duration"`
	Description string `json:"description,omitempty"`
}

type summaryExport struct {
	ExportedAt   string                  `json:"exported_at"`
	Dimension    engine.Dimension        `json:"dimension"`
	Period       engine.DateRange        `json:"period"`
	TotalSeconds int64                   `json:"total_seconds"`
	Total        string                  `json:"total"`
	Groups       []engine.AggregateGroup `json:"groups"`
}

type comparisonExport struct {
	ExportedAt string                  `json:"exported_at"`
	Comparison engine.PeriodComparison `json:"comparison"`
}

// EntriesJSON writes entries with resolved names.
func EntriesJSON(w io.Writer, entries []engine.TimeEntry, dir engine.Directory, at time.Time) error {
	export := entriesExport{
		ExportedAt: clock().UTC().Format(time.RFC3339),
		Count:      len(entries),
	}

	for _, e := range entries {
		secs, err := engine.DurationSeconds(e, at)
		if err != nil {
			return err
		}
		endStr := ""
		if e.EndTime != nil {
			endStr = e.EndTime.Local().Format(time.RFC3339)
		}

		export.Entries = append(export.Entries, jsonEntry{
			ID:          e.ID,
			Project:     lookup(dir.Projects, e.ProjectID),
			ProjectID:   e.ProjectID,
			Team:        lookup(dir.Teams, e.TeamID),
			User:        lookup(dir.Users, e.UserID),
			StartTime:   e.StartTime.Local().Format(time.RFC3339),
			EndTime:     endStr,
			DurationSec: secs,
			Duration:    formatDuration(secs),
			Description: e.Description,
		})
	}
	return writeJSON(w, export)
}

// SummaryJSON writes a grouped summary over period.
func SummaryJSON(w io.Writer, dim engine.Dimension, period engine.DateRange, groups []engine.AggregateGroup) error {
	total := engine.Total(groups)
	return writeJSON(w, summaryExport{
		ExportedAt:   clock().UTC().Format(time.RFC3339),
		Dimension:    dim,
		Period:       period,
		TotalSeconds: total,
		Total:        formatDuration(total),
		Groups:       groups,
	})
}

func ComparisonJSON(w io.Writer, cmp engine.PeriodComparison) error {
	return writeJSON(w, comparisonExport{
		ExportedAt: clock().UTC().Format(time.RFC3339),
		Comparison: cmp,
	})
}

func InvoiceJSON(w io.Writer, doc InvoiceDocument) error {
	return writeJSON(w, doc)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
