package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sadopc/timeledger/internal/engine"
)

var (
	ErrAlreadyRunning = errors.New("an entry is already running")
	ErrNotRunning     = errors.New("entry is not running")
)

// entryColumns resolves the team through the entry's project so the engine
// receives the real association.
const entryColumns = `e.id, e.user_id, e.project_id, p.team_id, e.task_id, e.start_time, e.end_time, e.description
	FROM time_entries e LEFT JOIN projects p ON p.id = e.project_id`

// AddEntry records an entry. End may be nil for a running entry.
func (s *Store) AddEntry(n NewEntry) (*engine.TimeEntry, error) {
	var end any
	if n.End != nil {
		end = formatTime(*n.End)
	}
	res, err := s.db.Exec(
		`INSERT INTO time_entries (user_id, project_id, task_id, start_time, end_time, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullableID(n.UserID), nullableID(n.ProjectID), nullableID(n.TaskID),
		formatTime(n.Start), end, n.Description, formatTime(time.Now()),
	)
	if err != nil {
		return nil, fmt.Errorf("add entry: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetEntry(id)
}

// StartEntry opens a running entry at now. A user has at most one running entry.
func (s *Store) StartEntry(userID, projectID, taskID *int64, description string, now time.Time) (*engine.TimeEntry, error) {
	running, err := s.GetRunningEntry(userID)
	if err != nil {
		return nil, err
	}
	if running != nil {
		return nil, fmt.Errorf("start entry: %w (entry %d)", ErrAlreadyRunning, running.ID)
	}
	return s.AddEntry(NewEntry{
		UserID:      userID,
		ProjectID:   projectID,
		TaskID:      taskID,
		Start:       now,
		Description: description,
	})
}

// StopEntry closes a running entry at now.
func (s *Store) StopEntry(id int64, now time.Time) (*engine.TimeEntry, error) {
	res, err := s.db.Exec(
		`UPDATE time_entries SET end_time = ? WHERE id = ? AND end_time IS NULL`,
		formatTime(now), id,
	)
	if err != nil {
		return nil, fmt.Errorf("stop entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetEntry(id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("stop entry %d: %w", id, ErrNotRunning)
	}
	return s.GetEntry(id)
}

func (s *Store) GetEntry(id int64) (*engine.TimeEntry, error) {
	e, err := scanEntry(s.db.QueryRow(`SELECT `+entryColumns+` WHERE e.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get entry %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get entry %d: %w", id, err)
	}
	return e, nil
}

// GetRunningEntry returns the newest open entry for userID (or for entries
// without a user when userID is nil), or nil when none is running.
func (s *Store) GetRunningEntry(userID *int64) (*engine.TimeEntry, error) {
	query := `SELECT ` + entryColumns + ` WHERE e.end_time IS NULL`
	var args []any
	if userID != nil {
		query += ` AND e.user_id = ?`
		args = append(args, *userID)
	} else {
		query += ` AND e.user_id IS NULL`
	}
	query += ` ORDER BY e.id DESC LIMIT 1`

	e, err := scanEntry(s.db.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get running entry: %w", err)
	}
	return e, nil
}

func (s *Store) UpdateEntryDescription(id int64, description string) error {
	_, err := s.db.Exec(`UPDATE time_entries SET description = ? WHERE id = ?`, description, id)
	return err
}

func (s *Store) DeleteEntry(id int64) error {
	_, err := s.db.Exec(`DELETE FROM time_entries WHERE id = ?`, id)
	return err
}

// ListEntries returns entries ordered by start time, oldest first.
func (s *Store) ListEntries(f EntryFilter) ([]engine.TimeEntry, error) {
	var where []string
	var args []any
	if f.ProjectID != nil {
		where = append(where, `e.project_id = ?`)
		args = append(args, *f.ProjectID)
	}
	if f.UserID != nil {
		where = append(where, `e.user_id = ?`)
		args = append(args, *f.UserID)
	}
	if f.TeamID != nil {
		where = append(where, `p.team_id = ?`)
		args = append(args, *f.TeamID)
	}
	if f.From != nil {
		where = append(where, `e.start_time >= ?`)
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		where = append(where, `e.start_time < ?`)
		args = append(args, formatTime(*f.To))
	}

	query := `SELECT ` + entryColumns
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY e.start_time, e.id`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []engine.TimeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func scanEntry(row rowScanner) (*engine.TimeEntry, error) {
	e := &engine.TimeEntry{}
	var userID, projectID, teamID, taskID sql.NullInt64
	var startTime string
	var endTime sql.NullString
	if err := row.Scan(&e.ID, &userID, &projectID, &teamID, &taskID, &startTime, &endTime, &e.Description); err != nil {
		return nil, err
	}
	e.UserID = idPtr(userID)
	e.ProjectID = idPtr(projectID)
	e.TeamID = idPtr(teamID)
	e.TaskID = idPtr(taskID)
	e.StartTime = parseTime(startTime)
	if endTime.Valid {
		t := parseTime(endTime.String)
		e.EndTime = &t
	}
	return e, nil
}
