package store

import (
	"time"

	"github.com/shopspring/decimal"
)

type Team struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

type User struct {
	ID        int64
	Name      string
	Email     string
	CreatedAt time.Time
}

type Project struct {
	ID        int64
	Name      string
	Color     string
	TeamID    *int64
	Archived  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Task struct {
	ID        int64
	ProjectID int64
	Name      string
	Archived  bool
	CreatedAt time.Time
}

// Rate is an hourly rate for a project, a user, or a (project, user) pair.
type Rate struct {
	ID         int64
	ProjectID  *int64
	UserID     *int64
	HourlyRate decimal.Decimal
	UpdatedAt  time.Time
}

type Setting struct {
	Key   string
	Value string
}

// NewEntry holds the fields of a time entry being recorded.
type NewEntry struct {
	UserID      *int64
	ProjectID   *int64
	TaskID      *int64
	Start       time.Time
	End         *time.Time
	Description string
}

// EntryFilter is used to filter time entries in queries. From/To bound the
// start time as [From, To).
type EntryFilter struct {
	ProjectID *int64
	UserID    *int64
	TeamID    *int64
	From      *time.Time
	To        *time.Time
	Limit     int
}
