package store

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sadopc/timeledger/internal/engine"
)

// SetRate stores the hourly rate for a project, a user, or a (project, user)
// pair, replacing any previous rate for the same key.
func (s *Store) SetRate(projectID, userID *int64, rate decimal.Decimal) error {
	if projectID == nil && userID == nil {
		return errors.New("set rate: project or user is required")
	}
	if rate.IsNegative() {
		return fmt.Errorf("set rate: %w", engine.ErrNegativeRate)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("set rate: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM billing_rates WHERE project_id IS ? AND user_id IS ?`,
		nullableID(projectID), nullableID(userID),
	); err != nil {
		return fmt.Errorf("clear rate: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO billing_rates (project_id, user_id, hourly_rate, updated_at) VALUES (?, ?, ?, ?)`,
		nullableID(projectID), nullableID(userID), rate.String(), formatTime(time.Now()),
	); err != nil {
		return fmt.Errorf("insert rate: %w", err)
	}
	return tx.Commit()
}

func (s *Store) ListRates() ([]Rate, error) {
	rows, err := s.db.Query(
		`SELECT id, project_id, user_id, hourly_rate, updated_at FROM billing_rates ORDER BY project_id, user_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	defer rows.Close()

	var rates []Rate
	for rows.Next() {
		var r Rate
		var projectID, userID sql.NullInt64
		var rate, updatedAt string
		if err := rows.Scan(&r.ID, &projectID, &userID, &rate, &updatedAt); err != nil {
			return nil, err
		}
		r.ProjectID = idPtr(projectID)
		r.UserID = idPtr(userID)
		if r.HourlyRate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("rate %d: %w", r.ID, err)
		}
		r.UpdatedAt = parseTime(updatedAt)
		rates = append(rates, r)
	}
	return rates, rows.Err()
}

// ResolveRate finds the most specific rate for a (project, user) pair: the
// exact pair first, then the project alone, then the user alone.
func (s *Store) ResolveRate(projectID, userID *int64) (decimal.Decimal, bool, error) {
	book, err := s.RateBook()
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("resolve rate: %w", err)
	}
	rate, ok := book.Resolve(projectID, userID)
	return rate, ok, nil
}

// RateBook loads every stored rate for in-memory resolution.
func (s *Store) RateBook() (RateBook, error) {
	rates, err := s.ListRates()
	if err != nil {
		return RateBook{}, err
	}
	return NewRateBook(rates), nil
}

type ratePair struct {
	project int64
	user    int64
}

// RateBook indexes rates by key. The zero value resolves nothing.
type RateBook struct {
	pairs    map[ratePair]decimal.Decimal
	projects map[int64]decimal.Decimal
	users    map[int64]decimal.Decimal
}

func NewRateBook(rates []Rate) RateBook {
	b := RateBook{
		pairs:    make(map[ratePair]decimal.Decimal),
		projects: make(map[int64]decimal.Decimal),
		users:    make(map[int64]decimal.Decimal),
	}
	for _, r := range rates {
		switch {
		case r.ProjectID != nil && r.UserID != nil:
			b.pairs[ratePair{*r.ProjectID, *r.UserID}] = r.HourlyRate
		case r.ProjectID != nil:
			b.projects[*r.ProjectID] = r.HourlyRate
		case r.UserID != nil:
			b.users[*r.UserID] = r.HourlyRate
		}
	}
	return b
}

// Resolve tries the exact pair, then the project, then the user.
func (b RateBook) Resolve(projectID, userID *int64) (decimal.Decimal, bool) {
	return b.resolve(projectID, userID, false)
}

func (b RateBook) resolve(projectID, userID *int64, userFirst bool) (decimal.Decimal, bool) {
	if projectID != nil && userID != nil {
		if r, ok := b.pairs[ratePair{*projectID, *userID}]; ok {
			return r, true
		}
	}
	lookups := []func() (decimal.Decimal, bool){
		func() (decimal.Decimal, bool) { return lookup(b.projects, projectID) },
		func() (decimal.Decimal, bool) { return lookup(b.users, userID) },
	}
	if userFirst {
		lookups[0], lookups[1] = lookups[1], lookups[0]
	}
	for _, f := range lookups {
		if r, ok := f(); ok {
			return r, true
		}
	}
	return decimal.Zero, false
}

func lookup(m map[int64]decimal.Decimal, id *int64) (decimal.Decimal, bool) {
	if id == nil {
		return decimal.Zero, false
	}
	r, ok := m[*id]
	return r, ok
}

// RatesFor resolves one rate per project or user group from the entries
// billed under it. Each entry resolves its own (project, user) pair, then
// the grouped id, then the other id. A group whose entries resolve to more
// than one rate fails with a *ConflictingRatesError; a group with any
// unrated entry is left out. Other dimensions yield an empty map.
func (b RateBook) RatesFor(dim engine.Dimension, entries []engine.TimeEntry) (map[string]decimal.Decimal, error) {
	type groupRates struct {
		distinct []decimal.Decimal
		unrated  bool
	}
	var order []string
	groups := make(map[string]*groupRates)

	if dim == engine.DimProject || dim == engine.DimUser {
		for _, e := range entries {
			id := e.ProjectID
			if dim == engine.DimUser {
				id = e.UserID
			}
			if id == nil {
				continue
			}
			gid := strconv.FormatInt(*id, 10)
			g, ok := groups[gid]
			if !ok {
				g = &groupRates{}
				groups[gid] = g
				order = append(order, gid)
			}
			rate, ok := b.resolve(e.ProjectID, e.UserID, dim == engine.DimUser)
			if !ok {
				g.unrated = true
				continue
			}
			if !slices.ContainsFunc(g.distinct, rate.Equal) {
				g.distinct = append(g.distinct, rate)
			}
		}
	}

	rates := make(map[string]decimal.Decimal)
	for _, gid := range order {
		g := groups[gid]
		switch {
		case len(g.distinct) > 1:
			return nil, &ConflictingRatesError{GroupID: gid, Rates: g.distinct}
		case len(g.distinct) == 1 && !g.unrated:
			rates[gid] = g.distinct[0]
		}
	}
	return rates, nil
}

// ErrConflictingRates is matched by *ConflictingRatesError.
var ErrConflictingRates = errors.New("conflicting rates")

// ConflictingRatesError reports a group whose entries resolve to more than
// one hourly rate.
type ConflictingRatesError struct {
	GroupID string
	Rates   []decimal.Decimal
}

func (e *ConflictingRatesError) Error() string {
	parts := make([]string, len(e.Rates))
	for i, r := range e.Rates {
		parts[i] = r.String()
	}
	return fmt.Sprintf("group %q has conflicting rates: %s", e.GroupID, strings.Join(parts, ", "))
}

func (e *ConflictingRatesError) Is(target error) bool {
	return target == ErrConflictingRates
}
