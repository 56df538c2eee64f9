package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const projectColumns = `id, name, color, team_id, archived, created_at, updated_at`

func (s *Store) CreateProject(name, color string, teamID *int64) (*Project, error) {
	now := formatTime(time.Now())
	res, err := s.db.Exec(
		`INSERT INTO projects (name, color, team_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		name, color, nullableID(teamID), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetProject(id)
}

func (s *Store) GetProject(id int64) (*Project, error) {
	p, err := scanProject(s.db.QueryRow(`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get project %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project %d: %w", id, err)
	}
	return p, nil
}

func (s *Store) ListProjects(includeArchived bool) ([]Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	if !includeArchived {
		query += ` WHERE archived = 0`
	}
	query += ` ORDER BY name`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (s *Store) UpdateProject(id int64, name, color string) error {
	_, err := s.db.Exec(
		`UPDATE projects SET name = ?, color = ?, updated_at = ? WHERE id = ?`,
		name, color, formatTime(time.Now()), id,
	)
	return err
}

// SetProjectTeam moves a project to a team, or out of any team when teamID is nil.
func (s *Store) SetProjectTeam(id int64, teamID *int64) error {
	_, err := s.db.Exec(
		`UPDATE projects SET team_id = ?, updated_at = ? WHERE id = ?`,
		nullableID(teamID), formatTime(time.Now()), id,
	)
	return err
}

func (s *Store) ArchiveProject(id int64) error {
	_, err := s.db.Exec(
		`UPDATE projects SET archived = 1, updated_at = ? WHERE id = ?`, formatTime(time.Now()), id,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*Project, error) {
	p := &Project{}
	var createdAt, updatedAt string
	var archived int
	var teamID sql.NullInt64
	if err := row.Scan(&p.ID, &p.Name, &p.Color, &teamID, &archived, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.TeamID = idPtr(teamID)
	p.Archived = archived == 1
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}
