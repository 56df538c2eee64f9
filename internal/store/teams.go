package store

import (
	"fmt"
	"time"
)

func (s *Store) CreateTeam(name string) (*Team, error) {
	now := formatTime(time.Now())
	res, err := s.db.Exec(`INSERT INTO teams (name, created_at) VALUES (?, ?)`, name, now)
	if err != nil {
		return nil, fmt.Errorf("insert team: %w", err)
	}
	id, _ := res.LastInsertId()
	return &Team{ID: id, Name: name, CreatedAt: parseTime(now)}, nil
}

func (s *Store) ListTeams() ([]Team, error) {
	rows, err := s.db.Query(`SELECT id, name, created_at FROM teams ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var teams []Team
	for rows.Next() {
		var t Team
		var createdAt string
		if err := rows.Scan(&t.ID, &t.Name, &createdAt); err != nil {
			return nil, err
		}
		t.CreatedAt = parseTime(createdAt)
		teams = append(teams, t)
	}
	return teams, rows.Err()
}
