package store

import (
	"fmt"
	"time"
)

func (s *Store) CreateUser(name, email string) (*User, error) {
	now := formatTime(time.Now())
	res, err := s.db.Exec(`INSERT INTO users (name, email, created_at) VALUES (?, ?, ?)`, name, email, now)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, _ := res.LastInsertId()
	return &User{ID: id, Name: name, Email: email, CreatedAt: parseTime(now)}, nil
}

func (s *Store) ListUsers() ([]User, error) {
	rows, err := s.db.Query(`SELECT id, name, email, created_at FROM users ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		var createdAt string
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &createdAt); err != nil {
			return nil, err
		}
		u.CreatedAt = parseTime(createdAt)
		users = append(users, u)
	}
	return users, rows.Err()
}
