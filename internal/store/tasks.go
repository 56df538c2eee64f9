package store

import (
	"fmt"
	"time"
)

func (s *Store) CreateTask(projectID int64, name string) (*Task, error) {
	now := formatTime(time.Now())
	res, err := s.db.Exec(
		`INSERT INTO tasks (project_id, name, created_at) VALUES (?, ?, ?)`,
		projectID, name, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, _ := res.LastInsertId()
	return &Task{ID: id, ProjectID: projectID, Name: name, CreatedAt: parseTime(now)}, nil
}

func (s *Store) ListTasks(projectID int64, includeArchived bool) ([]Task, error) {
	query := `SELECT id, project_id, name, archived, created_at FROM tasks WHERE project_id = ?`
	if !includeArchived {
		query += ` AND archived = 0`
	}
	query += ` ORDER BY name`

	rows, err := s.db.Query(query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		var createdAt string
		var archived int
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Name, &archived, &createdAt); err != nil {
			return nil, err
		}
		t.Archived = archived == 1
		t.CreatedAt = parseTime(createdAt)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) ArchiveTask(id int64) error {
	_, err := s.db.Exec(`UPDATE tasks SET archived = 1 WHERE id = ?`, id)
	return err
}
