package store

import (
	"fmt"

	"github.com/sadopc/timeledger/internal/engine"
)

// Directory loads display names for every project, team and user,
// archived projects included so old entries keep their labels.
func (s *Store) Directory() (engine.Directory, error) {
	dir := engine.Directory{
		Projects: make(map[int64]string),
		Teams:    make(map[int64]string),
		Users:    make(map[int64]string),
	}
	sources := []struct {
		table string
		names map[int64]string
	}{
		{"projects", dir.Projects},
		{"teams", dir.Teams},
		{"users", dir.Users},
	}
	for _, src := range sources {
		rows, err := s.db.Query(`SELECT id, name FROM ` + src.table)
		if err != nil {
			return engine.Directory{}, fmt.Errorf("load %s: %w", src.table, err)
		}
		for rows.Next() {
			var id int64
			var name string
			if err := rows.Scan(&id, &name); err != nil {
				rows.Close()
				return engine.Directory{}, err
			}
			src.names[id] = name
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return engine.Directory{}, err
		}
	}
	return dir, nil
}
