package tui

import (
	"time"

	"github.com/sadopc/timeledger/internal/engine"
	"github.com/sadopc/timeledger/internal/store"
)

// timerModel follows the running entry in the store. It holds no clock of
// its own, so a timer started from the CLI shows up here and survives
// restarts.
type timerModel struct {
	store *store.Store
	now   func() time.Time

	entry       *engine.TimeEntry
	projectName string
}

func newTimerModel(s *store.Store) timerModel {
	return timerModel{store: s, now: time.Now}
}

// attach adopts an entry that is already running.
func (t *timerModel) attach(entry *engine.TimeEntry, projectName string) {
	t.entry = entry
	t.projectName = projectName
}

func (t *timerModel) start(projectID int64, projectName string) error {
	var pid *int64
	if projectID != 0 {
		pid = &projectID
	}
	entry, err := t.store.StartEntry(nil, pid, nil, "", t.now())
	if err != nil {
		return err
	}
	t.attach(entry, projectName)
	return nil
}

func (t *timerModel) stop() (*engine.TimeEntry, error) {
	if t.entry == nil {
		return nil, nil
	}
	entry, err := t.store.StopEntry(t.entry.ID, t.now())
	if err != nil {
		return nil, err
	}
	t.entry = nil
	t.projectName = ""
	return entry, nil
}

func (t timerModel) running() bool {
	return t.entry != nil
}

func (t timerModel) elapsed() time.Duration {
	if t.entry == nil {
		return 0
	}
	secs, err := engine.DurationSeconds(*t.entry, t.now())
	if err != nil {
		return 0
	}
	return time.Duration(secs) * time.Second
}
