package store

import (
	"errors"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sadopc/timeledger/internal/engine"
)

var t0 = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// insertEntry is a test helper that records a finished entry.
func insertEntry(t *testing.T, s *Store, userID, projectID *int64, start time.Time, dur time.Duration) *engine.TimeEntry {
	t.Helper()
	end := start.Add(dur)
	e, err := s.AddEntry(NewEntry{UserID: userID, ProjectID: projectID, Start: start, End: &end})
	if err != nil {
		t.Fatalf("insert entry: %v", err)
	}
	return e
}

func ptr(v int64) *int64 { return &v }

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	version, dirty, err := s.SchemaVersion()
	if err != nil {
		t.Fatal(err)
	}
	if version != 1 || dirty {
		t.Fatalf("expected clean schema version 1, got %d (dirty=%v)", version, dirty)
	}
}

func TestNewWithPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "ledger.db")
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateTeam("Core"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen: migrations are a no-op and data survives.
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	teams, err := s2.ListTeams()
	if err != nil {
		t.Fatal(err)
	}
	if len(teams) != 1 {
		t.Fatalf("expected 1 team after reopen, got %d", len(teams))
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddEntry(NewEntry{ProjectID: ptr(999), Start: t0})
	if err == nil {
		t.Fatal("expected foreign key error for unknown project")
	}
}

// ============================================================
// Teams, users, projects
// ============================================================

func TestCreateAndListTeamsUsers(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateTeam("Platform"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateTeam("Platform"); err == nil {
		t.Fatal("expected duplicate team name error")
	}
	u, err := s.CreateUser("ana", "ana@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if u.ID == 0 || u.Email != "ana@example.com" {
		t.Fatalf("unexpected user: %+v", u)
	}
	users, err := s.ListUsers()
	if err != nil || len(users) != 1 {
		t.Fatalf("list users: %v, %v", users, err)
	}
}

func TestCreateAndGetProject(t *testing.T) {
	s := newTestStore(t)
	team, _ := s.CreateTeam("Platform")

	p, err := s.CreateProject("Website", "#FF0000", &team.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Website" || p.Color != "#FF0000" || p.TeamID == nil || *p.TeamID != team.ID {
		t.Fatalf("unexpected project: %+v", p)
	}
	if p.Archived || p.CreatedAt.IsZero() {
		t.Fatalf("unexpected project state: %+v", p)
	}

	if err := s.SetProjectTeam(p.ID, nil); err != nil {
		t.Fatal(err)
	}
	p, _ = s.GetProject(p.ID)
	if p.TeamID != nil {
		t.Fatal("team should be cleared")
	}
}

func TestGetProjectNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetProject(42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListProjectsArchived(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.CreateProject("A", "#111", nil)
	s.CreateProject("B", "#222", nil)
	if err := s.ArchiveProject(a.ID); err != nil {
		t.Fatal(err)
	}

	active, _ := s.ListProjects(false)
	all, _ := s.ListProjects(true)
	if len(active) != 1 || len(all) != 2 {
		t.Fatalf("active=%d all=%d", len(active), len(all))
	}
}

func TestUpdateProject(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.CreateProject("Old", "#111", nil)
	if err := s.UpdateProject(p.ID, "New", "#222"); err != nil {
		t.Fatal(err)
	}
	p, _ = s.GetProject(p.ID)
	if p.Name != "New" || p.Color != "#222" {
		t.Fatalf("unexpected project: %+v", p)
	}
}

func TestTasks(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.CreateProject("Dev", "#000", nil)
	task, err := s.CreateTask(p.ID, "Review")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateTask(p.ID, "Review"); err == nil {
		t.Fatal("expected duplicate task error")
	}
	if err := s.ArchiveTask(task.ID); err != nil {
		t.Fatal(err)
	}
	active, _ := s.ListTasks(p.ID, false)
	all, _ := s.ListTasks(p.ID, true)
	if len(active) != 0 || len(all) != 1 {
		t.Fatalf("active=%d all=%d", len(active), len(all))
	}
}

// ============================================================
// Time entries
// ============================================================

func TestStartAndStopEntry(t *testing.T) {
	s := newTestStore(t)
	u, _ := s.CreateUser("ana", "")
	p, _ := s.CreateProject("Dev", "#000", nil)

	e, err := s.StartEntry(&u.ID, &p.ID, nil, "pairing", t0)
	if err != nil {
		t.Fatal(err)
	}
	if !e.Running() || !e.StartTime.Equal(t0) || e.Description != "pairing" {
		t.Fatalf("unexpected started entry: %+v", e)
	}

	running, err := s.GetRunningEntry(&u.ID)
	if err != nil || running == nil || running.ID != e.ID {
		t.Fatalf("running entry = %+v, %v", running, err)
	}

	if _, err := s.StartEntry(&u.ID, &p.ID, nil, "", t0.Add(time.Minute)); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	stopped, err := s.StopEntry(e.ID, t0.Add(90*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	secs, err := engine.DurationSeconds(*stopped, time.Time{})
	if err != nil || secs != 5400 {
		t.Fatalf("duration = %d, %v", secs, err)
	}

	if _, err := s.StopEntry(e.ID, t0.Add(2*time.Hour)); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
	if _, err := s.StopEntry(999, t0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetRunningEntryNone(t *testing.T) {
	s := newTestStore(t)
	e, err := s.GetRunningEntry(nil)
	if err != nil {
		t.Fatal(err)
	}
	if e != nil {
		t.Fatal("expected no running entry")
	}
}

func TestRunningEntriesArePerUser(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.CreateUser("a", "")
	b, _ := s.CreateUser("b", "")
	if _, err := s.StartEntry(&a.ID, nil, nil, "", t0); err != nil {
		t.Fatal(err)
	}
	if _, err := s.StartEntry(&b.ID, nil, nil, "", t0); err != nil {
		t.Fatalf("second user should be able to start: %v", err)
	}
}

func TestEntryResolvesTeam(t *testing.T) {
	s := newTestStore(t)
	team, _ := s.CreateTeam("Platform")
	p, _ := s.CreateProject("API", "#000", &team.ID)
	loose, _ := s.CreateProject("Loose", "#000", nil)

	e := insertEntry(t, s, nil, &p.ID, t0, time.Hour)
	if e.TeamID == nil || *e.TeamID != team.ID {
		t.Fatalf("expected team %d, got %v", team.ID, e.TeamID)
	}
	e = insertEntry(t, s, nil, &loose.ID, t0, time.Hour)
	if e.TeamID != nil {
		t.Fatal("project without team should leave TeamID nil")
	}
	e = insertEntry(t, s, nil, nil, t0, time.Hour)
	if e.ProjectID != nil || e.TeamID != nil {
		t.Fatal("entry without project should have no associations")
	}
}

func TestGetEntryNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetEntry(999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateAndDeleteEntry(t *testing.T) {
	s := newTestStore(t)
	e := insertEntry(t, s, nil, nil, t0, time.Hour)
	if err := s.UpdateEntryDescription(e.ID, "notes"); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetEntry(e.ID)
	if got.Description != "notes" {
		t.Fatalf("description = %q", got.Description)
	}
	if err := s.DeleteEntry(e.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetEntry(e.ID); !errors.Is(err, ErrNotFound) {
		t.Fatal("entry should be gone")
	}
}

func TestListEntriesFilters(t *testing.T) {
	s := newTestStore(t)
	team, _ := s.CreateTeam("Platform")
	p1, _ := s.CreateProject("P1", "#111", &team.ID)
	p2, _ := s.CreateProject("P2", "#222", nil)
	u, _ := s.CreateUser("ana", "")

	insertEntry(t, s, &u.ID, &p1.ID, t0, time.Hour)
	insertEntry(t, s, nil, &p2.ID, t0.Add(24*time.Hour), time.Hour)
	insertEntry(t, s, &u.ID, &p2.ID, t0.Add(48*time.Hour), time.Hour)

	all, err := s.ListEntries(EntryFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || !all[0].StartTime.Equal(t0) {
		t.Fatalf("expected 3 entries oldest first, got %+v", all)
	}

	byProject, _ := s.ListEntries(EntryFilter{ProjectID: &p2.ID})
	byUser, _ := s.ListEntries(EntryFilter{UserID: &u.ID})
	byTeam, _ := s.ListEntries(EntryFilter{TeamID: &team.ID})
	if len(byProject) != 2 || len(byUser) != 2 || len(byTeam) != 1 {
		t.Fatalf("project=%d user=%d team=%d", len(byProject), len(byUser), len(byTeam))
	}

	from := t0.Add(24 * time.Hour)
	to := t0.Add(48 * time.Hour)
	ranged, _ := s.ListEntries(EntryFilter{From: &from, To: &to})
	if len(ranged) != 1 || *ranged[0].ProjectID != p2.ID {
		t.Fatalf("expected the half-open range to hold 1 entry, got %+v", ranged)
	}

	limited, _ := s.ListEntries(EntryFilter{Limit: 2})
	if len(limited) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(limited))
	}
}

func TestListEntriesEmpty(t *testing.T) {
	s := newTestStore(t)
	entries, err := s.ListEntries(EntryFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

// ============================================================
// Rates
// ============================================================

func TestSetAndResolveRate(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.CreateProject("Web", "#000", nil)
	u, _ := s.CreateUser("ana", "")

	if err := s.SetRate(&p.ID, nil, decimal.NewFromInt(3000)); err != nil {
		t.Fatal(err)
	}
	if err := s.SetRate(nil, &u.ID, decimal.NewFromInt(2000)); err != nil {
		t.Fatal(err)
	}

	rate, ok, err := s.ResolveRate(&p.ID, &u.ID)
	if err != nil || !ok || !rate.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("pair should fall back to the project rate, got %s %v %v", rate, ok, err)
	}

	if err := s.SetRate(&p.ID, &u.ID, decimal.RequireFromString("3500.5")); err != nil {
		t.Fatal(err)
	}
	rate, _, _ = s.ResolveRate(&p.ID, &u.ID)
	if !rate.Equal(decimal.RequireFromString("3500.5")) {
		t.Fatalf("exact pair rate not preferred, got %s", rate)
	}

	// Overwrite keeps one row per key.
	if err := s.SetRate(&p.ID, nil, decimal.NewFromInt(3100)); err != nil {
		t.Fatal(err)
	}
	rates, _ := s.ListRates()
	if len(rates) != 3 {
		t.Fatalf("expected 3 rate rows, got %d", len(rates))
	}

	other, _ := s.CreateProject("Other", "#000", nil)
	if _, ok, _ := s.ResolveRate(&other.ID, nil); ok {
		t.Fatal("expected no rate for an unrated project")
	}
}

func TestSetRateValidation(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetRate(nil, nil, decimal.NewFromInt(1)); err == nil {
		t.Fatal("expected error without project or user")
	}
	p, _ := s.CreateProject("Web", "#000", nil)
	if err := s.SetRate(&p.ID, nil, decimal.NewFromInt(-1)); !errors.Is(err, engine.ErrNegativeRate) {
		t.Fatalf("expected ErrNegativeRate, got %v", err)
	}
}

func TestRateBookRatesFor(t *testing.T) {
	p1, p2, p3, u1, u2 := int64(1), int64(2), int64(3), int64(10), int64(20)
	book := NewRateBook([]Rate{
		{ProjectID: &p1, HourlyRate: decimal.NewFromInt(3000)},
		{ProjectID: &p2, UserID: &u1, HourlyRate: decimal.NewFromInt(4000)},
		{UserID: &u2, HourlyRate: decimal.NewFromInt(1500)},
	})
	entries := []engine.TimeEntry{
		{ProjectID: &p1, UserID: &u1},
		{ProjectID: &p2, UserID: &u1},
		{ProjectID: &p3},
		{UserID: &u2},
	}

	rates, err := book.RatesFor(engine.DimProject, entries)
	if err != nil {
		t.Fatal(err)
	}
	if len(rates) != 2 || !rates["1"].Equal(decimal.NewFromInt(3000)) || !rates["2"].Equal(decimal.NewFromInt(4000)) {
		t.Fatalf("unexpected project rates: %v", rates)
	}

	// By user, u1 mixes the p1 project rate and the p2 pair rate.
	_, err = book.RatesFor(engine.DimUser, entries)
	var conflict *ConflictingRatesError
	if !errors.As(err, &conflict) || conflict.GroupID != "10" || !errors.Is(err, ErrConflictingRates) {
		t.Fatalf("expected conflict on user 10, got %v", err)
	}

	rates, err = book.RatesFor(engine.DimUser, entries[2:])
	if err != nil || len(rates) != 1 || !rates["20"].Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("unexpected user rates: %v %v", rates, err)
	}

	rates, err = book.RatesFor(engine.DimDay, entries)
	if err != nil || len(rates) != 0 {
		t.Fatalf("time dimensions have no stored rates, got %v %v", rates, err)
	}
}

func TestRateBookPartiallyRatedGroup(t *testing.T) {
	p, u1, u2 := int64(1), int64(10), int64(20)
	book := NewRateBook([]Rate{{ProjectID: &p, UserID: &u1, HourlyRate: decimal.NewFromInt(3000)}})
	rates, err := book.RatesFor(engine.DimProject, []engine.TimeEntry{
		{ProjectID: &p, UserID: &u1},
		{ProjectID: &p, UserID: &u2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := rates["1"]; ok {
		t.Fatal("a group with an unrated entry should be left out")
	}
}

func TestRateBookFromStore(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.CreateProject("Web", "#000", nil)
	u, _ := s.CreateUser("ana", "")
	if err := s.SetRate(&p.ID, &u.ID, decimal.NewFromInt(3000)); err != nil {
		t.Fatal(err)
	}

	book, err := s.RateBook()
	if err != nil {
		t.Fatal(err)
	}
	rates, err := book.RatesFor(engine.DimProject, []engine.TimeEntry{{ProjectID: &p.ID, UserID: &u.ID}})
	if err != nil {
		t.Fatal(err)
	}
	if !rates[strconv.FormatInt(p.ID, 10)].Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("pair rate not used for the project group: %v", rates)
	}
}

// ============================================================
// Directory and settings
// ============================================================

func TestDirectory(t *testing.T) {
	s := newTestStore(t)
	team, _ := s.CreateTeam("Platform")
	p, _ := s.CreateProject("API", "#000", &team.ID)
	u, _ := s.CreateUser("ana", "")
	s.ArchiveProject(p.ID)

	dir, err := s.Directory()
	if err != nil {
		t.Fatal(err)
	}
	if dir.Projects[p.ID] != "API" || dir.Teams[team.ID] != "Platform" || dir.Users[u.ID] != "ana" {
		t.Fatalf("unexpected directory: %+v", dir)
	}
}

func TestSettings(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetSetting(SettingTaxRate); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := s.SettingOr(SettingTaxRate, "0.10"); got != "0.10" {
		t.Fatalf("fallback = %q", got)
	}
	if err := s.SetSetting(SettingTaxRate, "0.08"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSetting(SettingTaxRate, "0.05"); err != nil {
		t.Fatal(err)
	}
	if got := s.SettingOr(SettingTaxRate, "0.10"); got != "0.05" {
		t.Fatalf("setting = %q, want overwritten value", got)
	}
	all, err := s.GetAllSettings()
	if err != nil || len(all) != 1 {
		t.Fatalf("settings = %v, %v", all, err)
	}
}

func TestCloseStore(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ListTeams(); err == nil {
		t.Fatal("expected error after close")
	}
}
