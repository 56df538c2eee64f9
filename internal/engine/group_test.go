package engine

import (
	"errors"
	"math"
	"testing"
	"time"
)

// ============================================================
// Grouping
// ============================================================

func TestGroupByProjectScenario(t *testing.T) {
	entries := []TimeEntry{
		closed(1, id(1), 0, time.Hour),
		closed(2, id(2), 2*time.Hour, 3*time.Hour),
	}
	names := Directory{Projects: map[int64]string{1: "P1", 2: "P2"}}

	groups, err := Group(entries, DimProject, GroupOptions{Now: base, Names: names})
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Label != "P2" || groups[0].PercentageOfTotal != 75 {
		t.Fatalf("first group = %+v, want P2 at 75%%", groups[0])
	}
	if groups[1].Label != "P1" || groups[1].PercentageOfTotal != 25 {
		t.Fatalf("second group = %+v, want P1 at 25%%", groups[1])
	}
	if Total(groups) != 14400 {
		t.Fatalf("total = %d, want 14400", Total(groups))
	}
}

func TestGroupEmpty(t *testing.T) {
	groups, err := Group(nil, DimUser, GroupOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if groups == nil || len(groups) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", groups)
	}
}

func TestGroupUnknownDimension(t *testing.T) {
	_, err := Group(nil, Dimension("client"), GroupOptions{})
	if !errors.Is(err, ErrUnknownDimension) {
		t.Fatalf("expected ErrUnknownDimension, got %v", err)
	}
	if _, err := ParseDimension("client"); !errors.Is(err, ErrUnknownDimension) {
		t.Fatalf("ParseDimension: expected ErrUnknownDimension, got %v", err)
	}
	for _, d := range Dimensions {
		if _, err := ParseDimension(string(d)); err != nil {
			t.Fatalf("ParseDimension(%q): %v", d, err)
		}
	}
}

func TestGroupUnassignedSentinel(t *testing.T) {
	entries := []TimeEntry{
		closed(1, id(1), 0, time.Hour),
		closed(2, nil, time.Hour, 2*time.Hour),
		{ID: 3, UserID: id(9), StartTime: base, EndTime: at(base.Add(30 * time.Minute))},
	}
	groups, err := Group(entries, DimProject, GroupOptions{UnassignedLabel: "(no project)"})
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %+v", groups)
	}
	un := groups[0]
	if un.ID != UnassignedID || un.Label != "(no project)" || un.EntryCount != 2 {
		t.Fatalf("unexpected unassigned group: %+v", un)
	}
	if groups[1].Label != "Project 1" {
		t.Fatalf("expected fallback label, got %q", groups[1].Label)
	}
}

func TestGroupByTeamUsesTeamAssociation(t *testing.T) {
	entries := []TimeEntry{
		{ID: 1, ProjectID: id(1), TeamID: id(10), StartTime: base, EndTime: at(base.Add(time.Hour))},
		{ID: 2, ProjectID: id(2), TeamID: id(10), StartTime: base, EndTime: at(base.Add(time.Hour))},
		{ID: 3, ProjectID: id(3), StartTime: base, EndTime: at(base.Add(time.Hour))},
	}
	names := Directory{Teams: map[int64]string{10: "Platform"}}
	groups, err := Group(entries, DimTeam, GroupOptions{Names: names})
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %+v", groups)
	}
	if groups[0].ID != "10" || groups[0].Label != "Platform" || groups[0].TotalSeconds != 7200 {
		t.Fatalf("unexpected team group: %+v", groups[0])
	}
	if groups[1].ID != UnassignedID || groups[1].Label != "Not set" {
		t.Fatalf("unexpected fallback group: %+v", groups[1])
	}
}

func TestGroupTiesKeepFirstEncounteredOrder(t *testing.T) {
	entries := []TimeEntry{
		closed(1, id(3), 0, time.Hour),
		closed(2, id(1), 0, time.Hour),
		closed(3, id(2), 0, 2*time.Hour),
		closed(4, id(1), 0, 0),
	}
	groups, err := Group(entries, DimProject, GroupOptions{})
	if err != nil {
		t.Fatal(err)
	}
	got := []string{groups[0].ID, groups[1].ID, groups[2].ID}
	want := []string{"2", "3", "1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestGroupByTimeDimensions(t *testing.T) {
	wed := time.Date(2024, 1, 17, 23, 30, 0, 0, time.UTC)
	entries := []TimeEntry{
		{ID: 1, StartTime: wed, EndTime: at(wed.Add(2 * time.Hour))}, // crosses midnight
		{ID: 2, StartTime: wed.AddDate(0, 0, 1), EndTime: at(wed.AddDate(0, 0, 1).Add(time.Hour))},
	}

	tests := []struct {
		dim     Dimension
		cal     Calendar
		wantID  string
		wantLbl string
		groups  int
	}{
		{DimDay, Calendar{}, "2024-01-17", "Wed, Jan 17 2024", 2},
		{DimWeek, Calendar{}, "2024-01-15", "Week of Jan 15, 2024", 1},
		{DimWeek, Calendar{SundayFirst: true}, "2024-01-14", "Week of Jan 14, 2024", 1},
		{DimMonth, Calendar{}, "2024-01", "January 2024", 1},
	}
	for _, tt := range tests {
		groups, err := Group(entries, tt.dim, GroupOptions{Calendar: tt.cal})
		if err != nil {
			t.Fatalf("%s: %v", tt.dim, err)
		}
		if len(groups) != tt.groups {
			t.Fatalf("%s: expected %d groups, got %+v", tt.dim, tt.groups, groups)
		}
		if groups[0].ID != tt.wantID || groups[0].Label != tt.wantLbl {
			t.Fatalf("%s: got %q/%q, want %q/%q", tt.dim, groups[0].ID, groups[0].Label, tt.wantID, tt.wantLbl)
		}
	}
}

func TestGroupDayUsesCalendarLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	start := time.Date(2024, 1, 15, 20, 0, 0, 0, time.UTC) // 05:00 on the 16th in JST
	entries := []TimeEntry{{ID: 1, StartTime: start, EndTime: at(start.Add(time.Hour))}}
	groups, err := Group(entries, DimDay, GroupOptions{Calendar: Calendar{Location: tokyo}})
	if err != nil {
		t.Fatal(err)
	}
	if groups[0].ID != "2024-01-16" {
		t.Fatalf("expected local day 2024-01-16, got %s", groups[0].ID)
	}
}

func TestGroupRunningEntryUsesNow(t *testing.T) {
	entries := []TimeEntry{{ID: 1, UserID: id(4), StartTime: base}}
	groups, err := Group(entries, DimUser, GroupOptions{Now: base.Add(90 * time.Minute)})
	if err != nil {
		t.Fatal(err)
	}
	if groups[0].TotalSeconds != 5400 {
		t.Fatalf("expected 5400, got %d", groups[0].TotalSeconds)
	}
}

func TestGroupInvalidEntryFails(t *testing.T) {
	entries := []TimeEntry{
		closed(1, id(1), 0, time.Hour),
		{ID: 2, ProjectID: id(1), StartTime: base, EndTime: at(base.Add(-time.Hour))},
	}
	groups, err := Group(entries, DimProject, GroupOptions{})
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if groups != nil {
		t.Fatal("expected no partial result")
	}

	groups, err = Group(entries, DimProject, GroupOptions{ClampNegative: true})
	if err != nil {
		t.Fatal(err)
	}
	if groups[0].TotalSeconds != 3600 || groups[0].EntryCount != 2 {
		t.Fatalf("unexpected clamped group: %+v", groups[0])
	}
}

// ============================================================
// Coverage and closure
// ============================================================

func TestGroupCoverageAndClosure(t *testing.T) {
	var entries []TimeEntry
	for i := int64(0); i < 40; i++ {
		var proj *int64
		if i%7 != 0 {
			proj = id(i % 5)
		}
		entries = append(entries, TimeEntry{
			ID:        i,
			ProjectID: proj,
			UserID:    id(i % 3),
			StartTime: base.Add(time.Duration(i) * 13 * time.Hour),
			EndTime:   at(base.Add(time.Duration(i)*13*time.Hour + time.Duration(i*97+1)*time.Second)),
		})
	}
	spans, err := Normalize(entries, base, NormalizeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	want := TotalSeconds(spans)

	for _, dim := range Dimensions {
		groups, err := Group(entries, dim, GroupOptions{})
		if err != nil {
			t.Fatalf("%s: %v", dim, err)
		}
		var count int
		var pct float64
		for _, g := range groups {
			count += g.EntryCount
			pct += g.PercentageOfTotal
		}
		if Total(groups) != want {
			t.Fatalf("%s: total %d, want %d", dim, Total(groups), want)
		}
		if count != len(entries) {
			t.Fatalf("%s: %d entries covered, want %d", dim, count, len(entries))
		}
		if math.Abs(pct-100) > 0.01 {
			t.Fatalf("%s: percentages sum to %f", dim, pct)
		}
	}
}

func TestGroupZeroTotalPercentages(t *testing.T) {
	entries := []TimeEntry{closed(1, id(1), 0, 0), closed(2, id(2), 0, 0)}
	groups, err := Group(entries, DimProject, GroupOptions{})
	if err != nil {
		t.Fatal(err)
	}
	for _, g := range groups {
		if g.PercentageOfTotal != 0 {
			t.Fatalf("expected 0%%, got %+v", g)
		}
	}
}

// ============================================================
// Colors
// ============================================================

func TestColorDeterminism(t *testing.T) {
	for i := -1; i < 30; i++ {
		if DefaultPalette.Color("42", i) != DefaultPalette.Color("42", i) {
			t.Fatalf("color for index %d is not stable", i)
		}
	}
}

func TestColorIndexDominatesHash(t *testing.T) {
	for i := 0; i < 25; i++ {
		a := DefaultPalette.Color("alpha", i)
		b := DefaultPalette.Color("beta", i)
		if a != b {
			t.Fatalf("index %d: %s != %s", i, a, b)
		}
		if a != DefaultPalette[i%len(DefaultPalette)] {
			t.Fatalf("index %d: expected palette slot %d", i, i%len(DefaultPalette))
		}
	}
}

func TestColorHashFallback(t *testing.T) {
	p := Palette{"#000", "#111", "#222", "#333", "#444", "#555", "#666", "#777", "#888", "#999"}
	c := p.Color("project-12", -1)
	if c != p[hashSlot("project-12", len(p))] {
		t.Fatalf("unexpected hash color %s", c)
	}
	if len(DefaultPalette) < 10 {
		t.Fatalf("palette has %d colors, want at least 10", len(DefaultPalette))
	}
	var empty Palette
	if empty.Color("x", 3) != DefaultPalette[3] {
		t.Fatal("empty palette should fall back to the default palette")
	}
}

func TestGroupColorByHashIsOrderIndependent(t *testing.T) {
	a := []TimeEntry{closed(1, id(1), 0, time.Hour), closed(2, id(2), 0, 2*time.Hour)}
	b := []TimeEntry{closed(1, id(1), 0, 3*time.Hour), closed(2, id(2), 0, 2*time.Hour)}

	ga, _ := Group(a, DimProject, GroupOptions{ColorByHash: true})
	gb, _ := Group(b, DimProject, GroupOptions{ColorByHash: true})
	colors := map[string]string{}
	for _, g := range ga {
		colors[g.ID] = g.Color
	}
	for _, g := range gb {
		if colors[g.ID] != g.Color {
			t.Fatalf("group %s changed color when order changed", g.ID)
		}
	}

	gi, _ := Group(a, DimProject, GroupOptions{})
	if gi[0].Color != DefaultPalette[0] || gi[1].Color != DefaultPalette[1] {
		t.Fatalf("index colors not applied: %+v", gi)
	}
}
