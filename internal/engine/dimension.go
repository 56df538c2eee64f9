package engine

import (
	"fmt"
	"strconv"
)

// Dimension is the axis entries are grouped along.
type Dimension string

const (
	DimProject Dimension = "project"
	DimTeam    Dimension = "team"
	DimUser    Dimension = "user"
	DimDay     Dimension = "day"
	DimWeek    Dimension = "week"
	DimMonth   Dimension = "month"
)

// Dimensions lists every supported dimension in display order.
var Dimensions = []Dimension{DimProject, DimTeam, DimUser, DimDay, DimWeek, DimMonth}

// UnassignedID is the group id for entries missing the grouped association.
const UnassignedID = "unassigned"

const defaultUnassignedLabel = "Not set"

// ParseDimension validates s at the call boundary.
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(s)
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownDimension, s)
	}
	return d, nil
}

func (d Dimension) Valid() bool {
	_, ok := keyFuncs[d]
	return ok
}

// Unit returns the bucket unit for a time dimension.
func (d Dimension) Unit() (BucketUnit, bool) {
	switch d {
	case DimDay:
		return UnitDay, true
	case DimWeek:
		return UnitWeek, true
	case DimMonth:
		return UnitMonth, true
	}
	return "", false
}

// Directory maps association ids to display names.
type Directory struct {
	Projects map[int64]string `json:"projects,omitempty"`
	Teams    map[int64]string `json:"teams,omitempty"`
	Users    map[int64]string `json:"users,omitempty"`
}

type groupKey struct {
	id    string
	label string
}

type keyEnv struct {
	cal        Calendar
	names      Directory
	unassigned string
}

type keyFunc func(e TimeEntry, env keyEnv) groupKey

var keyFuncs = map[Dimension]keyFunc{
	DimProject: projectKey,
	DimTeam:    teamKey,
	DimUser:    userKey,
	DimDay:     timeKey(UnitDay),
	DimWeek:    timeKey(UnitWeek),
	DimMonth:   timeKey(UnitMonth),
}

func projectKey(e TimeEntry, env keyEnv) groupKey {
	return associationKey(e.ProjectID, env.names.Projects, "Project", env.unassigned)
}

func teamKey(e TimeEntry, env keyEnv) groupKey {
	return associationKey(e.TeamID, env.names.Teams, "Team", env.unassigned)
}

func userKey(e TimeEntry, env keyEnv) groupKey {
	return associationKey(e.UserID, env.names.Users, "User", env.unassigned)
}

func associationKey(id *int64, names map[int64]string, kind, unassigned string) groupKey {
	if id == nil {
		return groupKey{id: UnassignedID, label: unassigned}
	}
	label, ok := names[*id]
	if !ok || label == "" {
		label = fmt.Sprintf("%s %d", kind, *id)
	}
	return groupKey{id: strconv.FormatInt(*id, 10), label: label}
}

func timeKey(u BucketUnit) keyFunc {
	return func(e TimeEntry, env keyEnv) groupKey {
		start := env.cal.Floor(e.StartTime, u)
		return groupKey{id: BucketKey(start, u), label: BucketLabel(start, u)}
	}
}
