package models

import (
	"errors"
	"fmt"
	"sort"
)

// ErrTeamNotFound is returned when a rating lookup names a team that has no
// entry. Ratings have no safe default, unlike QB adjustments.
var ErrTeamNotFound = errors.New("team not found")

// MarketPrior is the preseason strength estimate derived from win-total lines
type MarketPrior struct {
	Team       string  `db:"team" json:"team"`
	Season     int     `db:"season" json:"season"`
	WTRating   float64 `db:"wt_rating" json:"wt_rating"`
	LineRating float64 `db:"line_rating" json:"line_rating"`
}

// TeamIndex is a stable enumeration of team abbreviations to dense ids
type TeamIndex struct {
	names []string
	ids   map[string]int
}

// NewTeamIndex builds an index over the distinct names, sorted alphabetically
func NewTeamIndex(names ...string) *TeamIndex {
	seen := make(map[string]struct{}, len(names))
	unique := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		unique = append(unique, n)
	}
	sort.Strings(unique)

	idx := &TeamIndex{names: unique, ids: make(map[string]int, len(unique))}
	for i, n := range unique {
		idx.ids[n] = i
	}
	return idx
}

// Len returns the number of teams
func (t *TeamIndex) Len() int {
	return len(t.names)
}

// Name returns the abbreviation for id
func (t *TeamIndex) Name(id int) string {
	return t.names[id]
}

// Names returns all abbreviations in id order
func (t *TeamIndex) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// ID returns the dense id of a team
func (t *TeamIndex) ID(team string) (int, error) {
	id, ok := t.ids[team]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrTeamNotFound, team)
	}
	return id, nil
}

// Contains reports whether the team is indexed
func (t *TeamIndex) Contains(team string) bool {
	_, ok := t.ids[team]
	return ok
}
