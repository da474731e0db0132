package classification

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"detailinfra/internal/remote"
	"detailinfra/internal/vehicle"
)

// LuxuryFilter narrows a listing by the luxury flag.
type LuxuryFilter string

const (
	LuxuryAll      LuxuryFilter = "all"
	LuxuryOnly     LuxuryFilter = "luxury"
	LuxuryStandard LuxuryFilter = "standard"
)

func ParseLuxuryFilter(s string) (LuxuryFilter, error) {
	switch LuxuryFilter(strings.ToLower(strings.TrimSpace(s))) {
	case "", LuxuryAll:
		return LuxuryAll, nil
	case LuxuryOnly:
		return LuxuryOnly, nil
	case LuxuryStandard:
		return LuxuryStandard, nil
	}
	return "", fmt.Errorf("%w: unknown luxury filter %q", ErrInvalidRow, s)
}

// Filter selects rows from the merged view. Query matches make or model
// as a case-insensitive substring; an empty Category matches every type.
type Filter struct {
	Query    string
	Category vehicle.Category
	Luxury   LuxuryFilter
}

func (f Filter) keep(r vehicle.Row) bool {
	if q := vehicle.Normalize(f.Query); q != "" {
		if !strings.Contains(vehicle.Normalize(r.Make), q) && !strings.Contains(vehicle.Normalize(r.Model), q) {
			return false
		}
	}
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	switch f.Luxury {
	case LuxuryOnly:
		return r.Luxury
	case LuxuryStandard:
		return !r.Luxury
	}
	return true
}

// List returns the merged view filtered by f, sorted by make then model.
func (s *Service) List(ctx context.Context, f Filter) ([]vehicle.Row, error) {
	rows, err := s.queue.View(ctx, remote.Filter{})
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, r := range rows {
		if f.keep(r) {
			out = append(out, r)
		}
	}
	sortRows(out)
	return out, nil
}

func sortRows(rows []vehicle.Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		mi, mj := vehicle.Normalize(rows[i].Make), vehicle.Normalize(rows[j].Make)
		if mi != mj {
			return mi < mj
		}
		return vehicle.Normalize(rows[i].Model) < vehicle.Normalize(rows[j].Model)
	})
}

// Makes lists the distinct makes in the merged view.
func (s *Service) Makes(ctx context.Context) ([]string, error) {
	rows, err := s.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	return distinct(rows, func(r vehicle.Row) string { return r.Make }), nil
}

// Models lists the distinct models recorded for mk.
func (s *Service) Models(ctx context.Context, mk string) ([]string, error) {
	rows, err := s.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	want := vehicle.Normalize(mk)
	kept := rows[:0]
	for _, r := range rows {
		if vehicle.Normalize(r.Make) == want {
			kept = append(kept, r)
		}
	}
	return distinct(kept, func(r vehicle.Row) string { return r.Model }), nil
}

// distinct keeps the first spelling of each value; rows arrive sorted.
func distinct(rows []vehicle.Row, field func(vehicle.Row) string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range rows {
		v := strings.TrimSpace(field(r))
		k := vehicle.Normalize(v)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}
