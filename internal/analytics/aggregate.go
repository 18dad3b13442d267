package analytics

import (
	"sort"
	"time"
)

// userAccumulator holds one user's totals for a single aggregation pass.
type userAccumulator struct {
	totalEdits int
	totalWords int
	docs       map[string]struct{}
	hours      [24]int
	badges     []string
}

func (u *userAccumulator) bucketed() int {
	n := 0
	for _, c := range u.hours {
		n += c
	}
	return n
}

// pass is the product of one linear scan over a team's events.
type pass struct {
	users    map[string]*userAccumulator
	hourly   [24]int
	weekday  [7]int
	matrix   [7][24]int
	lastSeen *time.Time
}

// mondayIndex maps time.Weekday (Sunday=0) to Monday=0..Sunday=6.
func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// aggregate scans events once. Events whose timestamp does not normalize
// still count toward edits and words but toward no temporal bucket.
func aggregate(events []ActivityEvent) *pass {
	p := &pass{users: make(map[string]*userAccumulator)}

	for _, ev := range events {
		name := ev.User()
		acc, ok := p.users[name]
		if !ok {
			acc = &userAccumulator{docs: make(map[string]struct{})}
			p.users[name] = acc
		}

		acc.totalEdits++
		acc.totalWords += ev.Words()
		if ev.DocID != "" {
			acc.docs[ev.DocID] = struct{}{}
		}

		ts, ok := NormalizeTimestamp(ev.Timestamp)
		if !ok {
			continue
		}
		utc := ts.UTC()
		hr := utc.Hour()
		wd := mondayIndex(utc.Weekday())

		p.hourly[hr]++
		p.weekday[wd]++
		p.matrix[wd][hr]++
		acc.hours[hr]++

		if p.lastSeen == nil || ts.After(*p.lastSeen) {
			last := ts
			p.lastSeen = &last
		}
	}

	return p
}

// sortedUsers returns user ids in lexicographic order, which is the
// deterministic iteration order for badges and contributor ties.
func (p *pass) sortedUsers() []string {
	names := make([]string, 0, len(p.users))
	for name := range p.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
