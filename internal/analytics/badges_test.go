package analytics

import (
	"slices"
	"testing"
)

func badgesFor(events []ActivityEvent) map[string][]string {
	p := aggregate(events)
	p.assignBadges()
	out := make(map[string][]string, len(p.users))
	for name, acc := range p.users {
		out[name] = acc.badges
	}
	return out
}

func TestBadges_TopContributor(t *testing.T) {
	got := badgesFor([]ActivityEvent{
		{DocID: "d1", UserEmail: "A", WordsAdded: 100},
		{DocID: "d1", UserEmail: "B", WordsAdded: 150},
	})
	if !slices.Contains(got["B"], BadgeTopContributor) {
		t.Errorf("B badges = %v, want Top Contributor", got["B"])
	}
	if slices.Contains(got["A"], BadgeTopContributor) {
		t.Errorf("A should not be Top Contributor: %v", got["A"])
	}
}

func TestBadges_TopContributorTieIsLexicographic(t *testing.T) {
	events := []ActivityEvent{
		{DocID: "d1", UserEmail: "zed", WordsAdded: 50},
		{DocID: "d1", UserEmail: "amy", WordsAdded: 50},
		{DocID: "d1", UserEmail: "max", WordsAdded: 50},
	}
	got := badgesFor(events)
	if !slices.Contains(got["amy"], BadgeTopContributor) {
		t.Errorf("amy should win the tie, badges = %v", got)
	}
	count := 0
	for _, b := range got {
		if slices.Contains(b, BadgeTopContributor) {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Top Contributor awarded %d times, want 1", count)
	}
}

func TestBadges_TopContributorWithZeroWords(t *testing.T) {
	got := badgesFor([]ActivityEvent{{DocID: "d1", UserEmail: "solo"}})
	if !slices.Contains(got["solo"], BadgeTopContributor) {
		t.Errorf("single user should be Top Contributor, got %v", got["solo"])
	}
}

func TestBadges_EarlyBird(t *testing.T) {
	var events []ActivityEvent
	for i := 0; i < 6; i++ {
		events = append(events, ActivityEvent{DocID: "d1", UserEmail: "early", Timestamp: at(i%5, 6)})
	}
	got := badgesFor(events)["early"]
	if !slices.Contains(got, BadgeEarlyBird) {
		t.Errorf("badges = %v, want Early Bird", got)
	}
	if slices.Contains(got, BadgeNightOwl) {
		t.Errorf("badges = %v, should not include Night Owl", got)
	}
}

func TestBadges_NightOwlWindowWraps(t *testing.T) {
	events := []ActivityEvent{
		{DocID: "d1", UserEmail: "owl", Timestamp: at(0, 21)},
		{DocID: "d1", UserEmail: "owl", Timestamp: at(0, 2)},
		{DocID: "d1", UserEmail: "owl", Timestamp: at(0, 14)},
		{DocID: "d1", UserEmail: "owl", Timestamp: at(0, 15)},
	}
	got := badgesFor(events)["owl"]
	if !slices.Contains(got, BadgeNightOwl) {
		t.Errorf("exactly half at night should earn Night Owl, got %v", got)
	}
}

func TestBadges_BelowHalf(t *testing.T) {
	events := []ActivityEvent{
		{DocID: "d1", UserEmail: "u", Timestamp: at(0, 6)},
		{DocID: "d1", UserEmail: "u", Timestamp: at(0, 12)},
		{DocID: "d1", UserEmail: "u", Timestamp: at(0, 13)},
	}
	got := badgesFor(events)["u"]
	if slices.Contains(got, BadgeEarlyBird) {
		t.Errorf("1/3 early should not earn Early Bird, got %v", got)
	}
}

func TestBadges_NoBucketedEventsSkipsTimeBadges(t *testing.T) {
	events := []ActivityEvent{
		{DocID: "d1", UserEmail: "u", Timestamp: TimestampString("bad")},
		{DocID: "d2", UserEmail: "u"},
		{DocID: "d3", UserEmail: "u"},
	}
	got := badgesFor(events)["u"]
	want := []string{BadgeTopContributor, BadgeTeamPlayer}
	if !slices.Equal(got, want) {
		t.Errorf("badges = %v, want %v", got, want)
	}
}

func TestBadges_TeamPlayer(t *testing.T) {
	got := badgesFor([]ActivityEvent{
		{DocID: "d1", UserEmail: "three"},
		{DocID: "d2", UserEmail: "three"},
		{DocID: "d3", UserEmail: "three"},
		{DocID: "d1", UserEmail: "two", WordsAdded: 1},
		{DocID: "d2", UserEmail: "two"},
		{DocID: "d2", UserEmail: "two"},
	})
	if !slices.Contains(got["three"], BadgeTeamPlayer) {
		t.Errorf("three docs should earn Team Player, got %v", got["three"])
	}
	if slices.Contains(got["two"], BadgeTeamPlayer) {
		t.Errorf("two docs should not earn Team Player, got %v", got["two"])
	}
}

func TestBadges_Order(t *testing.T) {
	events := []ActivityEvent{
		{DocID: "d1", UserEmail: "all", Timestamp: at(0, 6), WordsAdded: 9},
		{DocID: "d2", UserEmail: "all", Timestamp: at(0, 7)},
		{DocID: "d3", UserEmail: "all", Timestamp: at(0, 22)},
		{DocID: "d3", UserEmail: "all", Timestamp: at(0, 1)},
	}
	got := badgesFor(events)["all"]
	want := []string{BadgeTopContributor, BadgeEarlyBird, BadgeNightOwl, BadgeTeamPlayer}
	if !slices.Equal(got, want) {
		t.Errorf("badges = %v, want %v", got, want)
	}
}
