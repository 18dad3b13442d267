package analytics

import (
	"sort"
	"strconv"
	"time"
)

// DayLabels are the weekday labels, Monday first.
var DayLabels = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// Payload is the team analytics response. The first group of fields is the
// detailed shape; user_contributions, collaboration_timeline, badges and
// anomalies keep older dashboard builds working.
type Payload struct {
	Contributors         []Contributor  `json:"contributors"`
	CollaborationHeatmap map[string]int `json:"collaboration_heatmap"`
	HourlyActivity       map[string]int `json:"hourly_activity"`
	Alerts               []string       `json:"alerts"`

	UserContributions     []UserContribution `json:"user_contributions"`
	CollaborationTimeline []TimelinePoint    `json:"collaboration_timeline"`
	Badges                []BadgeAward       `json:"badges"`
	Anomalies             []Anomaly          `json:"anomalies"`

	CollaborationMatrix Matrix `json:"collaboration_matrix"`
}

// Contributor is one user's totals and badges.
type Contributor struct {
	UserEmail  string   `json:"user_email"`
	Username   string   `json:"username"`
	TotalWords int      `json:"total_words"`
	TotalEdits int      `json:"total_edits"`
	Badges     []string `json:"badges"`
}

// UserContribution is the flattened contributor row.
type UserContribution struct {
	Username   string `json:"username"`
	Edits      int    `json:"edits"`
	WordsAdded int    `json:"words_added"`
}

// TimelinePoint is the event count for one UTC hour of day.
type TimelinePoint struct {
	Hour     int `json:"hour"`
	Activity int `json:"activity"`
}

// BadgeAward pairs a user with one badge title.
type BadgeAward struct {
	Username string `json:"username"`
	Title    string `json:"title"`
}

// Anomaly is an alert in object form.
type Anomaly struct {
	Message string `json:"message"`
}

// Matrix is the weekday x hour grid with its axis labels.
type Matrix struct {
	Days   []string   `json:"days"`
	Hours  []int      `json:"hours"`
	Counts [7][24]int `json:"counts"`
}

// BuildPayload aggregates events and shapes the response. now only affects
// the staleness alerts.
func BuildPayload(events []ActivityEvent, now time.Time) *Payload {
	p := aggregate(events)
	p.assignBadges()
	return p.shape(now)
}

func (p *pass) shape(now time.Time) *Payload {
	contributors := make([]Contributor, 0, len(p.users))
	for _, name := range p.sortedUsers() {
		acc := p.users[name]
		badges := acc.badges
		if badges == nil {
			badges = []string{}
		}
		contributors = append(contributors, Contributor{
			UserEmail:  name,
			Username:   name,
			TotalWords: acc.totalWords,
			TotalEdits: acc.totalEdits,
			Badges:     badges,
		})
	}
	sort.SliceStable(contributors, func(i, j int) bool {
		return contributors[i].TotalWords > contributors[j].TotalWords
	})

	userContributions := make([]UserContribution, 0, len(contributors))
	awards := []BadgeAward{}
	for _, c := range contributors {
		userContributions = append(userContributions, UserContribution{
			Username:   c.Username,
			Edits:      c.TotalEdits,
			WordsAdded: c.TotalWords,
		})
		for _, b := range c.Badges {
			awards = append(awards, BadgeAward{Username: c.Username, Title: b})
		}
	}

	timeline := make([]TimelinePoint, 24)
	hourly := make(map[string]int, 24)
	hours := make([]int, 24)
	for h := 0; h < 24; h++ {
		timeline[h] = TimelinePoint{Hour: h, Activity: p.hourly[h]}
		hourly[strconv.Itoa(h)] = p.hourly[h]
		hours[h] = h
	}

	heatmap := make(map[string]int, 7)
	for i, label := range DayLabels {
		heatmap[label] = p.weekday[i]
	}

	alerts := staleAlerts(p.lastSeen, now)
	anomalies := make([]Anomaly, len(alerts))
	for i, msg := range alerts {
		anomalies[i] = Anomaly{Message: msg}
	}

	return &Payload{
		Contributors:          contributors,
		CollaborationHeatmap:  heatmap,
		HourlyActivity:        hourly,
		Alerts:                alerts,
		UserContributions:     userContributions,
		CollaborationTimeline: timeline,
		Badges:                awards,
		Anomalies:             anomalies,
		CollaborationMatrix: Matrix{
			Days:   DayLabels[:],
			Hours:  hours,
			Counts: p.matrix,
		},
	}
}
