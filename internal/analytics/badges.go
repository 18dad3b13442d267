package analytics

import "github.com/shopspring/decimal"

// Badge titles.
const (
	BadgeTopContributor = "Top Contributor"
	BadgeEarlyBird      = "Early Bird"
	BadgeNightOwl       = "Night Owl"
	BadgeTeamPlayer     = "Team Player"
)

// teamPlayerMinDocs is how many distinct documents earn Team Player.
const teamPlayerMinDocs = 3

var majority = decimal.NewFromFloat(0.5)

// earlyHours are 05:00-09:59 UTC; nightHours are 21:00-02:59 UTC.
var (
	earlyHours = []int{5, 6, 7, 8, 9}
	nightHours = []int{21, 22, 23, 0, 1, 2}
)

// assignBadges runs once every accumulator is final.
func (p *pass) assignBadges() {
	names := p.sortedUsers()
	if len(names) == 0 {
		return
	}

	// Ties go to the lexicographically smallest user id
	top := names[0]
	for _, name := range names[1:] {
		if p.users[name].totalWords > p.users[top].totalWords {
			top = name
		}
	}
	p.users[top].badges = append(p.users[top].badges, BadgeTopContributor)

	for _, name := range names {
		acc := p.users[name]
		if total := acc.bucketed(); total > 0 {
			if atLeastHalf(sumHours(acc.hours, earlyHours), total) {
				acc.badges = append(acc.badges, BadgeEarlyBird)
			}
			if atLeastHalf(sumHours(acc.hours, nightHours), total) {
				acc.badges = append(acc.badges, BadgeNightOwl)
			}
		}
		if len(acc.docs) >= teamPlayerMinDocs {
			acc.badges = append(acc.badges, BadgeTeamPlayer)
		}
	}
}

func sumHours(hours [24]int, slots []int) int {
	n := 0
	for _, h := range slots {
		n += hours[h]
	}
	return n
}

func atLeastHalf(part, total int) bool {
	share := decimal.NewFromInt(int64(part)).Div(decimal.NewFromInt(int64(total)))
	return share.GreaterThanOrEqual(majority)
}
