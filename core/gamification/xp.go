package gamification

import "github.com/volatiletech/null/v8"

const (
	BaseXP           = 10
	ExcellentBonusXP = 10
	GoodBonusXP      = 5

	ExcellentScore = 90
	GoodScore      = 80

	XPPerLevel = 100
)

// AwardXP returns the XP earned by completing a lesson with the given score.
// A missing score counts as 0. Scores are not range checked.
func AwardXP(score null.Float64) int {
	var s float64
	if score.Valid {
		s = score.Float64
	}

	xp := BaseXP
	switch {
	case s >= ExcellentScore:
		xp += ExcellentBonusXP
	case s >= GoodScore:
		xp += GoodBonusXP
	}
	return xp
}

// ComputeLevel maps cumulative XP to a level: 0-99 is level 1, 100-199 level 2 and so on.
func ComputeLevel(totalXP int) int {
	if totalXP < 0 {
		return 1
	}
	return totalXP/XPPerLevel + 1
}
