// Package rating implements ELO rating updates and rank tiers.
package rating

import "math"

// Defaults for new players and the update step.
const (
	DefaultRating = 1000
	DefaultK      = 32
)

// Expected returns the expected score of a player rated a against one rated b.
//
// Postcondition: result in (0, 1); Expected(a, b) + Expected(b, a) == 1.
func Expected(a, b int) float64 {
	return 1 / (1 + math.Pow(10, float64(b-a)/400))
}

// CalculateEloChange returns the rating change for the winner and the loser.
//
// Postcondition: winnerDelta >= 0; loserDelta == -winnerDelta.
func CalculateEloChange(winner, loser, k int) (winnerDelta, loserDelta int) {
	d := int(math.Round(float64(k) * (1 - Expected(winner, loser))))
	return d, -d
}

// CalculateDrawChange returns the rating change for both players of a draw:
// each scores 0.5.
//
// Postcondition: deltaA == -deltaB; the lower rated player never loses points.
func CalculateDrawChange(a, b, k int) (deltaA, deltaB int) {
	d := int(math.Round(float64(k) * (0.5 - Expected(a, b))))
	return d, -d
}

// Tier thresholds: a rating below Ceiling earns Name.
var tiers = []struct {
	Ceiling int
	Name    string
}{
	{1100, "Youngster"},
	{1300, "Bug Catcher"},
	{1500, "Ace Trainer"},
	{1700, "Gym Leader"},
	{1900, "Elite Four"},
	{2100, "Champion"},
}

// TopRank is the rank for ratings above every tier ceiling.
const TopRank = "Pokemon Master"

// ComputeRank returns the rank name for a rating.
func ComputeRank(rating int) string {
	for _, t := range tiers {
		if rating < t.Ceiling {
			return t.Name
		}
	}
	return TopRank
}
