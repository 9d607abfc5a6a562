package model

// TrustBadge grades connector reliability from A (best) to D (worst).
type TrustBadge string

const (
	BadgeA TrustBadge = "A"
	BadgeB TrustBadge = "B"
	BadgeC TrustBadge = "C"
	BadgeD TrustBadge = "D"
)

var badgeRank = map[TrustBadge]int{BadgeA: 1, BadgeB: 2, BadgeC: 3, BadgeD: 4}

// Rank returns the ordinal of the badge, 1 for A through 4 for D. Unknown
// labels rank as D so a bad record is never treated as trustworthy.
func (b TrustBadge) Rank() int {
	if r, ok := badgeRank[b]; ok {
		return r
	}
	return badgeRank[BadgeD]
}

// TrustFactor is the wait-time multiplier applied for the badge. Less
// reliable hardware inflates the predicted wait.
func (b TrustBadge) TrustFactor() float64 {
	switch b {
	case BadgeA:
		return 0.9
	case BadgeB:
		return 1.0
	case BadgeC:
		return 1.2
	default:
		return 1.5
	}
}

// WorstBadge aggregates connector badges into a station badge by taking the
// least reliable one. An empty list yields D, the most conservative grade.
// The connector-level badge is treated as a cache; callers recompute the
// station badge from the connector list rather than trusting a stored value.
func WorstBadge(badges []TrustBadge) TrustBadge {
	worst := BadgeA
	if len(badges) == 0 {
		return BadgeD
	}
	for _, b := range badges {
		if b.Rank() > worst.Rank() {
			worst = b
		}
		if _, ok := badgeRank[b]; !ok {
			worst = BadgeD
		}
	}
	return worst
}
