package match

import "strings"

// RoundShort abbreviates a canonical round name for staged file naming:
// "Round Of 16" -> "R16", "1st Round Qualifying" -> "Q1",
// "2nd Round" -> "2R", "Quarterfinals" -> "QF", "Semifinals" -> "SF",
// "Final" -> "F". Unrecognized names pass through unchanged.
func RoundShort(round string) string {
	words := strings.Fields(round)
	if len(words) == 0 {
		return round
	}

	switch {
	case strings.Contains(round, "Round Of"):
		return words[0][:1] + words[len(words)-1]
	case strings.Contains(round, "Round Qualifying"):
		return "Q" + words[0][:1]
	case strings.Contains(round, "Round"):
		var b strings.Builder
		for _, w := range words {
			b.WriteString(w[:1])
		}
		return b.String()
	case round == "Quarterfinals" || round == "Quarter-Finals":
		return "QF"
	case round == "Semifinals" || round == "Semi-Finals":
		return "SF"
	case round == "Final" || round == "Finals":
		return "F"
	}
	return round
}
