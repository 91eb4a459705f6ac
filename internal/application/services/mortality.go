package services

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/hospitrack/backend/internal/domain/entities"
)

// ParseMortality normalizes a free-text mortality description. Better
// outcomes carry a positive magnitude, worse outcomes a negative one, and
// "not used" or unparseable text has no magnitude.
func ParseMortality(text string) (entities.MortalityCategory, *int) {
	s := strings.ToLower(text)

	switch {
	case strings.Contains(s, "not used"):
		return entities.MortalityNotUsed, nil
	case strings.Contains(s, "worse"):
		n := -firstNumber(s)
		return entities.MortalityWorse, &n
	case strings.Contains(s, "better"):
		n := firstNumber(s)
		return entities.MortalityBetter, &n
	default:
		return entities.MortalityNotUsed, nil
	}
}

// firstNumber returns the first run of ASCII digits in s, or 0.
func firstNumber(s string) int {
	start := strings.IndexFunc(s, isDigit)
	if start < 0 {
		return 0
	}
	end := start
	for end < len(s) && isDigit(rune(s[end])) {
		end++
	}
	n, err := strconv.Atoi(s[start:end])
	if err != nil {
		// Overflowing digit runs are treated like missing digits.
		return 0
	}
	return n
}

func isDigit(r rune) bool {
	return r < unicode.MaxASCII && unicode.IsDigit(r)
}

// PrepareMortalitySort returns a copy of facilities with the mortality
// category, magnitude and tier order filled in for every row.
func PrepareMortalitySort(facilities []entities.RankedFacility) []entities.RankedFacility {
	out := entities.CloneRanked(facilities)
	for i := range out {
		category, magnitude := ParseMortality(out[i].MortalityText)
		out[i].MortalityCategory = category
		out[i].MortalityMagnitude = magnitude
		out[i].MortalityOrder = category.Order()
	}
	return out
}

// mortalityLess orders better before worse before not_used; within a tier
// the larger magnitude comes first.
func mortalityLess(a, b *entities.RankedFacility) (less, decided bool) {
	if a.MortalityOrder != b.MortalityOrder {
		return a.MortalityOrder < b.MortalityOrder, true
	}
	am, bm := a.MortalityMagnitude, b.MortalityMagnitude
	switch {
	case am == nil && bm == nil:
		return false, false
	case am == nil:
		return false, true
	case bm == nil:
		return true, true
	case *am != *bm:
		return *am > *bm, true
	}
	return false, false
}
