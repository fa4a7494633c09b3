// internal/analytics/overview.go
package analytics

import (
	"sort"
)

// LanguageShare is one language's byte count and share of the codebase.
type LanguageShare struct {
	Language string  `json:"language"`
	Bytes    int     `json:"bytes"`
	Percent  float64 `json:"percent"`
}

// LanguageShares turns the language byte-count map into shares sorted by
// size, largest first, ties broken by name.
func LanguageShares(byBytes map[string]int) []LanguageShare {
	total := 0
	for _, b := range byBytes {
		total += b
	}

	shares := make([]LanguageShare, 0, len(byBytes))
	for lang, b := range byBytes {
		share := LanguageShare{Language: lang, Bytes: b}
		if total > 0 {
			share.Percent = round1(float64(b) / float64(total) * 100)
		}
		shares = append(shares, share)
	}

	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Bytes != shares[j].Bytes {
			return shares[i].Bytes > shares[j].Bytes
		}
		return shares[i].Language < shares[j].Language
	})
	return shares
}
