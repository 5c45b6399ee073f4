package workflow

import (
	"log/slog"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/textgen"
)

// env is what every node needs to talk to the capability.
type env struct {
	cfg    config.AnalysisConfig
	inv    *textgen.Invoker
	logger *slog.Logger
}

// chunk splits positions into consecutive groups of at most size.
func chunk(positions []int, size int) [][]int {
	if size < 1 {
		size = 1
	}
	var out [][]int
	for start := 0; start < len(positions); start += size {
		end := min(start+size, len(positions))
		out = append(out, positions[start:end])
	}
	return out
}

func allPositions(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// payloads renders the items at positions with batch-local ids "0".."n-1".
func payloads(items []domain.NewsItem, positions []int, fill func(domain.NewsItem, *textgen.Payload)) []textgen.Payload {
	out := make([]textgen.Payload, len(positions))
	for local, pos := range positions {
		out[local].ID = strconv.Itoa(local)
		fill(items[pos], &out[local])
	}
	return out
}

// resolve maps a batch-local id back to a position, reporting false for ids
// the batch never contained.
func resolve(positions []int, id textgen.Number) (int, bool) {
	local := int(id)
	if local < 0 || local >= len(positions) {
		return 0, false
	}
	return positions[local], true
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// truncate cuts s to at most limit runes, ending with an ellipsis when cut.
func truncate(s string, limit int) string {
	if limit <= 0 || runeLen(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit-1])) + "…"
}

// latinShare is the fraction of letters in s that are Latin script.
func latinShare(s string) float64 {
	var letters, latin int
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Latin, r) {
			latin++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(latin) / float64(letters)
}

func majorityLatin(s string) bool {
	return latinShare(s) > 0.5
}

func containsFold(list []string, value string) bool {
	value = strings.TrimSpace(value)
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), value) {
			return true
		}
	}
	return false
}
