// Package mdtable extracts business leads from pipe-delimited markdown
// tables embedded in free-form model output. The model's reply is
// non-deterministic: it may wrap the table in preamble, commentary, or code
// fences, omit the separator line, or emit more than one table. Every line
// is therefore scanned independently and rows that fail validation are
// dropped silently; the parser never returns an error.
package mdtable

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/leadscout/internal/model"
)

// headerLabel is the first-column header the prompts ask for; rows whose
// first cell matches it are header repeats, not data.
const headerLabel = "business name"

// Layout maps table columns to lead fields. A value of -1 marks a column
// the layout does not carry; the corresponding field falls back to its
// sentinel. MinCells is the fewest cells a row may have and still be
// accepted under the layout.
type Layout struct {
	Name     int
	Phone    int
	Address  int
	Rank     int
	Website  int
	MapsLink int
	Rating   int
	Distance int
	MinCells int
}

// Table shapes produced across prompt revisions.
var (
	// Compact: | Business Name | Phone | Rank | Website | Rating |
	Compact = Layout{Name: 0, Phone: 1, Address: -1, Rank: 2, Website: 3, MapsLink: -1, Rating: 4, Distance: -1, MinCells: 5}

	// WithAddress: | Business Name | Phone | Address | Rank | Website | Rating |
	WithAddress = Layout{Name: 0, Phone: 1, Address: 2, Rank: 3, Website: 4, MapsLink: -1, Rating: 5, Distance: -1, MinCells: 6}

	// WithDistance: | Business Name | Phone | Address | Rank | Website | Rating | Distance |
	WithDistance = Layout{Name: 0, Phone: 1, Address: 2, Rank: 3, Website: 4, MapsLink: -1, Rating: 5, Distance: 6, MinCells: 7}

	// Full: | Business Name | Phone | Address | Rank | Website | Maps Link | Rating | Distance |
	Full = Layout{Name: 0, Phone: 1, Address: 2, Rank: 3, Website: 4, MapsLink: 5, Rating: 6, Distance: 7, MinCells: 8}
)

// LayoutByName resolves a config-level layout name.
func LayoutByName(name string) (Layout, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "compact":
		return Compact, true
	case "address":
		return WithAddress, true
	case "distance":
		return WithDistance, true
	case "full":
		return Full, true
	default:
		return Layout{}, false
	}
}

// Options configures a parse pass.
type Options struct {
	Layout  Layout
	Keyword string

	// RankOffset is the fallback base added to a row's ordinal when its
	// stated rank is unparseable. Defaults to 1 so the fallback lands at
	// the row's natural position.
	RankOffset int

	// Sort orders the result ascending by rank.
	Sort bool
}

// Parse extracts zero or more leads from text. A text with no usable rows
// yields an empty slice, not an error; the caller decides whether that is
// a user-facing failure.
func Parse(text string, opts Options) []model.Lead {
	layout := opts.Layout
	if layout.MinCells == 0 {
		layout = WithAddress
	}
	offset := opts.RankOffset
	if offset <= 0 {
		offset = 1
	}

	stamp := time.Now().UnixMilli()
	var leads []model.Lead

	for _, line := range strings.Split(text, "\n") {
		if strings.Count(line, "|") < layout.MinCells-1 {
			continue
		}
		if isSeparator(line) {
			continue
		}

		cells := splitRow(line)
		if len(cells) < layout.MinCells {
			continue
		}

		name := cleanName(cells[layout.Name])
		if name == "" || strings.EqualFold(name, headerLabel) || isDashRun(name) {
			continue
		}

		ordinal := len(leads)
		leads = append(leads, model.Lead{
			ID:           fmt.Sprintf("%d-%d-%s", stamp, ordinal, uuid.NewString()[:8]),
			BusinessName: name,
			PhoneNumber:  cellOr(cells, layout.Phone, model.SentinelNA),
			Address:      cellOr(cells, layout.Address, model.SentinelNA),
			Rank:         parseRank(cellAt(cells, layout.Rank), ordinal+offset),
			Website:      cellOr(cells, layout.Website, model.SentinelNone),
			LocationLink: cellOr(cells, layout.MapsLink, model.SentinelLink),
			Rating:       parseRating(cellAt(cells, layout.Rating)),
			Distance:     cellAt(cells, layout.Distance),
			Keyword:      opts.Keyword,
		})
	}

	if opts.Sort {
		slices.SortStableFunc(leads, func(a, b model.Lead) int { return a.Rank - b.Rank })
	}
	return leads
}

// isSeparator reports whether line is a markdown header separator such as
// "|---|:---:|---|".
func isSeparator(line string) bool {
	rest := strings.Map(func(r rune) rune {
		switch r {
		case '|', ':', ' ', '\t':
			return -1
		}
		return r
	}, line)
	if rest == "" {
		return false
	}
	return isDashRun(rest)
}

func isDashRun(s string) bool {
	for _, r := range s {
		if r != '-' {
			return false
		}
	}
	return s != ""
}

// splitRow splits a table row on pipes, trims every cell, and drops the
// empty edge cells produced by leading/trailing delimiters.
func splitRow(line string) []string {
	cells := strings.Split(line, "|")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	if len(cells) > 0 && cells[0] == "" {
		cells = cells[1:]
	}
	if len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}

var nameMarkers = strings.NewReplacer("**", "", "*", "", "`", "")

// cleanName strips markdown emphasis and code markers from a business name.
func cleanName(cell string) string {
	return strings.TrimSpace(nameMarkers.Replace(cell))
}

// parseRank reads the stated rank, ignoring decoration ("**3.**", "#4").
// Unparseable or non-positive ranks substitute the fallback.
func parseRank(cell string, fallback int) int {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, cell)
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// parseRating reads a rating cell ("4.5", "4.5 stars"), substituting 0 on
// failure and clamping into [0, 5].
func parseRating(cell string) float64 {
	cell = strings.TrimSpace(cell)
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		fields := strings.Fields(cell)
		if len(fields) == 0 {
			return 0
		}
		v, err = strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return 0
		}
	}
	if v < 0 {
		return 0
	}
	if v > 5 {
		return 5
	}
	return v
}

func cellAt(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return cells[idx]
}

func cellOr(cells []string, idx int, sentinel string) string {
	if v := cellAt(cells, idx); v != "" {
		return v
	}
	return sentinel
}
