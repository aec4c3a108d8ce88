package prospect

import (
	"fmt"
	"strings"

	"github.com/sells-group/leadscout/internal/mdtable"
	"github.com/sells-group/leadscout/internal/model"
)

// columnHeaders renders the header row the layout expects back from the
// model, in column order.
func columnHeaders(layout mdtable.Layout) []string {
	type col struct {
		idx  int
		name string
	}
	cols := []col{
		{layout.Name, "Business Name"},
		{layout.Phone, "Phone Number"},
		{layout.Address, "Address"},
		{layout.Rank, "Rank"},
		{layout.Website, "Website"},
		{layout.MapsLink, "Maps Link"},
		{layout.Rating, "Rating"},
		{layout.Distance, "Distance"},
	}

	headers := make([]string, layout.MinCells)
	for _, c := range cols {
		if c.idx >= 0 && c.idx < len(headers) {
			headers[c.idx] = c.name
		}
	}
	return headers
}

// buildPrompt renders the instruction sent to the grounded model. The
// wording stays deliberately plain; rank-band targeting is carried by the
// query's RankOffset, not by prompt phrasing.
func buildPrompt(q model.Query, layout mdtable.Layout) string {
	var sb strings.Builder

	anchor := q.Location
	if q.Coords != nil {
		anchor = fmt.Sprintf("latitude %.6f, longitude %.6f", q.Coords.Lat, q.Coords.Lng)
		if q.Location != "" {
			anchor += fmt.Sprintf(" (%s)", q.Location)
		}
	}

	fmt.Fprintf(&sb, "Use your search tool to find real local businesses matching %q within %.0f km of %s.\n\n",
		q.Keyword, q.RadiusKm, anchor)

	headers := columnHeaders(layout)
	fmt.Fprintf(&sb, "Reply with ONLY a markdown table, no prose before or after, with exactly these columns:\n")
	fmt.Fprintf(&sb, "| %s |\n\n", strings.Join(headers, " | "))

	sb.WriteString("Rules:\n")
	sb.WriteString("- One business per row, ranked by local search prominence; put the numeric position in the Rank column.\n")
	sb.WriteString("- Use N/A for an unknown phone or address, None for a missing website.\n")
	if layout.Distance >= 0 {
		fmt.Fprintf(&sb, "- Give Distance from the anchor point as a number with an m or km unit, and only include businesses within %.0f km.\n", q.RadiusKm)
	}
	sb.WriteString("- Ratings are on a 0-5 scale.\n")

	return sb.String()
}
