package domain

import (
	"fmt"
	"strings"
	"time"
)

const periodLayout = "2006-01-02 15:04"

// FormatResources lists one description per line.
func FormatResources(resources []Resource) string {
	lines := make([]string, 0, len(resources))
	for _, r := range resources {
		lines = append(lines, r.Describe())
	}
	return strings.Join(lines, "\n")
}

// FormatTimePeriod renders the period in loc, falling back to time.Local.
func FormatTimePeriod(period TimePeriod, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	start := period.Start().In(loc)
	end := period.End().In(loc)
	return fmt.Sprintf("%s - %s (%s)", start.Format(periodLayout), end.Format(periodLayout), loc.String())
}
