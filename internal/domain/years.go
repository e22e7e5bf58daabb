package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// firstArchiveYear is the oldest year the portal publishes automatic-station
// archives for.
const firstArchiveYear = 2000

var yearListSep = regexp.MustCompile(`[,\s]+`)

// ParseYears expands a year specification into the list of years to fetch:
// "all" for every year from 2000 through the current one, "start-end" for an
// inclusive range, or a comma/space-separated list.
func ParseYears(spec string) ([]int, error) {
	spec = strings.TrimSpace(spec)
	switch {
	case spec == "":
		return nil, fmt.Errorf("empty year spec")
	case strings.EqualFold(spec, "all"):
		return yearRange(firstArchiveYear, clock.Now().Year())
	case strings.Contains(spec, "-"):
		parts := strings.SplitN(spec, "-", 2)
		start, err := parseYear(parts[0])
		if err != nil {
			return nil, err
		}
		end, err := parseYear(parts[1])
		if err != nil {
			return nil, err
		}
		return yearRange(start, end)
	default:
		var years []int
		for _, tok := range yearListSep.Split(spec, -1) {
			if tok == "" {
				continue
			}
			y, err := parseYear(tok)
			if err != nil {
				return nil, err
			}
			years = append(years, y)
		}
		if len(years) == 0 {
			return nil, fmt.Errorf("no years in spec %q", spec)
		}
		return years, nil
	}
}

func parseYear(s string) (int, error) {
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	return y, nil
}

func yearRange(start, end int) ([]int, error) {
	if start > end {
		return nil, fmt.Errorf("year range %d-%d is inverted", start, end)
	}
	years := make([]int, 0, end-start+1)
	for y := start; y <= end; y++ {
		years = append(years, y)
	}
	return years, nil
}
