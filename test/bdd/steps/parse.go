package steps

import (
	"fmt"
	"regexp"
)

var quoted = regexp.MustCompile(`"([^"]+)"`)

// parseSymbols extracts the quoted waypoint symbols of a step argument like `"A", "B", "C"`
func parseSymbols(list string) ([]string, error) {
	matches := quoted.FindAllStringSubmatch(list, -1)
	if len(matches) < 2 {
		return nil, fmt.Errorf("expected at least two quoted waypoints, got %q", list)
	}
	symbols := make([]string, 0, len(matches))
	for _, m := range matches {
		symbols = append(symbols, m[1])
	}
	return symbols, nil
}
