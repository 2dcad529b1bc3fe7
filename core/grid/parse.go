package grid

import (
	"fmt"
	"strings"
)

// Parse builds a grid from an ASCII map. Recognized runes:
//
//	'.' empty, '#' obstacle, 'C' charging station, 'E' exit
//
// Station capacities are supplied separately, matched to 'C' runes in
// row-major scan order; missing entries default to capacity 1. Parse takes
// the exit only from an 'E' rune; a later SetExit call (sim.New makes one for
// a scenario's explicit exit coordinate) replaces it.
func Parse(asciiMap string, capacities []int) (*Grid, error) {
	lines := strings.Split(strings.Trim(asciiMap, "\n"), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return nil, fmt.Errorf("empty grid map")
	}
	height := len(lines)
	width := len(lines[0])
	for i, line := range lines {
		if len(line) != width {
			return nil, fmt.Errorf("ragged grid map: row %d has width %d, want %d", i, len(line), width)
		}
	}

	g := New(width, height)
	stationIdx := 0
	for y, line := range lines {
		for x, r := range line {
			c := Coord{x, y}
			switch r {
			case '.':
			case '#':
				if err := g.SetObstacle(c); err != nil {
					return nil, err
				}
			case 'C':
				capa := 1
				if stationIdx < len(capacities) {
					capa = capacities[stationIdx]
				}
				if _, err := g.AddStation(c, capa); err != nil {
					return nil, err
				}
				stationIdx++
			case 'E':
				if err := g.SetExit(c); err != nil {
					return nil, err
				}
			default:
				return nil, fmt.Errorf("unknown map rune %q at %s", r, c)
			}
		}
	}
	if stationIdx < len(capacities) {
		return nil, fmt.Errorf("capacities list has %d entries but map has %d stations", len(capacities), stationIdx)
	}
	return g, nil
}
