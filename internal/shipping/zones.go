// Package shipping holds the zone fee table used by the pricing engine's
// zone-based shipping rule. The table is loaded once at startup from a local
// file or S3 and is read-only afterwards.
package shipping

import (
	"fmt"
	"strconv"
	"strings"
)

// ZipPrefixLen is the number of leading zip-code characters a zone matches on.
const ZipPrefixLen = 5

// Table resolves a destination zip code to a zone base fee.
type Table interface {
	// Match returns the base fee for the zone covering the zip code, or nil
	// when no zone matches.
	Match(zipCode string) *float64

	// Len returns the number of zones in the table.
	Len() int
}

// mapTable is an in-memory Table keyed by zip prefix.
// No mutex needed - the table is read-only after initialization.
type mapTable struct {
	fees map[string]float64
}

// NewTable creates an empty zone table with the given capacity hint.
func NewTable(capacity int) Table {
	return &mapTable{
		fees: make(map[string]float64, capacity),
	}
}

func (t *mapTable) Match(zipCode string) *float64 {
	if len(zipCode) < ZipPrefixLen {
		return nil
	}
	fee, ok := t.fees[zipCode[:ZipPrefixLen]]
	if !ok {
		return nil
	}
	return &fee
}

func (t *mapTable) Len() int {
	return len(t.fees)
}

// add registers a zone entry, overwriting any previous fee for the prefix.
func (t *mapTable) add(prefix string, fee float64) {
	t.fees[prefix] = fee
}

// parseLine parses a "prefix,fee" zone file line. Blank lines and lines
// starting with '#' are skipped by returning ok=false.
func parseLine(line string) (prefix string, fee float64, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", 0, false, nil
	}

	parts := strings.SplitN(line, ",", 2)
	if len(parts) != 2 {
		return "", 0, false, fmt.Errorf("malformed zone line: %q", line)
	}

	prefix = strings.TrimSpace(parts[0])
	if len(prefix) != ZipPrefixLen {
		return "", 0, false, fmt.Errorf("zone prefix must be %d characters: %q", ZipPrefixLen, prefix)
	}

	fee, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid zone fee in line %q: %w", line, err)
	}
	if fee < 0 {
		return "", 0, false, fmt.Errorf("negative zone fee in line %q", line)
	}

	return prefix, fee, true, nil
}
