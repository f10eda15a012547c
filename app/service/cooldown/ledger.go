package cooldown

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

type record struct {
	caller string
	entry  int
}

func compareRecords(a, b record) int {
	if c := cmp.Compare(a.caller, b.caller); c != 0 {
		return c
	}
	return cmp.Compare(a.entry, b.entry)
}

// parseLedger reads caller=entry=unixSeconds lines. Fractional timestamps are
// truncated, malformed lines are skipped.
func parseLedger(text string) map[record]int64 {
	result := make(map[record]int64)

	for _, line := range strings.Split(text, "\n") {
		parts := strings.Split(strings.TrimSpace(line), "=")
		if len(parts) != 3 || parts[0] == "" {
			continue
		}

		entry, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}

		expiry, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			continue
		}

		result[record{caller: parts[0], entry: entry}] = int64(expiry)
	}

	return result
}

func formatLedger(records map[record]int64) string {
	keys := slices.SortedFunc(maps.Keys(records), compareRecords)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("%s=%d=%d", key.caller, key.entry, records[key]))
	}

	return strings.Join(lines, "\n")
}
