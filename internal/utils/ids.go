package utils

import "strconv"

func formatID(id uint64) string { return strconv.FormatUint(id, 10) }

// parseID accepts only positive decimal ids.
func parseID(s string) (uint64, bool) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}
