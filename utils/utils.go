// msgboard/utils/utils.go
package utils

import (
	"strconv"
	"strings"
)

var BackupDir string

// ParseIDList parses a comma-separated list of IDs. Non-numeric, zero and
// negative entries are dropped, duplicates removed, order preserved.
func ParseIDList(s string) []int64 {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	seen := make(map[int64]bool)
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// JoinIDList is the inverse of ParseIDList.
func JoinIDList(ids []int64) string {
	parts := make([]string, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ",")
}

// ContainsID reports whether id is in ids.
func ContainsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// RemoveID returns ids without any occurrence of id.
func RemoveID(ids []int64, id int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
