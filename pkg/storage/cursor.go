package storage

import (
	"encoding/base64"
	"strconv"
)

// ClampLimit applies the hard page-size clamp from spec.md §8 ("Limit
// clamping"): any requested limit outside (0, MaxPageSize] is replaced by
// MaxPageSize.
func ClampLimit(limit int) int {
	if limit <= 0 || limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

const maxPageSize = 25

// EncodeOffsetCursor and DecodeOffsetCursor implement the simple numeric
// offset cursor used by every backend: memory, and postgres and sqlite
// through the shared sqlstore package (spec.md §4.2 permits
// "a numeric page index may stringify it"). Cursors are opaque to every
// caller outside this package; orchestrator code only ever echoes them back.
func EncodeOffsetCursor(offset int) string {
	if offset <= 0 {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

func DecodeOffsetCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, wrap("decode cursor", err)
	}
	offset, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, wrap("decode cursor", err)
	}
	return offset, nil
}
