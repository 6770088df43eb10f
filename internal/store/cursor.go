package store

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/log-inspector/backend/internal/models"
)

// Query cursors are opaque continuation tokens: the UI hands them back
// unchanged to fetch the next window. Internally a cursor is the scan
// offset within the sort domain it was issued for, so a cursor from an
// insertion-order query cannot be replayed against a timestamp-order one.
const cursorVersion = "c1"

func encodeCursor(sort models.SortOrder, offset int) string {
	raw := fmt.Sprintf("%s:%s:%d", cursorVersion, sort, offset)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string, sort models.SortOrder) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("malformed cursor: %w", err)
	}
	parts := strings.SplitN(string(raw), ":", 3)
	if len(parts) != 3 || parts[0] != cursorVersion {
		return 0, fmt.Errorf("malformed cursor")
	}
	if models.SortOrder(parts[1]) != sort {
		return 0, fmt.Errorf("cursor was issued for sort order %q", parts[1])
	}
	offset, err := strconv.Atoi(parts[2])
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("malformed cursor offset")
	}
	return offset, nil
}
