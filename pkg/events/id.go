package events

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MintID builds the sortable event id {timestamp_ms}_{seq:04d}_{random8hex}.
// Lexicographic order matches chronological order for events sharing the
// same millisecond only because seq is the per-message monotonic counter
// encoded fixed-width (see pkg/eventstore).
func MintID(now time.Time, seq int64) string {
	randomSuffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%d_%04d_%s", now.UnixMilli(), seq, randomSuffix)
}

// ParseSeq extracts the embedded seq from an event id minted by MintID. It
// returns ok=false for a malformed id (caller treats that as "replay from
// the beginning" per the spec's resume semantics), never an error, since a
// malformed resume cursor is an expected client input, not a bug.
func ParseSeq(id string) (seq int64, ok bool) {
	parts := strings.Split(id, "_")
	if len(parts) != 3 {
		return 0, false
	}
	n, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
