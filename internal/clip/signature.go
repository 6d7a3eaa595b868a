package clip

import (
	"strconv"
	"strings"
)

// Signature derives a change fingerprint over a clip sequence: the
// ordered concatenation of (id, updatedAt-or-capturedAt) pairs. Two
// equal signatures mean the clip set is unchanged and a merge/render
// can be skipped. The comparison is defined purely over the pair
// sequence as given.
func Signature(clips []Clip) string {
	if len(clips) == 0 {
		return ""
	}
	var b strings.Builder
	for i, c := range clips {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(c.ID)
		b.WriteByte(':')
		ts := c.UpdatedAt
		if ts == 0 {
			ts = c.CapturedAt
		}
		if ts != 0 {
			b.WriteString(strconv.FormatInt(ts, 10))
		}
	}
	return b.String()
}
