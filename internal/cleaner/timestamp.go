package cleaner

import (
	"strings"
	"time"
)

// pickupLayouts are the accepted pickup_datetime formats, tried in order.
// The first entry matches the trip dataset's native format
// ("2015-05-07 19:52:06 UTC"); fractional seconds in the value are accepted
// by time.Parse even when the layout omits them.
var pickupLayouts = []string{
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05 -0700",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parsePickupTime parses a raw pickup_datetime value. Loaders may deliver
// the field as a string, []byte or an already-parsed time.Time. Returns
// false on any value that cannot be interpreted as a timestamp; the row is
// then flagged by the invalid_timestamp rule, never treated as an error.
func parsePickupTime(v interface{}) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		if val.IsZero() {
			return time.Time{}, false
		}
		return val, true
	case []byte:
		return parsePickupString(string(val))
	case string:
		return parsePickupString(val)
	default:
		return time.Time{}, false
	}
}

func parsePickupString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range pickupLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
