package cleaner

import (
	"testing"
	"time"
)

func TestParsePickupTimeFormats(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		wantOK   bool
		wantHour int
	}{
		{"dataset native", "2015-05-07 19:52:06 UTC", true, 19},
		{"dataset native fractional", "2009-06-15 17:26:21.0000001 UTC", true, 17},
		{"rfc3339", "2015-05-07T19:52:06Z", true, 19},
		{"rfc3339 with offset", "2015-05-07T19:52:06+02:00", true, 19},
		{"numeric offset", "2015-05-07 19:52:06 +0000", true, 19},
		{"no zone", "2015-05-07 19:52:06", true, 19},
		{"t separator no zone", "2015-05-07T19:52:06", true, 19},
		{"date only", "2015-05-07", true, 0},
		{"midnight hour", "2015-05-07 00:10:00 UTC", true, 0},
		{"garbage", "not-a-date", false, 0},
		{"empty", "", false, 0},
		{"whitespace", "   ", false, 0},
		{"nil", nil, false, 0},
		{"number", 1431028326, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parsePickupTime(tt.value)
			if ok != tt.wantOK {
				t.Fatalf("parsePickupTime(%v) ok = %v, want %v", tt.value, ok, tt.wantOK)
			}
			if ok && got.Hour() != tt.wantHour {
				t.Errorf("hour = %d, want %d", got.Hour(), tt.wantHour)
			}
		})
	}
}

func TestParsePickupTimeAlreadyParsed(t *testing.T) {
	ts := time.Date(2015, 5, 7, 19, 52, 6, 0, time.UTC)
	got, ok := parsePickupTime(ts)
	if !ok || !got.Equal(ts) {
		t.Errorf("parsePickupTime(time.Time) = (%v, %v), want the value back", got, ok)
	}

	if _, ok := parsePickupTime(time.Time{}); ok {
		t.Error("zero time must be treated as unparseable")
	}
}

func TestParsePickupTimeBytes(t *testing.T) {
	got, ok := parsePickupTime([]byte("2015-05-07 19:52:06 UTC"))
	if !ok || got.Hour() != 19 {
		t.Errorf("parsePickupTime([]byte) = (%v, %v)", got, ok)
	}
}
