package utils

import (
	"testing"
	"time"
)

func TestLookbackRange(t *testing.T) {
	now := time.Date(2024, 3, 31, 18, 0, 0, 0, time.UTC)
	from, to := LookbackRange(30, now)
	if FormatDate(from) != "2024-03-01" {
		t.Errorf("from = %s, want 2024-03-01", FormatDate(from))
	}
	if !to.Equal(now) {
		t.Errorf("to = %v, want %v", to, now)
	}
}

func TestTruncateToDayKeepsZone(t *testing.T) {
	zone := time.FixedZone("EST", -5*60*60)
	// 23:30 EST is already the next day in UTC.
	ts := time.Date(2024, 1, 1, 23, 30, 0, 0, zone)
	day := TruncateToDay(ts)
	if FormatDate(day) != "2024-01-01" {
		t.Errorf("TruncateToDay = %s, want 2024-01-01", FormatDate(day))
	}
	if day.Location() != zone {
		t.Errorf("location = %v, want %v", day.Location(), zone)
	}
}

func TestNaiveTime(t *testing.T) {
	zone := time.FixedZone("EST", -5*60*60)
	ts := time.Date(2024, 1, 2, 9, 30, 0, 0, zone)
	n := NaiveTime(ts)
	if n.Location() != time.UTC {
		t.Fatalf("location = %v, want UTC", n.Location())
	}
	if n.Hour() != 9 || n.Minute() != 30 || n.Day() != 2 {
		t.Errorf("wall clock changed: %v", n)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		wantDay string
		wantOff int
		wantErr bool
	}{
		{"2024-01-01T12:00:00Z", "2024-01-01", 0, false},
		{"2024-01-01T23:30:00-05:00", "2024-01-01", -5 * 3600, false},
		{"2024-01-01T10:00:00.123+02:00", "2024-01-01", 2 * 3600, false},
		{"2024-01-01 08:00:00", "2024-01-01", 0, false},
		{"2024-01-01", "2024-01-01", 0, false},
		{"yesterday", "", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseTimestamp(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimestamp(%q) error: %v", tt.in, err)
			continue
		}
		if FormatDate(got) != tt.wantDay {
			t.Errorf("ParseTimestamp(%q) day = %s, want %s", tt.in, FormatDate(got), tt.wantDay)
		}
		if _, off := got.Zone(); off != tt.wantOff {
			t.Errorf("ParseTimestamp(%q) offset = %d, want %d", tt.in, off, tt.wantOff)
		}
	}
}

func TestSafeFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"apple", "apple"},
		{"Apple Inc.", "Apple_Inc."},
		{"  a/b\\c  ", "a_b_c"},
		{"***", "query"},
		{"BRK-B", "BRK-B"},
	}
	for _, tt := range tests {
		if got := SafeFileName(tt.in); got != tt.want {
			t.Errorf("SafeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatStamp(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	if got := FormatStamp(ts); got != "20240506T070809" {
		t.Errorf("FormatStamp = %q", got)
	}
}
