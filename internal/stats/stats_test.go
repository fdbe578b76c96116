package stats

import (
	"testing"
	"time"
)

func TestRelativeTimeBuckets(t *testing.T) {
	now := int64(10_000_000_000)
	cases := []struct {
		name    string
		elapsed int64
		want    string
	}{
		{"zero", 0, "just now"},
		{"sub second", 999, "just now"},
		{"one second", 1000, "1s"},
		{"seconds", 59_999, "59s"},
		{"minute", 60_000, "1m"},
		{"minutes", 3_599_000, "59m"},
		{"hour", 3_600_000, "1h"},
		{"hours", 86_399_000, "23h"},
		{"day", 86_400_000, "1d"},
		{"days", 604_799_000, "6d"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RelativeTime(now-tc.elapsed, now); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRelativeTimeFallsBackToDate(t *testing.T) {
	epoch := time.Date(2024, time.March, 5, 23, 0, 0, 0, time.UTC).UnixMilli()
	now := epoch + int64(8*24*time.Hour/time.Millisecond)
	if got := RelativeTime(epoch, now); got != "3/5/2024" {
		t.Fatalf("unexpected date %q", got)
	}
}

func TestFormatterDateLayouts(t *testing.T) {
	date := time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)
	cases := map[string]string{
		"":      "3/5/2024",
		"en-US": "3/5/2024",
		"fr":    "05/03/2024",
		"de":    "05.03.2024",
		"ja":    "2024/3/5",
		"zz-!!": "3/5/2024",
	}
	for lang, want := range cases {
		if got := NewFormatter(lang).Date(date); got != want {
			t.Fatalf("%q: expected %q, got %q", lang, want, got)
		}
	}
}

func TestFormatterCount(t *testing.T) {
	if got := NewFormatter("en").Count(1234567); got != "1,234,567" {
		t.Fatalf("unexpected count %q", got)
	}
}

func TestFormatterDuration(t *testing.T) {
	f := NewFormatter("en")
	cases := []struct {
		d    time.Duration
		want string
	}{
		{42 * time.Second, "42s"},
		{5 * time.Minute, "5m"},
		{2*time.Hour + 3*time.Minute, "2h 3m"},
		{76*time.Hour + 5*time.Minute + 9*time.Second, "3d 4h 5m"},
	}
	for _, tc := range cases {
		if got := f.Duration(tc.d); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.d, tc.want, got)
		}
	}
}
