package stats

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/discogram/discogram/pkg/bus"
)

func TestGroupedInt(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{12, "12"},
		{999, "999"},
		{1000, "1,000"},
		{12_345, "12,345"},
		{1_000_000, "1,000,000"},
		{-4_200, "-4,200"},
		{-999, "-999"},
	}

	for _, tc := range tests {
		if got := GroupedInt(tc.in); got != tc.want {
			t.Fatalf("GroupedInt(%d)=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestGroupedIntExtremes(t *testing.T) {
	for _, n := range []int{math.MinInt, math.MaxInt} {
		got := GroupedInt(n)
		if strings.ReplaceAll(got, ",", "") != strconv.Itoa(n) {
			t.Fatalf("GroupedInt(%d)=%q", n, got)
		}
		if strings.HasPrefix(got, "-,") || strings.HasPrefix(got, ",") {
			t.Fatalf("GroupedInt(%d)=%q has a leading separator", n, got)
		}
	}
}

func TestStoreRecord(t *testing.T) {
	s := NewStore()
	s.Record(bus.Discord, Relayed, 3, 0)
	s.Record(bus.Discord, Relayed, 50, 10)
	s.Record(bus.Discord, Filtered, 0, 0)
	s.Record(bus.Telegram, Failed, 1, 0)

	d := s.Get(bus.Discord)
	if d.Events != 3 || d.Relayed != 2 || d.Filtered != 1 || d.Attachments != 53 || d.Dropped != 10 {
		t.Fatalf("unexpected discord aggregate: %+v", d)
	}
	tg := s.Get(bus.Telegram)
	if tg.Failed != 1 || tg.Events != 1 {
		t.Fatalf("unexpected telegram aggregate: %+v", tg)
	}

	sum := s.Summary()
	want := "discord->telegram relayed=2 filtered=1 ignored=0 failed=0 attachments=53 dropped=10\n" +
		"telegram->discord relayed=0 filtered=0 ignored=0 failed=1 attachments=1 dropped=0"
	if sum != want {
		t.Fatalf("Summary()=%q want %q", sum, want)
	}
}

func TestStoreNilSafe(t *testing.T) {
	var s *Store
	s.Record(bus.Discord, Relayed, 1, 0)
}

func TestSummaryEmpty(t *testing.T) {
	if got := NewStore().Summary(); got != "no events" {
		t.Fatalf("Summary()=%q", got)
	}
}
