package utils

import (
	"reflect"
	"testing"
	"time"
)

func TestParseIDList(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  []int64
	}{
		{"Empty", "", nil},
		{"Blank", "  ", nil},
		{"Simple", "1,2,3", []int64{1, 2, 3}},
		{"Spaces and junk", " 4, x, 0, -2, 5 ", []int64{4, 5}},
		{"Duplicates keep first", "7,3,7,3", []int64{7, 3}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseIDList(tc.input); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("ParseIDList(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestJoinIDList(t *testing.T) {
	if got := JoinIDList([]int64{3, 0, 3, 9}); got != "3,9" {
		t.Errorf("Expected '3,9', got %q", got)
	}
	if got := JoinIDList(nil); got != "" {
		t.Errorf("Expected empty string, got %q", got)
	}
	if got := RemoveID([]int64{1, 2, 1}, 1); !reflect.DeepEqual(got, []int64{2}) {
		t.Errorf("Expected [2], got %v", got)
	}
	if !ContainsID([]int64{1, 2}, 2) || ContainsID([]int64{1, 2}, 3) {
		t.Error("ContainsID returned the wrong answer")
	}
}

func TestHumanTimeDiff(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	testCases := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "1 min"},
		{5 * time.Minute, "5 mins"},
		{3 * time.Hour, "3 hours"},
		{2 * 24 * time.Hour, "2 days"},
		{15 * 24 * time.Hour, "2 weeks"},
		{400 * 24 * time.Hour, "1 year"},
	}
	for _, tc := range testCases {
		if got := HumanTimeDiff(base, base.Add(tc.d)); got != tc.want {
			t.Errorf("HumanTimeDiff(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
