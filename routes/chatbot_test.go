package routes

import "testing"

func TestParseMessagesLimit(t *testing.T) {
	cases := []struct {
		raw  string
		want int64
	}{
		{"", defaultMessagesLimit},
		{"1", 1},
		{"50", 50},
		{"100", maxMessagesLimit},
		{"500", maxMessagesLimit},
		{"0", defaultMessagesLimit},
		{"-3", defaultMessagesLimit},
		{"abc", defaultMessagesLimit},
	}

	for _, tc := range cases {
		if got := parseMessagesLimit(tc.raw); got != tc.want {
			t.Errorf("parseMessagesLimit(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}
