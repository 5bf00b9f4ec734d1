package utils

import (
	"strings"
	"testing"
)

func TestConfirmReader(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"yes\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"maybe\n", false},
	}
	for _, c := range cases {
		if got := ConfirmReader("proceed?", strings.NewReader(c.in)); got != c.want {
			t.Fatalf("input %q: got %v want %v", c.in, got, c.want)
		}
	}
}
