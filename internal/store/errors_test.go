package store

import (
	"errors"
	"testing"
)

func TestIsTransientDBError(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"dial tcp: connection refused", true},
		{"read: connection reset by peer", true},
		{"unexpected EOF", true},
		{"pq: duplicate key value violates unique constraint", false},
		{"pq: syntax error at or near", false},
	}
	for _, c := range cases {
		got := isTransientDBError(errors.New(c.msg))
		if got != c.want {
			t.Errorf("isTransientDBError(%q) = %v, want %v", c.msg, got, c.want)
		}
	}
}
