package store

import "strings"

// isTransientDBError recognizes connection-level failures that are safe
// to retry, as opposed to constraint violations or malformed statements.
func isTransientDBError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"too many connections",
		"i/o timeout",
		"eof",
		"server closed the connection",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
