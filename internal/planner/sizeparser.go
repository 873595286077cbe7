package planner

import (
	"regexp"
	"strconv"
	"strings"
)

// sizePhrase matches "under X MB", "max X GB", "not more than X MB", "up to
// X GB", and bare "X GB"/"X MB", case-insensitively. Grounded on the
// phrasing original_source/Planner-Agent instructs its LLM to recognize,
// but implemented as a deterministic parser (rather than delegated to the
// LLM) so repeated parses of the same utterance are guaranteed identical —
// spec property P5.
var sizePhrase = regexp.MustCompile(`(?i)(?:under|max(?:imum)?|not more than|up to|no more than)?\s*(\d+(?:\.\d+)?)\s*(gb|mb|gigabytes?|megabytes?)\b`)

// ParseMaxDatasetSizeGB extracts a dataset size cap from free text,
// converting MB to GB (divide by 1000, matching property P5's "500MB" →
// 0.5 exactly). Returns false if the utterance contains no recognizable
// size phrase, in which case the caller should apply the default of 50 GB.
func ParseMaxDatasetSizeGB(utterance string) (float64, bool) {
	match := sizePhrase.FindStringSubmatch(utterance)
	if match == nil {
		return 0, false
	}

	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil || value <= 0 {
		return 0, false
	}

	unit := strings.ToLower(match[2])
	if strings.HasPrefix(unit, "m") {
		value = value / 1000
	}

	return value, true
}
