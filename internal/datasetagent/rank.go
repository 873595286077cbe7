package datasetagent

import (
	"sort"
	"strings"
)

// RankCandidates implements spec.md §4.4 step 2's ranking: filter to
// candidates within the size cap, score by keyword coverage against the
// candidate's ref, tie-break by popularity, then by smaller size. Pure
// function, independently tested.
func RankCandidates(candidates []Candidate, keywords []string, maxSizeGB float64) []Candidate {
	eligible := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.SizeGB > 0 && c.SizeGB <= maxSizeGB {
			eligible = append(eligible, c)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		si := keywordCoverage(eligible[i].Ref, keywords)
		sj := keywordCoverage(eligible[j].Ref, keywords)
		if si != sj {
			return si > sj
		}
		if eligible[i].Downloads != eligible[j].Downloads {
			return eligible[i].Downloads > eligible[j].Downloads
		}
		return eligible[i].SizeGB < eligible[j].SizeGB
	})

	return eligible
}

func keywordCoverage(ref string, keywords []string) int {
	refLower := strings.ToLower(ref)
	count := 0
	for _, kw := range keywords {
		if strings.Contains(refLower, strings.ToLower(kw)) {
			count++
		}
	}
	return count
}
