package datasetagent

import "testing"

func TestRankCandidatesFiltersBySizeCap(t *testing.T) {
	candidates := []Candidate{
		{Ref: "user/flowers-big", SizeGB: 10, Downloads: 500},
		{Ref: "user/flowers-small", SizeGB: 0.4, Downloads: 10},
	}
	ranked := RankCandidates(candidates, []string{"flowers"}, 1.0)
	if len(ranked) != 1 {
		t.Fatalf("expected 1 candidate within cap, got %d", len(ranked))
	}
	if ranked[0].Ref != "user/flowers-small" {
		t.Errorf("expected the candidate within the cap, got %s", ranked[0].Ref)
	}
}

func TestRankCandidatesPrefersKeywordCoverage(t *testing.T) {
	candidates := []Candidate{
		{Ref: "user/just-flowers", SizeGB: 1, Downloads: 5},
		{Ref: "user/flower-petal-classifier", SizeGB: 1, Downloads: 1},
	}
	ranked := RankCandidates(candidates, []string{"flower", "petal", "classifier"}, 5)
	if ranked[0].Ref != "user/flower-petal-classifier" {
		t.Errorf("expected higher keyword coverage to rank first, got %s", ranked[0].Ref)
	}
}

func TestRankCandidatesTieBreaksByPopularityThenSize(t *testing.T) {
	candidates := []Candidate{
		{Ref: "user/a-flowers", SizeGB: 2, Downloads: 10},
		{Ref: "user/b-flowers", SizeGB: 1, Downloads: 10},
	}
	ranked := RankCandidates(candidates, []string{"flowers"}, 5)
	if ranked[0].Ref != "user/b-flowers" {
		t.Errorf("expected smaller dataset to win the popularity tie, got %s", ranked[0].Ref)
	}
}

func TestRankCandidatesEmptyWhenNoneEligible(t *testing.T) {
	candidates := []Candidate{{Ref: "user/huge", SizeGB: 100, Downloads: 1000}}
	ranked := RankCandidates(candidates, []string{"huge"}, 1.0)
	if len(ranked) != 0 {
		t.Errorf("expected no eligible candidates, got %d", len(ranked))
	}
}
