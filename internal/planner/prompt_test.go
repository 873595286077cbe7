package planner

import "testing"

func TestParseLLMPlanStripsMarkdownFences(t *testing.T) {
	raw := "```json\n{\"name\":\"Test\",\"search_keywords\":[\"a\"]}\n```"
	plan, err := parseLLMPlan(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Name != "Test" {
		t.Errorf("expected name Test, got %s", plan.Name)
	}
}

func TestParseLLMPlanRejectsGarbage(t *testing.T) {
	_, err := parseLLMPlan("this is not json")
	if err == nil {
		t.Fatal("expected error parsing non-JSON")
	}
}

func TestBuildPromptIncludesReminderOnRetry(t *testing.T) {
	first := buildPrompt("hello", false)
	retry := buildPrompt("hello", true)
	if len(retry) <= len(first) {
		t.Error("expected retry prompt to be longer than initial prompt")
	}
}
