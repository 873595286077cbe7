package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"automl-orchestrator/internal/errkind"
)

const basePromptTemplate = `You are a Planner Agent for an AutoML system. Convert the following user request into a structured JSON object.

User Request: %q

You must respond with ONLY a valid JSON object (no markdown, no explanation) conforming to this exact schema:
{
  "name": "string - a descriptive project name based on the user's request",
  "task_type": "image_classification",
  "framework": "pytorch",
  "dataset_source": "kaggle",
  "search_keywords": ["array of 1-8 relevant keywords for finding datasets"],
  "preferred_model": "one of resnet18, resnet34, resnet50, mobilenet_v2, efficientnet_b0",
  "target_metric": "accuracy",
  "target_value": 0.9,
  "max_dataset_size_gb": 50
}

Rules:
- Extract the main topic/domain from the user's message for the project name.
- Generate 2-4 relevant search keywords that would help find appropriate datasets.
- Choose an appropriate model architecture for the task's apparent difficulty.
- If the user mentions a dataset size limit, extract it and convert MB to GB; otherwise omit the field.
- Respond with ONLY the JSON object, nothing else.`

const schemaReminderPrefix = "Your previous response did not parse as valid JSON matching the schema. Return ONLY the JSON object, with no markdown fences and no commentary.\n\n"

func buildPrompt(utterance string, retry bool) string {
	prompt := fmt.Sprintf(basePromptTemplate, utterance)
	if retry {
		return schemaReminderPrefix + prompt
	}
	return prompt
}

// parseLLMPlan strips markdown code fences (a recurring LLM habit noted in
// original_source/Planner-Agent's parse_gemini_response) and decodes the
// remaining JSON into a Plan, discarding any field not in the schema.
func parseLLMPlan(raw string) (*Plan, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var plan Plan
	if err := json.Unmarshal([]byte(cleaned), &plan); err != nil {
		return nil, errkind.Wrap(errkind.PlanInvalid, "llm output is not valid JSON", err)
	}
	return &plan, nil
}
