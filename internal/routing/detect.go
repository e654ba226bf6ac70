package routing

import (
	"strings"

	"github.com/vietddude/healer/internal/core/domain"
)

// longPromptThreshold breaks ties toward long-form generation: verbose
// prompts with no clearer signal usually want long answers.
const longPromptThreshold = 2000

type keywordRule struct {
	keywords []string
	task     domain.TaskType
}

// Ordered: first match wins, so narrower phrasings sit above generic verbs.
var keywordTable = []keywordRule{
	{[]string{"step by step plan", "break down", "roadmap", "plan for"}, domain.TaskPlanning},
	{[]string{"write code", "implement", "refactor", "unit test", "fix this bug", "function that"}, domain.TaskCodeGeneration},
	{[]string{"detect the intent", "user intent", "what does the user want"}, domain.TaskIntentDetection},
	{[]string{"validate", "verify that", "is this correct", "check whether"}, domain.TaskValidation},
	{[]string{"summarize", "summary of", "tl;dr", "key points"}, domain.TaskSummarization},
	{[]string{"classify", "categorize", "which category", "label the"}, domain.TaskClassification},
	{[]string{"essay", "article", "blog post", "detailed report", "write a story"}, domain.TaskLongFormGeneration},
	{[]string{"analyze", "analysis", "compare", "evaluate", "examine"}, domain.TaskAnalysis},
	{[]string{"plan", "strategy"}, domain.TaskPlanning},
}

// DetectTaskType maps a prompt to a task category. An explicit hint always
// wins; otherwise the keyword table is evaluated top to bottom, with a
// length heuristic breaking no-match ties toward long-form generation.
func DetectTaskType(prompt string, hint domain.TaskType) domain.TaskType {
	if hint != "" {
		return hint
	}

	lower := strings.ToLower(prompt)
	for _, rule := range keywordTable {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.task
			}
		}
	}

	if len(prompt) > longPromptThreshold {
		return domain.TaskLongFormGeneration
	}
	return domain.TaskGeneral
}
