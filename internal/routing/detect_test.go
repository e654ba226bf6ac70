package routing

import (
	"strings"
	"testing"

	"github.com/vietddude/healer/internal/core/domain"
)

func TestDetectTaskType(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		hint   domain.TaskType
		want   domain.TaskType
	}{
		{"planning keyword", "Give me a step by step plan for the migration", "", domain.TaskPlanning},
		{"code generation", "Please implement a parser for this grammar", "", domain.TaskCodeGeneration},
		{"analysis", "Analyze the performance numbers from the last run", "", domain.TaskAnalysis},
		{"intent detection", "Detect the intent behind this message", "", domain.TaskIntentDetection},
		{"validation", "Verify that the output matches the schema", "", domain.TaskValidation},
		{"summarization", "Summarize this document in three sentences", "", domain.TaskSummarization},
		{"classification", "Classify this ticket by severity", "", domain.TaskClassification},
		{"long form keyword", "Write an essay about distributed consensus", "", domain.TaskLongFormGeneration},
		{"no match", "hello there", "", domain.TaskGeneral},
		{"hint wins over keywords", "Summarize this", domain.TaskCodeGeneration, domain.TaskCodeGeneration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectTaskType(tt.prompt, tt.hint)
			if got != tt.want {
				t.Errorf("DetectTaskType(%q) = %v, want %v", tt.prompt, got, tt.want)
			}
		})
	}
}

func TestDetectTaskTypeLongPromptHeuristic(t *testing.T) {
	prompt := strings.Repeat("lorem ipsum dolor sit amet ", 100)
	if got := DetectTaskType(prompt, ""); got != domain.TaskLongFormGeneration {
		t.Errorf("long prompt = %v, want %v", got, domain.TaskLongFormGeneration)
	}
}
