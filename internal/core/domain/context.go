package domain

// ExecutionContext describes the automation step a failure occurred in.
// Selector is mutable: a successful selector-healing action rewrites it in
// place so subsequent retries target the new locator.
type ExecutionContext struct {
	Action       string `json:"action"`
	Selector     string `json:"selector,omitempty"`
	PageURL      string `json:"page_url"`
	ExpectedText string `json:"expected_text,omitempty"`
	TaskID       string `json:"task_id,omitempty"`
}
