package executor

import (
	"sync"

	"github.com/vietddude/healer/internal/core/domain"
)

// historyBuffer keeps a bounded FIFO of completed results per correlation
// id. All access goes through one mutex; reads return copies.
type historyBuffer struct {
	mu      sync.Mutex
	maxSize int
	entries map[string][]domain.ToolExecutionResult
}

func newHistoryBuffer(maxSize int) *historyBuffer {
	if maxSize < 1 {
		maxSize = 1
	}
	return &historyBuffer{
		maxSize: maxSize,
		entries: make(map[string][]domain.ToolExecutionResult),
	}
}

func (h *historyBuffer) add(correlationID string, result domain.ToolExecutionResult) {
	if correlationID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	list := append(h.entries[correlationID], result)
	if len(list) > h.maxSize {
		list = list[len(list)-h.maxSize:]
	}
	h.entries[correlationID] = list
}

// replaceLast swaps the most recent entry, used to attach annotations that
// are only known after the result was recorded.
func (h *historyBuffer) replaceLast(correlationID string, result domain.ToolExecutionResult) {
	if correlationID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	list := h.entries[correlationID]
	if len(list) == 0 {
		return
	}
	list[len(list)-1] = result
}

func (h *historyBuffer) get(correlationID string) []domain.ToolExecutionResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := h.entries[correlationID]
	out := make([]domain.ToolExecutionResult, len(list))
	copy(out, list)
	return out
}
