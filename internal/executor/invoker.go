package executor

import (
	"context"
	"fmt"

	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/infra/browser"
)

// Tool names understood by AgentInvoker.
const (
	ToolNavigate   = "navigate"
	ToolClick      = "click"
	ToolType       = "type"
	ToolGetText    = "get_text"
	ToolScreenshot = "screenshot"
)

// AgentInvoker dispatches tool calls to a browser agent.
type AgentInvoker struct {
	agent browser.Agent
}

// NewAgentInvoker wraps a browser agent as an Invoker.
func NewAgentInvoker(agent browser.Agent) *AgentInvoker {
	return &AgentInvoker{agent: agent}
}

// Invoke executes one tool by name.
func (inv *AgentInvoker) Invoke(
	ctx context.Context,
	tool string,
	args map[string]domain.Value,
) (any, error) {
	switch tool {
	case ToolNavigate:
		return nil, inv.agent.Navigate(ctx, stringArg(args, "url"))
	case ToolClick:
		return nil, inv.agent.Click(ctx, stringArg(args, "selector"))
	case ToolType:
		return nil, inv.agent.Type(ctx, stringArg(args, "selector"), stringArg(args, "text"))
	case ToolGetText:
		return inv.agent.GetText(ctx, stringArg(args, "selector"))
	case ToolScreenshot:
		return inv.agent.Screenshot(ctx)
	default:
		return nil, fmt.Errorf("unknown tool %q", tool)
	}
}

func stringArg(args map[string]domain.Value, key string) string {
	if args == nil {
		return ""
	}
	return args[key].Str
}
