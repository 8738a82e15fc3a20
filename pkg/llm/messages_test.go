package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTextMessage(t *testing.T) {
	msg := NewTextMessage(RoleUser, "hello")
	assert.Equal(t, RoleUser, msg.Role)
	assert.Equal(t, "hello", msg.Content)
	assert.False(t, msg.HasToolCalls())
}

func TestNewToolResultMessage(t *testing.T) {
	msg := NewToolResultMessage("call-1", "file contents")
	assert.Equal(t, RoleTool, msg.Role)
	assert.Equal(t, "call-1", msg.ToolCallID)
	assert.Equal(t, "file contents", msg.Content)
}

func TestGetToolCallByName(t *testing.T) {
	msg := Message{
		Role: RoleAssistant,
		ToolCalls: []ToolCall{
			{ID: "a", Name: "read_file", Input: map[string]any{"path": "x"}},
			{ID: "b", Name: "bash", Input: map[string]any{"cmd": "ls"}},
		},
	}

	call, ok := msg.GetToolCallByName("bash")
	assert.True(t, ok)
	assert.Equal(t, "b", call.ID)

	_, ok = msg.GetToolCallByName("missing")
	assert.False(t, ok)
}

func TestToolCallInputJSON(t *testing.T) {
	call := ToolCall{ID: "a", Name: "read_file", Input: map[string]any{"path": "go.mod"}}
	assert.JSONEq(t, `{"path": "go.mod"}`, call.InputJSON())

	empty := ToolCall{ID: "b", Name: "ls"}
	assert.Equal(t, "{}", empty.InputJSON())
}

func TestChatResponsePredicates(t *testing.T) {
	toolResp := ChatResponse{StopReason: StopReasonToolUse, ToolCalls: []ToolCall{{ID: "a", Name: "ls"}}}
	assert.True(t, toolResp.WantsToolExecution())
	assert.False(t, toolResp.IsComplete())

	doneResp := ChatResponse{StopReason: StopReasonEndTurn}
	assert.False(t, doneResp.WantsToolExecution())
	assert.True(t, doneResp.IsComplete())
}
