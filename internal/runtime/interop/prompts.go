package interop

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Prompt identifiers understood by the remote tool-calling backend.
const (
	PromptIDTitleFromDescription = "tools_aNDkkK"
	PromptIDInstructStream       = "tools_ZbTYeQ"
)

// PromptTxKind discriminates outbound prompt payloads.
type PromptTxKind string

const (
	PromptTxHandshake    PromptTxKind = "handshake"
	PromptTxStream       PromptTxKind = "stream"
	PromptTxToolResult   PromptTxKind = "tool_result"
	PromptTxHelpResponse PromptTxKind = "help_response"
)

// Handshake opens a prompt stream against a named prompt.
type Handshake struct {
	PromptID    string `json:"prompt_id"`
	PromptStart string `json:"prompt_start"`
}

// PromptTx is one outbound message of a multi-turn prompt session. StreamID
// travels in the payload so many sessions can share one dynamic beam.
type PromptTx struct {
	StreamID   uuid.UUID    `json:"stream_id"`
	Kind       PromptTxKind `json:"kind"`
	Handshake  *Handshake   `json:"handshake,omitempty"`
	Update     string       `json:"update,omitempty"`
	ToolResult *ToolResult  `json:"tool_result,omitempty"`
}

// NewStream opens a fresh instruction stream seeded with promptStart.
func NewStream(promptStart string) PromptTx {
	return PromptTx{
		StreamID: uuid.New(),
		Kind:     PromptTxHandshake,
		Handshake: &Handshake{
			PromptID:    PromptIDInstructStream,
			PromptStart: promptStart,
		},
	}
}

// TitleFromDescription opens a one-shot stream that derives a task title from
// free text.
func TitleFromDescription(description string) PromptTx {
	return PromptTx{
		StreamID: uuid.New(),
		Kind:     PromptTxHandshake,
		Handshake: &Handshake{
			PromptID:    PromptIDTitleFromDescription,
			PromptStart: description,
		},
	}
}

// StreamUpdate continues an existing stream with user text.
func StreamUpdate(streamID uuid.UUID, update string) PromptTx {
	return PromptTx{StreamID: streamID, Kind: PromptTxStream, Update: update}
}

// ToolResultMessage reports the outcome of a tool invocation back to the
// stream.
func ToolResultMessage(streamID uuid.UUID, result ToolResult) PromptTx {
	return PromptTx{StreamID: streamID, Kind: PromptTxToolResult, ToolResult: &result}
}

// ToolKind discriminates tool invocations requested by the backend.
type ToolKind string

const (
	ToolRunTask      ToolKind = "run_task"
	ToolCreateTask   ToolKind = "create_task"
	ToolUpdateTask   ToolKind = "update_task"
	ToolFetchTasks   ToolKind = "fetch_tasks"
	ToolBeginProject ToolKind = "begin_project"
)

// Tool is a tool invocation the backend asks the local process to perform.
// Only the fields for the named kind are populated.
type Tool struct {
	Kind        ToolKind   `json:"kind"`
	TaskID      *uuid.UUID `json:"task_id,omitempty"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	SubtaskOf   string     `json:"subtask_of,omitempty"`
	BlockedBy   []string   `json:"blocked_by,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Components  []string   `json:"components,omitempty"`
}

// TaskSummary is the compact task view exchanged with the backend.
type TaskSummary struct {
	TaskID      uuid.UUID `json:"task_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}

// ToolResultKind discriminates tool outcomes.
type ToolResultKind string

const (
	ToolResultRunTask      ToolResultKind = "run_task"
	ToolResultCreateTask   ToolResultKind = "create_task"
	ToolResultUpdateTask   ToolResultKind = "update_task"
	ToolResultFetchTasks   ToolResultKind = "fetch_tasks"
	ToolResultBeginProject ToolResultKind = "begin_project"
	ToolResultError        ToolResultKind = "error"
)

// ToolResult reports the outcome of one tool invocation.
type ToolResult struct {
	Kind      ToolResultKind `json:"kind"`
	Task      *TaskSummary   `json:"task,omitempty"`
	Tasks     []TaskSummary  `json:"tasks,omitempty"`
	ProjectID *uuid.UUID     `json:"project_id,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// PromptRxKind discriminates inbound prompt payloads.
type PromptRxKind string

const (
	PromptRxTool       PromptRxKind = "tool"
	PromptRxStream     PromptRxKind = "stream"
	PromptRxJobRequest PromptRxKind = "job_request"
	PromptRxClose      PromptRxKind = "close"
)

// StreamChunk is incremental text from the backend. ResponseExpected signals
// that the backend is waiting for user input before continuing.
type StreamChunk struct {
	Update           string `json:"update"`
	ResponseExpected bool   `json:"response_expected"`
}

// CloseResponse is the terminal payload of a stream: either free text or a
// structured document, never both.
type CloseResponse struct {
	Text string          `json:"text,omitempty"`
	JSON json.RawMessage `json:"json,omitempty"`
}

// PromptRx is one inbound message of a multi-turn prompt session.
type PromptRx struct {
	StreamID   uuid.UUID      `json:"stream_id"`
	Kind       PromptRxKind   `json:"kind"`
	Tool       *Tool          `json:"tool,omitempty"`
	Stream     *StreamChunk   `json:"stream,omitempty"`
	JobRequest *JobRequest    `json:"job_request,omitempty"`
	Close      *CloseResponse `json:"close,omitempty"`
}

// Terminal reports whether rx closes its stream. The registry removes the
// correlation entry before delivering a terminal message.
func (rx PromptRx) Terminal() bool {
	return rx.Kind == PromptRxClose
}
