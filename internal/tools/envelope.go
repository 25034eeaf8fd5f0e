package tools

import (
	"fmt"
	"strings"

	"github.com/proxmoxmcp/proxmox-mcp/internal/render"
)

// Envelope is the uniform result wrapper returned by every operation.
// Exactly one of the success/failure branches is populated and the
// construction is pure: identical inputs produce identical envelopes.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	TaskID  string      `json:"task_id,omitempty"`
	Error   string      `json:"error,omitempty"`

	Kind render.Kind `json:"-"`
}

// Success wraps query data and tags it with the render kind.
func Success(kind render.Kind, data interface{}) Envelope {
	return Envelope{Success: true, Kind: kind, Data: data}
}

// Completed reports a mutation that was accepted by the remote API,
// optionally carrying the task UPID it spawned.
func Completed(taskID, format string, args ...interface{}) Envelope {
	return Envelope{
		Success: true,
		Kind:    render.KindOperation,
		Message: fmt.Sprintf(format, args...),
		TaskID:  taskID,
	}
}

// Refused reports a precondition failure: the request was understood
// but a domain invariant blocks it. No remote mutation happened.
func Refused(format string, args ...interface{}) Envelope {
	return Envelope{
		Kind:    render.KindOperation,
		Message: fmt.Sprintf(format, args...),
	}
}

// Failure wraps a remote call error. The context names the action
// being attempted, e.g. "start VM 101".
func Failure(context string, err error) Envelope {
	return Envelope{
		Kind:    render.KindOperation,
		Message: fmt.Sprintf("Failed to %s: %v", context, err),
		Error:   err.Error(),
	}
}

// UnknownOperation reports an operation name missing from the registry.
func UnknownOperation(name string) Envelope {
	return Envelope{
		Kind:    render.KindOperation,
		Message: "Unknown tool: " + name,
		Error:   "Unknown tool: " + name,
	}
}

// MissingArguments reports required arguments that were absent or
// empty. Produced before any remote call is attempted.
func MissingArguments(names []string) Envelope {
	return Envelope{
		Kind:    render.KindOperation,
		Message: "Missing required arguments: " + strings.Join(names, ", "),
	}
}

// Text renders the envelope with the template its kind selects.
func (e Envelope) Text() string {
	switch {
	case e.Kind == render.KindCommand:
		result := e.Data.(render.Record)
		exitCode, _ := result["exit_code"].(int64)
		output, _ := result["output"].(string)
		return render.Command(e.Success, exitCode, output)
	case !e.Success || e.Kind == render.KindOperation:
		return render.Operation(e.Success, e.Message, e.TaskID, e.Error)
	default:
		return render.Render(e.Kind, e.Data)
	}
}
