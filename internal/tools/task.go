package tools

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/proxmoxmcp/proxmox-mcp/internal/render"
	"github.com/proxmoxmcp/proxmox-mcp/pkg/proxmox"
)

var taskPollInterval = 2 * time.Second

func taskOperations() []Operation {
	argUPID := func(verb string) ArgSpec {
		return ArgSpec{Name: "upid", Type: TypeString, Required: true,
			Description: "Task UPID (Unique Process ID) to " + verb}
	}

	return []Operation{
		{
			Name:        "get_tasks",
			Description: "List recent tasks across the cluster with their status",
			Args: []ArgSpec{
				{Name: "limit", Type: TypeNumber, Default: 50,
					Description: "Maximum number of tasks to return (default: 50)"},
				{Name: "vmid", Type: TypeString,
					Description: "Optional VM ID to filter tasks for a specific VM"},
				{Name: "node", Type: TypeString,
					Description: "Optional node name to filter tasks for a specific node"},
			},
			Handler: handleGetTasks,
		},
		{
			Name:        "get_task_status",
			Description: "Get detailed status for a specific task",
			Args:        []ArgSpec{argUPID("query")},
			Handler:     handleGetTaskStatus,
		},
		{
			Name:        "get_task_log",
			Description: "Get the full log output for a specific task",
			Args:        []ArgSpec{argUPID("query")},
			Handler:     handleGetTaskLog,
		},
		{
			Name:        "cancel_task",
			Description: "Cancel a running task",
			Args:        []ArgSpec{argUPID("cancel")},
			Handler:     handleCancelTask,
		},
		{
			Name:        "wait_for_task",
			Description: "Wait for a task to finish, polling its status until completion or timeout",
			Args: []ArgSpec{argUPID("wait for"),
				{Name: "timeout", Type: TypeNumber, Default: 300,
					Description: "Maximum seconds to wait (default: 300)"},
			},
			Handler: handleWaitForTask,
		},
	}
}

func handleGetTasks(ctx context.Context, c proxmox.API, args Args) Envelope {
	limit := args.Int("limit")
	if limit <= 0 {
		limit = 50
	}

	params := taskListParams(limit, args)
	tasks := []render.Record{}

	collect := func(node string) error {
		if int64(len(tasks)) >= limit {
			return nil
		}
		list, err := c.GetList(ctx, "/nodes/"+node+"/tasks", params)
		if err != nil {
			return err
		}
		for _, task := range list {
			tasks = append(tasks, render.Record{
				"upid":      task.String("upid", ""),
				"type":      task.String("type", ""),
				"status":    task.String("status", ""),
				"node":      node,
				"starttime": task.Int("starttime", 0),
				"endtime":   task.Int("endtime", 0),
				"id":        task.String("id", ""),
				"user":      task.String("user", ""),
				"vmid":      task.String("vmid", ""),
			})
			if int64(len(tasks)) >= limit {
				break
			}
		}
		return nil
	}

	if args.Has("node") {
		if err := collect(args.String("node")); err != nil {
			return Failure("get tasks", err)
		}
	} else if err := collectNodes(ctx, c, "get_tasks", collect); err != nil {
		return Failure("get tasks", err)
	}

	return Success(render.KindTasks, tasks)
}

func handleGetTaskStatus(ctx context.Context, c proxmox.API, args Args) Envelope {
	upid := args.String("upid")

	node, err := upidNode(upid)
	if err != nil {
		return Refused("%v", err)
	}

	status, err := c.Get(ctx, "/nodes/"+node+"/tasks/"+upid+"/status", nil)
	if err != nil {
		return Failure("get task status for "+upid, err)
	}

	return Success(render.KindTaskStatus, render.Record{
		"upid":       upid,
		"node":       node,
		"type":       status.String("type", ""),
		"status":     status.String("status", ""),
		"exitstatus": status.String("exitstatus", ""),
		"user":       status.String("user", ""),
		"starttime":  status.Int("starttime", 0),
		"pid":        status.Int("pid", 0),
		"progress":   status.Float("progress", 0),
		"log":        taskLogLines(ctx, c, node, upid),
	})
}

func handleGetTaskLog(ctx context.Context, c proxmox.API, args Args) Envelope {
	upid := args.String("upid")

	node, err := upidNode(upid)
	if err != nil {
		return Refused("%v", err)
	}

	entries, err := c.GetList(ctx, "/nodes/"+node+"/tasks/"+upid+"/log", nil)
	if err != nil {
		return Failure("get task log for "+upid, err)
	}

	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, entry.String("t", ""))
	}
	return Success(render.KindRaw, render.Record{
		"upid": upid,
		"node": node,
		"log":  lines,
	})
}

func handleCancelTask(ctx context.Context, c proxmox.API, args Args) Envelope {
	upid := args.String("upid")

	node, err := upidNode(upid)
	if err != nil {
		return Refused("%v", err)
	}

	if _, err := c.Delete(ctx, "/nodes/"+node+"/tasks/"+upid); err != nil {
		return Failure("cancel task "+upid, err)
	}
	return Completed("", "Task %s cancellation initiated", upid)
}

func handleWaitForTask(ctx context.Context, c proxmox.API, args Args) Envelope {
	upid := args.String("upid")
	timeout := args.Int("timeout")
	if timeout <= 0 {
		timeout = 300
	}

	node, err := upidNode(upid)
	if err != nil {
		return Refused("%v", err)
	}

	deadline := time.Now().Add(time.Duration(timeout) * time.Second)
	for {
		status, err := c.Get(ctx, "/nodes/"+node+"/tasks/"+upid+"/status", nil)
		if err != nil {
			return Failure("wait for task "+upid, err)
		}
		if status.String("status", "") == "stopped" {
			exit := status.String("exitstatus", "")
			if exit == "OK" {
				return Completed(upid, "Task %s completed successfully", upid)
			}
			return Refused("Task %s finished with status: %s", upid, exit)
		}
		if time.Now().After(deadline) {
			return Refused("Task %s did not complete within %d seconds", upid, timeout)
		}

		select {
		case <-ctx.Done():
			return Failure("wait for task "+upid, ctx.Err())
		case <-time.After(taskPollInterval):
		}
	}
}

// upidNode extracts the node name from a UPID, its second
// colon-separated field: UPID:<node>:<pid>:...
func upidNode(upid string) (string, error) {
	parts := strings.Split(upid, ":")
	if len(parts) < 3 || parts[0] != "UPID" || parts[1] == "" {
		return "", fmt.Errorf("invalid UPID: %s", upid)
	}
	return parts[1], nil
}

func taskListParams(limit int64, args Args) url.Values {
	params := url.Values{}
	params.Set("limit", strconv.FormatInt(limit, 10))
	if args.Has("vmid") {
		params.Set("vmid", args.String("vmid"))
	}
	return params
}

func taskLogLines(ctx context.Context, c proxmox.API, node, upid string) []string {
	entries, err := c.GetList(ctx, "/nodes/"+node+"/tasks/"+upid+"/log", nil)
	if err != nil {
		return []string{}
	}
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, entry.String("t", ""))
	}
	return lines
}
