package tools

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/proxmoxmcp/proxmox-mcp/internal/render"
	"github.com/proxmoxmcp/proxmox-mcp/pkg/proxmox"
)

func containerOperations() []Operation {
	return []Operation{
		{
			Name:        "get_containers",
			Description: "List all LXC containers across the cluster with their status and configuration",
			Handler:     handleGetContainers,
		},
		{
			Name:        "get_container_status",
			Description: "Get detailed status information for a specific container",
			Args:        []ArgSpec{argNode(), argContainerID()},
			Handler:     handleGetContainerStatus,
		},
		{
			Name:        "create_container",
			Description: "Create a new container from a template",
			Args: []ArgSpec{argNode(), argContainerID(),
				{Name: "template", Type: TypeString, Required: true,
					Description: "Template to use (e.g. 'local:vztmpl/ubuntu-20.04-standard_20.04-1_amd64.tar.gz')"},
				{Name: "storage", Type: TypeString, Required: true,
					Description: "Storage to use for container"},
				{Name: "hostname", Type: TypeString,
					Description: "Optional hostname for the container"},
				{Name: "memory", Type: TypeNumber, Default: 512,
					Description: "Memory in MB (default: 512)"},
				{Name: "cores", Type: TypeNumber, Default: 1,
					Description: "Number of CPU cores (default: 1)"},
				{Name: "password", Type: TypeString,
					Description: "Optional root password"},
				{Name: "net0", Type: TypeString,
					Description: "Optional network configuration"},
			},
			Handler: handleCreateContainer,
		},
		{
			Name:        "start_container",
			Description: "Start a container",
			Args:        []ArgSpec{argNode(), argContainerID()},
			Handler:     containerPowerHandler("start"),
		},
		{
			Name:        "stop_container",
			Description: "Stop a container",
			Args:        []ArgSpec{argNode(), argContainerID()},
			Handler:     containerPowerHandler("stop"),
		},
		{
			Name:        "restart_container",
			Description: "Restart a container",
			Args:        []ArgSpec{argNode(), argContainerID()},
			Handler:     containerPowerHandler("restart"),
		},
		{
			Name:        "delete_container",
			Description: "Delete a container",
			Args:        []ArgSpec{argNode(), argContainerID()},
			Handler:     handleDeleteContainer,
		},
		{
			Name:        "clone_container",
			Description: "Clone a container",
			Args: []ArgSpec{argNode(), argContainerID(),
				{Name: "target_vmid", Type: TypeString, Required: true,
					Description: "Target container ID number for the clone"},
				{Name: "target_node", Type: TypeString,
					Description: "Optional target node (defaults to source node)"},
				{Name: "name", Type: TypeString,
					Description: "Optional name for the cloned container"},
			},
			Handler: handleCloneContainer,
		},
		{
			Name:        "get_container_config",
			Description: "Get detailed configuration for a container",
			Args:        []ArgSpec{argNode(), argContainerID()},
			Handler:     handleGetContainerConfig,
		},
		{
			Name:        "update_container_config",
			Description: "Update container configuration parameters",
			Args:        []ArgSpec{argNode(), argContainerID()},
			FreeForm:    true,
			Handler:     handleUpdateContainerConfig,
		},
		{
			Name:        "execute_container_command",
			Description: "Execute a command in a container",
			Args: []ArgSpec{argNode(), argContainerID(),
				{Name: "command", Type: TypeString, Required: true,
					Description: "Shell command to run (e.g. 'uname -a')"},
			},
			Handler: handleExecuteContainerCommand,
		},
		{
			Name:        "get_container_performance",
			Description: "Get performance metrics for a container",
			Args:        []ArgSpec{argNode(), argContainerID()},
			Handler:     handleGetContainerPerformance,
		},
		{
			Name:        "get_container_templates",
			Description: "Get available container templates",
			Args: []ArgSpec{argNode(),
				{Name: "storage", Type: TypeString,
					Description: "Optional storage ID to filter templates"},
			},
			Handler: handleGetContainerTemplates,
		},
	}
}

func handleGetContainers(ctx context.Context, c proxmox.API, _ Args) Envelope {
	containers := []render.Record{}
	err := collectNodes(ctx, c, "get_containers", func(node string) error {
		list, err := c.GetList(ctx, "/nodes/"+node+"/lxc", nil)
		if err != nil {
			return err
		}
		for _, ct := range list {
			containers = append(containers, render.Record{
				"vmid":   ct.String("vmid", "N/A"),
				"name":   ct.String("name", "N/A"),
				"status": ct.String("status", "unknown"),
				"node":   node,
				"cpus":   ct.Int("cpus", 0),
				"memory": memoryRecord(ct.Int("mem", 0), ct.Int("maxmem", 0)),
			})
		}
		return nil
	})
	if err != nil {
		return Failure("get containers", err)
	}
	return Success(render.KindContainerList, containers)
}

func handleGetContainerStatus(ctx context.Context, c proxmox.API, args Args) Envelope {
	node, vmid := args.String("node"), args.String("vmid")

	status, err := c.Get(ctx, containerPath(node, vmid)+"/status/current", nil)
	if err != nil {
		return Failure("get container "+vmid+" status", err)
	}
	config, err := c.Get(ctx, containerPath(node, vmid)+"/config", nil)
	if err != nil {
		return Failure("get container "+vmid+" status", err)
	}

	rec := render.Record{
		"vmid":   vmid,
		"node":   node,
		"status": status.String("status", "unknown"),
		"name":   config.String("hostname", ""),
		"cpu": render.Record{
			"cores": config.Int("cores", 1),
			"usage": status.Float("cpu", 0),
		},
		"memory": memoryRecord(status.Int("mem", 0), config.Int("memory", 512)*1024*1024),
		"uptime": status.Int("uptime", 0),
		"network": render.Record{
			"in_bytes":  status.Int("netin", 0),
			"out_bytes": status.Int("netout", 0),
		},
		"disk": render.Record{
			"read_bytes":  status.Int("diskread", 0),
			"write_bytes": status.Int("diskwrite", 0),
		},
	}
	return Success(render.KindContainerStatus, rec)
}

func handleCreateContainer(ctx context.Context, c proxmox.API, args Args) Envelope {
	node, vmid := args.String("node"), args.String("vmid")

	data := url.Values{}
	data.Set("vmid", vmid)
	data.Set("ostemplate", args.String("template"))
	data.Set("storage", args.String("storage"))
	data.Set("memory", args.String("memory"))
	data.Set("cores", args.String("cores"))
	if args.Has("hostname") {
		data.Set("hostname", args.String("hostname"))
	}
	if args.Has("password") {
		data.Set("password", args.String("password"))
	}
	if args.Has("net0") {
		data.Set("net0", args.String("net0"))
	}

	result, err := c.Post(ctx, "/nodes/"+node+"/lxc", data)
	if err != nil {
		return Failure("create container "+vmid, err)
	}
	return Completed(result.Text(), "Container %s creation initiated", vmid)
}

func containerPowerHandler(action string) HandlerFunc {
	return func(ctx context.Context, c proxmox.API, args Args) Envelope {
		node, vmid := args.String("node"), args.String("vmid")

		result, err := c.Post(ctx, containerPath(node, vmid)+"/status/"+action, nil)
		if err != nil {
			return Failure(action+" container "+vmid, err)
		}
		return Completed(result.Text(), "Container %s %s initiated", vmid, action)
	}
}

func handleDeleteContainer(ctx context.Context, c proxmox.API, args Args) Envelope {
	node, vmid := args.String("node"), args.String("vmid")

	result, err := c.Delete(ctx, containerPath(node, vmid))
	if err != nil {
		return Failure("delete container "+vmid, err)
	}
	return Completed(result.Text(), "Container %s deletion initiated", vmid)
}

func handleCloneContainer(ctx context.Context, c proxmox.API, args Args) Envelope {
	node, vmid := args.String("node"), args.String("vmid")
	target := args.String("target_vmid")

	data := url.Values{}
	data.Set("newid", target)
	if args.Has("target_node") {
		data.Set("target", args.String("target_node"))
	}
	if args.Has("name") {
		data.Set("hostname", args.String("name"))
	}

	result, err := c.Post(ctx, containerPath(node, vmid)+"/clone", data)
	if err != nil {
		return Failure(fmt.Sprintf("clone container %s to %s", vmid, target), err)
	}
	return Completed(result.Text(), "Container %s clone to %s initiated", vmid, target)
}

func handleGetContainerConfig(ctx context.Context, c proxmox.API, args Args) Envelope {
	node, vmid := args.String("node"), args.String("vmid")

	config, err := c.Get(ctx, containerPath(node, vmid)+"/config", nil)
	if err != nil {
		return Failure("get container "+vmid+" config", err)
	}
	return Success(render.KindContainerConfig, config.AsMap())
}

func handleUpdateContainerConfig(ctx context.Context, c proxmox.API, args Args) Envelope {
	node, vmid := args.String("node"), args.String("vmid")

	params := args.Except("node", "vmid")
	if len(params) == 0 {
		return Refused("No update parameters provided")
	}

	if _, err := c.Put(ctx, containerPath(node, vmid)+"/config", toValues(params)); err != nil {
		return Failure("update container "+vmid+" config", err)
	}
	return Completed("", "Container %s configuration updated", vmid)
}

func handleExecuteContainerCommand(ctx context.Context, c proxmox.API, args Args) Envelope {
	node, vmid := args.String("node"), args.String("vmid")
	command := args.String("command")

	data := url.Values{}
	data.Set("command", command)
	started, err := c.Post(ctx, containerPath(node, vmid)+"/exec", data)
	if err != nil {
		return Failure("execute command in container "+vmid, err)
	}

	// Container exec runs as a task; output ends up in the task log.
	upid := started.Text()
	status, err := c.Get(ctx, "/nodes/"+node+"/tasks/"+upid+"/status", nil)
	if err != nil {
		return Failure("execute command in container "+vmid, err)
	}

	var exitCode int64
	var output string
	if status.String("exitstatus", "") == "OK" {
		output = taskLogText(ctx, c, node, upid)
	} else {
		exitCode = 1
		output = "Command execution failed: " + status.String("exitstatus", "Unknown error")
	}

	return Envelope{
		Success: exitCode == 0,
		Kind:    render.KindCommand,
		Data: render.Record{
			"success":   exitCode == 0,
			"output":    output,
			"exit_code": exitCode,
		},
	}
}

func handleGetContainerPerformance(ctx context.Context, c proxmox.API, args Args) Envelope {
	node, vmid := args.String("node"), args.String("vmid")

	status, err := c.Get(ctx, containerPath(node, vmid)+"/status/current", nil)
	if err != nil {
		return Failure("get container "+vmid+" performance", err)
	}

	historical, err := c.GetList(ctx, containerPath(node, vmid)+"/rrddata", nil)
	if err != nil {
		log.Debug().Err(err).Str("vmid", vmid).Msg("RRD data unavailable")
		historical = nil
	}

	return Success(render.KindPerformance, performanceRecord(status, historical))
}

func handleGetContainerTemplates(ctx context.Context, c proxmox.API, args Args) Envelope {
	node := args.String("node")

	var params url.Values
	if args.Has("storage") {
		params = url.Values{}
		params.Set("storage", args.String("storage"))
	}

	list, err := c.GetList(ctx, "/nodes/"+node+"/storage", params)
	if err != nil {
		return Failure("get container templates", err)
	}

	templates := []render.Record{}
	for _, entry := range list {
		if !strings.HasPrefix(entry.String("content", ""), "vztmpl") {
			continue
		}
		templates = append(templates, render.Record{
			"volid":  entry.String("volid", ""),
			"size":   entry.Int("size", 0),
			"format": entry.String("format", "N/A"),
		})
	}
	return Success(render.KindContainerTemplates, templates)
}

// taskLogText joins a task's log lines; unreadable logs collapse to an
// empty string rather than failing the command result.
func taskLogText(ctx context.Context, c proxmox.API, node, upid string) string {
	return strings.Join(taskLogLines(ctx, c, node, upid), "\n")
}

func containerPath(node, vmid string) string {
	return "/nodes/" + node + "/lxc/" + vmid
}
