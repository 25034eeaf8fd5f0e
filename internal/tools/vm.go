package tools

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/proxmoxmcp/proxmox-mcp/internal/payload"
	"github.com/proxmoxmcp/proxmox-mcp/internal/render"
	"github.com/proxmoxmcp/proxmox-mcp/pkg/proxmox"
)

// QEMU guest agent commands return a pid immediately; completion is
// polled. Variables so tests can shorten the loop.
var (
	agentPollInterval = time.Second
	agentPollTimeout  = 60 * time.Second
)

func vmOperations() []Operation {
	argCommand := ArgSpec{Name: "command", Type: TypeString, Required: true,
		Description: "Shell command to run (e.g. 'uname -a', 'systemctl status nginx')"}

	return []Operation{
		{
			Name:        "get_vms",
			Description: "List all virtual machines across the cluster with their status and resource usage",
			Handler:     handleGetVMs,
		},
		{
			Name:        "get_vm_config",
			Description: "Get detailed configuration for a virtual machine",
			Args:        []ArgSpec{argNode(), argVMID()},
			Handler:     handleGetVMConfig,
		},
		{
			Name:        "update_vm_config",
			Description: "Update virtual machine configuration parameters",
			Args:        []ArgSpec{argNode(), argVMID()},
			FreeForm:    true,
			Handler:     handleUpdateVMConfig,
		},
		{
			Name:        "start_vm",
			Description: "Start a virtual machine",
			Args:        []ArgSpec{argNode(), argVMID()},
			Handler:     vmPowerHandler("start"),
		},
		{
			Name:        "stop_vm",
			Description: "Stop a virtual machine",
			Args:        []ArgSpec{argNode(), argVMID()},
			Handler:     vmPowerHandler("stop"),
		},
		{
			Name:        "reboot_vm",
			Description: "Reboot a virtual machine",
			Args:        []ArgSpec{argNode(), argVMID()},
			Handler:     vmPowerHandler("reboot"),
		},
		{
			Name:        "execute_vm_command",
			Description: "Execute a command in a virtual machine via the QEMU guest agent",
			Args:        []ArgSpec{argNode(), argVMID(), argCommand},
			Handler:     handleExecuteVMCommand,
		},
		{
			Name:        "create_vm_snapshot",
			Description: "Create a snapshot of a virtual machine",
			Args: []ArgSpec{argNode(), argVMID(),
				{Name: "name", Type: TypeString, Required: true,
					Description: "Snapshot name (e.g. 'pre-update', 'backup-20230601')"},
				{Name: "description", Type: TypeString,
					Description: "Optional snapshot description"},
			},
			Handler: handleCreateVMSnapshot,
		},
		{
			Name:        "list_vm_snapshots",
			Description: "List all snapshots for a virtual machine",
			Args:        []ArgSpec{argNode(), argVMID()},
			Handler:     handleListVMSnapshots,
		},
		{
			Name:        "restore_vm_snapshot",
			Description: "Restore a virtual machine from a snapshot",
			Args: []ArgSpec{argNode(), argVMID(),
				{Name: "snapshot_name", Type: TypeString, Required: true,
					Description: "Name of the snapshot to restore"},
			},
			Handler: handleRestoreVMSnapshot,
		},
		{
			Name:        "clone_vm",
			Description: "Clone a virtual machine",
			Args: []ArgSpec{argNode(), argVMID(),
				{Name: "target_vmid", Type: TypeString, Required: true,
					Description: "Target VM ID number for the clone"},
				{Name: "target_node", Type: TypeString,
					Description: "Optional target node (defaults to source node)"},
				{Name: "name", Type: TypeString,
					Description: "Optional name for the cloned VM"},
			},
			Handler: handleCloneVM,
		},
		{
			Name:        "get_vm_performance",
			Description: "Get performance metrics for a virtual machine",
			Args:        []ArgSpec{argNode(), argVMID()},
			Handler:     handleGetVMPerformance,
		},
	}
}

func handleGetVMs(ctx context.Context, c proxmox.API, _ Args) Envelope {
	var vms []render.Record
	err := collectNodes(ctx, c, "get_vms", func(node string) error {
		list, err := c.GetList(ctx, "/nodes/"+node+"/qemu", nil)
		if err != nil {
			return err
		}
		for _, vm := range list {
			vms = append(vms, render.Record{
				"vmid":   vm.String("vmid", "N/A"),
				"name":   vm.String("name", "N/A"),
				"status": vm.String("status", "unknown"),
				"node":   node,
				"cpus":   vm.Int("cpus", 0),
				"memory": memoryRecord(vm.Int("mem", 0), vm.Int("maxmem", 0)),
			})
		}
		return nil
	})
	if err != nil {
		return Failure("get VMs", err)
	}
	return Success(render.KindVMList, vms)
}

func handleGetVMConfig(ctx context.Context, c proxmox.API, args Args) Envelope {
	node, vmid := args.String("node"), args.String("vmid")

	config, err := c.Get(ctx, vmPath(node, vmid)+"/config", nil)
	if err != nil {
		return Failure("get configuration for VM "+vmid, err)
	}
	return Success(render.KindVMConfig, config.AsMap())
}

func handleUpdateVMConfig(ctx context.Context, c proxmox.API, args Args) Envelope {
	node, vmid := args.String("node"), args.String("vmid")

	params := args.Except("node", "vmid")
	if len(params) == 0 {
		return Refused("No update parameters provided")
	}

	if _, err := c.Put(ctx, vmPath(node, vmid)+"/config", toValues(params)); err != nil {
		return Failure("update VM "+vmid+" configuration", err)
	}
	return Completed("", "VM %s configuration updated", vmid)
}

func vmPowerHandler(action string) HandlerFunc {
	return func(ctx context.Context, c proxmox.API, args Args) Envelope {
		node, vmid := args.String("node"), args.String("vmid")

		result, err := c.Post(ctx, vmPath(node, vmid)+"/status/"+action, nil)
		if err != nil {
			return Failure(action+" VM "+vmid, err)
		}
		return Completed(result.Text(), "VM %s %s initiated", vmid, action)
	}
}

func handleExecuteVMCommand(ctx context.Context, c proxmox.API, args Args) Envelope {
	node, vmid := args.String("node"), args.String("vmid")
	command := args.String("command")

	data := url.Values{}
	data.Set("command", command)
	started, err := c.Post(ctx, vmPath(node, vmid)+"/agent/exec", data)
	if err != nil {
		return Failure("execute command in VM "+vmid, err)
	}

	pid := started.Int("pid", 0)
	result, err := awaitAgentCommand(ctx, c, node, vmid, pid)
	if err != nil {
		return Failure("execute command in VM "+vmid, err)
	}
	return result
}

// awaitAgentCommand polls the guest agent until the started process
// exits, then assembles the command envelope from its output streams.
func awaitAgentCommand(ctx context.Context, c proxmox.API, node, vmid string, pid int64) (Envelope, error) {
	params := url.Values{}
	params.Set("pid", fmt.Sprintf("%d", pid))

	deadline := time.Now().Add(agentPollTimeout)
	for {
		status, err := c.Get(ctx, vmPath(node, vmid)+"/agent/exec-status", params)
		if err != nil {
			return Envelope{}, err
		}
		if status.Bool("exited", false) {
			exitCode := status.Int("exitcode", 0)
			output := status.String("out-data", "")
			if errData := status.String("err-data", ""); errData != "" {
				output += errData
			}
			return Envelope{
				Success: exitCode == 0,
				Kind:    render.KindCommand,
				Data: render.Record{
					"success":   exitCode == 0,
					"output":    output,
					"exit_code": exitCode,
				},
			}, nil
		}
		if time.Now().After(deadline) {
			return Envelope{}, fmt.Errorf("command did not complete within %s", agentPollTimeout)
		}

		select {
		case <-ctx.Done():
			return Envelope{}, ctx.Err()
		case <-time.After(agentPollInterval):
		}
	}
}

func handleCreateVMSnapshot(ctx context.Context, c proxmox.API, args Args) Envelope {
	node, vmid := args.String("node"), args.String("vmid")
	name := args.String("name")

	data := url.Values{}
	data.Set("snapname", name)
	if args.Has("description") {
		data.Set("description", args.String("description"))
	}

	result, err := c.Post(ctx, vmPath(node, vmid)+"/snapshot", data)
	if err != nil {
		return Failure("create snapshot for VM "+vmid, err)
	}
	return Completed(result.Text(), "Snapshot '%s' creation initiated for VM %s", name, vmid)
}

func handleListVMSnapshots(ctx context.Context, c proxmox.API, args Args) Envelope {
	node, vmid := args.String("node"), args.String("vmid")

	list, err := c.GetList(ctx, vmPath(node, vmid)+"/snapshot", nil)
	if err != nil {
		return Failure("list snapshots for VM "+vmid, err)
	}

	snapshots := make([]render.Record, 0, len(list))
	for _, snap := range list {
		snapshots = append(snapshots, render.Record{
			"name":          snap.String("name", ""),
			"description":   snap.String("description", ""),
			"creation_time": snap.Int("snaptime", 0),
			"parent":        snap.String("parent", ""),
		})
	}
	return Success(render.KindSnapshots, snapshots)
}

func handleRestoreVMSnapshot(ctx context.Context, c proxmox.API, args Args) Envelope {
	node, vmid := args.String("node"), args.String("vmid")
	name := args.String("snapshot_name")

	result, err := c.Post(ctx, vmPath(node, vmid)+"/snapshot/"+name+"/rollback", nil)
	if err != nil {
		return Failure(fmt.Sprintf("restore VM %s to snapshot '%s'", vmid, name), err)
	}
	return Completed(result.Text(), "VM %s restore to snapshot '%s' initiated", vmid, name)
}

func handleCloneVM(ctx context.Context, c proxmox.API, args Args) Envelope {
	node, vmid := args.String("node"), args.String("vmid")
	target := args.String("target_vmid")

	data := url.Values{}
	data.Set("newid", target)
	if args.Has("target_node") {
		data.Set("target", args.String("target_node"))
	}
	if args.Has("name") {
		data.Set("name", args.String("name"))
	}

	result, err := c.Post(ctx, vmPath(node, vmid)+"/clone", data)
	if err != nil {
		return Failure(fmt.Sprintf("clone VM %s to %s", vmid, target), err)
	}
	return Completed(result.Text(), "VM %s clone to %s initiated", vmid, target)
}

func handleGetVMPerformance(ctx context.Context, c proxmox.API, args Args) Envelope {
	node, vmid := args.String("node"), args.String("vmid")

	status, err := c.Get(ctx, vmPath(node, vmid)+"/status/current", nil)
	if err != nil {
		return Failure("get performance metrics for VM "+vmid, err)
	}

	params := url.Values{}
	params.Set("timeframe", "hour")
	historical, err := c.GetList(ctx, vmPath(node, vmid)+"/rrddata", params)
	if err != nil {
		log.Debug().Err(err).Str("vmid", vmid).Msg("RRD data unavailable")
		historical = nil
	}

	return Success(render.KindPerformance, performanceRecord(status, historical))
}

// performanceRecord projects a status/current payload plus optional
// RRD history into the shape the performance template reads.
func performanceRecord(status payload.Payload, historical []payload.Payload) render.Record {
	history := make([]interface{}, 0, len(historical))
	for _, point := range historical {
		history = append(history, point.Value())
	}
	return render.Record{
		"cpu_usage": status.Float("cpu", 0),
		"memory":    memoryRecord(status.Int("mem", 0), status.Int("maxmem", 0)),
		"disk_io": render.Record{
			"read_bytes":  status.Int("diskread", 0),
			"write_bytes": status.Int("diskwrite", 0),
		},
		"network": render.Record{
			"in_bytes":  status.Int("netin", 0),
			"out_bytes": status.Int("netout", 0),
		},
		"historical": history,
	}
}

func vmPath(node, vmid string) string {
	return "/nodes/" + node + "/qemu/" + vmid
}

func toValues(params map[string]string) url.Values {
	data := url.Values{}
	for name, value := range params {
		data.Set(name, value)
	}
	return data
}
