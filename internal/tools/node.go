package tools

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/proxmoxmcp/proxmox-mcp/internal/format"
	"github.com/proxmoxmcp/proxmox-mcp/internal/render"
	"github.com/proxmoxmcp/proxmox-mcp/pkg/proxmox"
)

func nodeOperations() []Operation {
	return []Operation{
		{
			Name:        "get_nodes",
			Description: "List all nodes in the Proxmox cluster with their status, uptime and resource usage",
			Handler:     handleGetNodes,
		},
		{
			Name:        "get_node_status",
			Description: "Get detailed status information for a specific Proxmox node",
			Args: []ArgSpec{
				{Name: "node", Type: TypeString, Required: true,
					Description: "Name/ID of node to query (e.g. 'pve1', 'proxmox-node2')"},
			},
			Handler: handleGetNodeStatus,
		},
	}
}

func handleGetNodes(ctx context.Context, c proxmox.API, _ Args) Envelope {
	nodes, err := c.ListNodes(ctx)
	if err != nil {
		return Failure("get nodes", err)
	}

	records := make([]render.Record, 0, len(nodes))
	for _, node := range nodes {
		name := node.String("node", "")
		if name == "" {
			continue
		}

		rec := render.Record{
			"node":   name,
			"status": node.String("status", "unknown"),
			"uptime": node.Int("uptime", 0),
		}

		status, err := c.Get(ctx, "/nodes/"+name+"/status", nil)
		if err != nil {
			// Keep the summary-level numbers when the detail call fails
			log.Warn().Err(err).Str("node", name).Msg("Failed to get node status, using summary data")
			rec["memory"] = memoryRecord(node.Int("mem", 0), node.Int("maxmem", 0))
			if node.Has("maxcpu") {
				rec["maxcpu"] = node.Int("maxcpu", 0)
			}
			records = append(records, rec)
			continue
		}

		if uptime := status.Int("uptime", 0); uptime > 0 {
			rec["uptime"] = uptime
		}
		if cpus := status.Map("cpuinfo").Int("cpus", 0); cpus > 0 {
			rec["maxcpu"] = cpus
		}
		memory := status.Map("memory")
		rec["memory"] = memoryRecord(memory.Int("used", 0), memory.Int("total", 0))
		if rootfs := status.Map("rootfs"); !rootfs.IsNil() {
			rec["disk"] = memoryRecord(rootfs.Int("used", 0), rootfs.Int("total", 0))
		}
		records = append(records, rec)
	}

	return Success(render.KindNodeList, records)
}

func handleGetNodeStatus(ctx context.Context, c proxmox.API, args Args) Envelope {
	node := args.String("node")

	status, err := c.Get(ctx, "/nodes/"+node+"/status", nil)
	if err != nil {
		return Failure("get status for node "+node, err)
	}

	memory := status.Map("memory")
	rec := render.Record{
		"node":   node,
		"status": status.String("status", "unknown"),
		"uptime": status.Int("uptime", 0),
		"memory": memoryRecord(memory.Int("used", 0), memory.Int("total", 0)),
	}
	if cpus := status.Map("cpuinfo").Int("cpus", 0); cpus > 0 {
		rec["maxcpu"] = cpus
	}
	if rootfs := status.Map("rootfs"); !rootfs.IsNil() {
		rec["disk"] = memoryRecord(rootfs.Int("used", 0), rootfs.Int("total", 0))
	}

	return Success(render.KindNodeStatus, rec)
}

// memoryRecord normalizes a used/total byte pair, precomputing the
// usage percentage so no consumer re-derives it.
func memoryRecord(used, total int64) render.Record {
	return render.Record{
		"used":    used,
		"total":   total,
		"percent": format.Percent(float64(used), float64(total)),
	}
}

// collectNodes runs fn for every cluster node. A node whose fetch
// fails is logged and skipped; partial aggregation is not an error.
func collectNodes(ctx context.Context, c proxmox.API, operation string, fn func(node string) error) error {
	nodes, err := c.ListNodes(ctx)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		name := n.String("node", "")
		if name == "" {
			continue
		}
		if err := fn(name); err != nil {
			log.Warn().Err(err).Str("node", name).Str("operation", operation).
				Msg("Skipping node after fetch failure")
		}
	}
	return nil
}
