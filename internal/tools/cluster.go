package tools

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/proxmoxmcp/proxmox-mcp/internal/render"
	"github.com/proxmoxmcp/proxmox-mcp/pkg/proxmox"
)

func clusterOperations() []Operation {
	return []Operation{
		{
			Name:        "get_cluster_status",
			Description: "Get overall Proxmox cluster health and configuration status",
			Handler:     handleGetClusterStatus,
		},
		{
			Name:        "get_next_vmid",
			Description: "Get the next available VM ID in the cluster",
			Handler:     handleGetNextVMID,
		},
	}
}

func handleGetClusterStatus(ctx context.Context, c proxmox.API, _ Args) Envelope {
	items, err := c.GetList(ctx, "/cluster/status", nil)
	if err != nil {
		return Failure("get cluster status", err)
	}

	rec := render.Record{
		"name":   "N/A",
		"quorum": false,
		"nodes":  int64(0),
	}
	var nodeCount int64
	for _, item := range items {
		switch item.String("type", "") {
		case "cluster":
			rec["name"] = item.String("name", "N/A")
			rec["quorum"] = item.Int("quorate", 0) == 1
			rec["nodes"] = item.Int("nodes", 0)
		case "node":
			nodeCount++
		}
	}
	// Standalone hosts have no cluster item, only node entries.
	if rec["nodes"] == int64(0) {
		rec["nodes"] = nodeCount
	}

	resources, err := c.GetList(ctx, "/cluster/resources", nil)
	if err != nil {
		log.Debug().Err(err).Msg("Cluster resources unavailable")
	} else if len(resources) > 0 {
		rec["resources"] = int64(len(resources))
	}

	return Success(render.KindClusterStatus, rec)
}

func handleGetNextVMID(ctx context.Context, c proxmox.API, _ Args) Envelope {
	next, err := c.Get(ctx, "/cluster/nextid", nil)
	if err != nil {
		return Failure("get next VM ID", err)
	}
	return Completed("", "Next available VM ID: %s", next.Text())
}
