package tools

import (
	"context"

	"github.com/proxmoxmcp/proxmox-mcp/internal/render"
	"github.com/proxmoxmcp/proxmox-mcp/pkg/proxmox"
)

func storageOperations() []Operation {
	return []Operation{
		{
			Name:        "get_storage",
			Description: "List storage pools across the cluster with their usage and configuration",
			Handler:     handleGetStorage,
		},
	}
}

func handleGetStorage(ctx context.Context, c proxmox.API, _ Args) Envelope {
	var pools []render.Record
	seen := map[string]bool{}

	err := collectNodes(ctx, c, "get_storage", func(node string) error {
		list, err := c.GetList(ctx, "/nodes/"+node+"/storage", nil)
		if err != nil {
			return err
		}
		for _, pool := range list {
			name := pool.String("storage", "")
			// Shared pools appear on every node; report each once.
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true

			status := "offline"
			if pool.Bool("active", false) || pool.Bool("enabled", false) {
				status = "online"
			}
			pools = append(pools, render.Record{
				"storage": name,
				"type":    pool.String("type", "N/A"),
				"status":  status,
				"node":    node,
				"used":    pool.Int("used", 0),
				"total":   pool.Int("total", 0),
			})
		}
		return nil
	})
	if err != nil {
		return Failure("get storage", err)
	}
	return Success(render.KindStorageList, pools)
}
