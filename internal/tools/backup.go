package tools

import (
	"context"
	"net/url"

	"github.com/proxmoxmcp/proxmox-mcp/internal/render"
	"github.com/proxmoxmcp/proxmox-mcp/pkg/proxmox"
)

func backupOperations() []Operation {
	return []Operation{
		{
			Name:        "create_backup",
			Description: "Create a backup of a VM or container",
			Args: []ArgSpec{argNode(), argVMID(),
				{Name: "storage", Type: TypeString,
					Description: "Optional storage ID where to store the backup"},
				{Name: "compress", Type: TypeString, Default: "zstd",
					Description: "Compression algorithm (zstd, lzo, gzip)"},
				{Name: "mode", Type: TypeString, Default: "snapshot",
					Description: "Backup mode (snapshot, suspend, stop)"},
			},
			Handler: handleCreateBackup,
		},
		{
			Name:        "list_backups",
			Description: "List available backups",
			Args: []ArgSpec{
				{Name: "storage", Type: TypeString,
					Description: "Optional storage ID to filter backups"},
				{Name: "vmid", Type: TypeString,
					Description: "Optional VM ID to filter backups"},
			},
			Handler: handleListBackups,
		},
		{
			Name:        "restore_backup",
			Description: "Restore a VM or container from a backup",
			Args: []ArgSpec{argNode(),
				{Name: "vmid", Type: TypeString, Required: true,
					Description: "Original VM ID number"},
				{Name: "backup_id", Type: TypeString, Required: true,
					Description: "Backup volume ID to restore from"},
				{Name: "target_storage", Type: TypeString,
					Description: "Optional storage ID for restored VM"},
				{Name: "target_vmid", Type: TypeString,
					Description: "Optional new VM ID for the restored VM"},
			},
			Handler: handleRestoreBackup,
		},
		{
			Name:        "get_backup_config",
			Description: "Get backup schedule configuration for a node",
			Args:        []ArgSpec{argNode()},
			Handler:     handleGetBackupConfig,
		},
		{
			Name:        "update_backup_schedule",
			Description: "Update backup schedule configuration for a node",
			Args:        []ArgSpec{argNode()},
			FreeForm:    true,
			Handler:     handleUpdateBackupSchedule,
		},
	}
}

func handleCreateBackup(ctx context.Context, c proxmox.API, args Args) Envelope {
	node, vmid := args.String("node"), args.String("vmid")

	data := url.Values{}
	data.Set("vmid", vmid)
	data.Set("mode", args.String("mode"))
	if args.Has("storage") {
		data.Set("storage", args.String("storage"))
	}
	if args.Has("compress") {
		data.Set("compress", args.String("compress"))
	}

	result, err := c.Post(ctx, "/nodes/"+node+"/vzdump", data)
	if err != nil {
		return Failure("create backup for VM "+vmid, err)
	}
	return Completed(result.Text(), "Backup of VM %s initiated", vmid)
}

func handleListBackups(ctx context.Context, c proxmox.API, args Args) Envelope {
	var params url.Values
	if args.Has("storage") || args.Has("vmid") {
		params = url.Values{}
		if args.Has("storage") {
			params.Set("storage", args.String("storage"))
		}
		if args.Has("vmid") {
			params.Set("vmid", args.String("vmid"))
		}
	}

	backups := []render.Record{}
	err := collectNodes(ctx, c, "list_backups", func(node string) error {
		list, err := c.GetList(ctx, "/nodes/"+node+"/storage", params)
		if err != nil {
			return err
		}
		for _, entry := range list {
			if entry.String("content", "") != "backup" {
				continue
			}
			backups = append(backups, render.Record{
				"filename":  entry.String("volid", ""),
				"node":      node,
				"vmid":      entry.String("vmid", ""),
				"size":      entry.Int("size", 0),
				"timestamp": entry.Int("ctime", 0),
				"format":    entry.String("format", ""),
			})
		}
		return nil
	})
	if err != nil {
		return Failure("list backups", err)
	}
	return Success(render.KindBackups, backups)
}

func handleRestoreBackup(ctx context.Context, c proxmox.API, args Args) Envelope {
	node, vmid := args.String("node"), args.String("vmid")
	backupID := args.String("backup_id")

	data := url.Values{}
	data.Set("vmid", vmid)
	data.Set("archive", backupID)
	if args.Has("target_storage") {
		data.Set("storage", args.String("target_storage"))
	}
	if args.Has("target_vmid") {
		data.Set("target_vmid", args.String("target_vmid"))
	}

	result, err := c.Post(ctx, "/nodes/"+node+"/vzdump/extractconfig", data)
	if err != nil {
		return Failure("restore VM "+vmid+" from backup", err)
	}
	return Completed(result.Text(), "Restore of VM %s from backup %s initiated", vmid, backupID)
}

func handleGetBackupConfig(ctx context.Context, c proxmox.API, args Args) Envelope {
	node := args.String("node")

	config, err := c.Get(ctx, "/nodes/"+node+"/vzdump/extractconfig", nil)
	if err != nil {
		return Failure("get backup configuration for node "+node, err)
	}
	return Success(render.KindRaw, config.Value())
}

func handleUpdateBackupSchedule(ctx context.Context, c proxmox.API, args Args) Envelope {
	node := args.String("node")

	schedule := args.Except("node")
	if len(schedule) == 0 {
		return Refused("No update parameters provided")
	}

	if _, err := c.Put(ctx, "/nodes/"+node+"/vzdump/extractconfig", toValues(schedule)); err != nil {
		return Failure("update backup schedule for node "+node, err)
	}
	return Completed("", "Backup schedule updated for node %s", node)
}
