package tools

import (
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/proxmoxmcp/proxmox-mcp/internal/payload"
	"github.com/proxmoxmcp/proxmox-mcp/internal/render"
	"github.com/proxmoxmcp/proxmox-mcp/pkg/proxmox"
)

func templateOperations() []Operation {
	return []Operation{
		{
			Name:        "get_templates",
			Description: "Get all VM templates across the cluster with detailed information",
			Handler:     handleGetTemplates,
		},
		{
			Name:        "create_template",
			Description: "Convert an existing VM into a template",
			Args: []ArgSpec{argNode(),
				{Name: "vmid", Type: TypeString, Required: true,
					Description: "VM ID number to convert to template (e.g. '100')"},
				{Name: "name", Type: TypeString,
					Description: "Optional new name for the template"},
				{Name: "description", Type: TypeString,
					Description: "Optional description for the template"},
			},
			Handler: handleCreateTemplate,
		},
		{
			Name:        "clone_template",
			Description: "Clone a VM template to create a new VM with advanced options",
			Args: []ArgSpec{argNode(),
				{Name: "template_vmid", Type: TypeString, Required: true,
					Description: "Template VM ID number (e.g. '100')"},
				{Name: "name", Type: TypeString, Required: true,
					Description: "Name for the new VM"},
				{Name: "target_node", Type: TypeString,
					Description: "Optional target node (defaults to source node)"},
				{Name: "target_vmid", Type: TypeString,
					Description: "Optional specific VM ID for the clone"},
				{Name: "target_storage", Type: TypeString,
					Description: "Optional target storage for the clone"},
				{Name: "full_clone", Type: TypeBoolean, Default: true,
					Description: "Whether to create a full clone (true) or linked clone (false)"},
				{Name: "description", Type: TypeString,
					Description: "Optional description for the new VM"},
			},
			Handler: handleCloneTemplate,
		},
		{
			Name:        "update_template",
			Description: "Update template properties",
			Args: []ArgSpec{argNode(), argTemplateID(),
				{Name: "name", Type: TypeString,
					Description: "Optional new name for the template"},
				{Name: "description", Type: TypeString,
					Description: "Optional new description for the template"},
				{Name: "cores", Type: TypeNumber,
					Description: "Optional number of CPU cores"},
				{Name: "memory", Type: TypeNumber,
					Description: "Optional memory in MB"},
			},
			Handler: handleUpdateTemplate,
		},
		{
			Name:        "delete_template",
			Description: "Delete a template",
			Args:        []ArgSpec{argNode(), argTemplateID()},
			Handler:     handleDeleteTemplate,
		},
		{
			Name:        "import_template",
			Description: "Import a container template from a URL",
			Args: []ArgSpec{argNode(),
				{Name: "storage", Type: TypeString, Required: true,
					Description: "Storage to use for the template"},
				{Name: "url", Type: TypeString, Required: true,
					Description: "URL to download the template from"},
				{Name: "format", Type: TypeString,
					Description: "Optional format (e.g. 'qcow2', 'vmdk', 'raw')"},
			},
			Handler: handleImportTemplate,
		},
		{
			Name:        "get_template_details",
			Description: "Get detailed information about a specific template",
			Args:        []ArgSpec{argNode(), argTemplateID()},
			Handler:     handleGetTemplateDetails,
		},
	}
}

func argTemplateID() ArgSpec {
	return ArgSpec{Name: "vmid", Type: TypeString, Required: true,
		Description: "Template VM ID number (e.g. '100')"}
}

func handleGetTemplates(ctx context.Context, c proxmox.API, _ Args) Envelope {
	templates := []render.Record{}
	err := collectNodes(ctx, c, "get_templates", func(node string) error {
		list, err := c.GetList(ctx, "/nodes/"+node+"/qemu", nil)
		if err != nil {
			return err
		}
		for _, vm := range list {
			if vm.Int("template", 0) != 1 {
				continue
			}
			vmid := vm.String("vmid", "")
			rec := render.Record{
				"vmid":        vmid,
				"name":        vm.String("name", ""),
				"node":        node,
				"description": "No description",
				"cores":       "N/A",
				"memory":      "N/A",
				"os_type":     "N/A",
			}
			config, err := c.Get(ctx, vmPath(node, vmid)+"/config", nil)
			if err != nil {
				log.Warn().Err(err).Str("vmid", vmid).Msg("Could not get template details")
			} else {
				applyTemplateConfig(rec, config)
			}
			templates = append(templates, rec)
		}
		return nil
	})
	if err != nil {
		return Failure("get templates", err)
	}
	return Success(render.KindVMTemplates, templates)
}

func handleCreateTemplate(ctx context.Context, c proxmox.API, args Args) Envelope {
	node, vmid := args.String("node"), args.String("vmid")

	status, err := c.Get(ctx, vmPath(node, vmid)+"/status/current", nil)
	if err != nil {
		return Failure("create template from VM "+vmid, err)
	}
	if s := status.String("status", "unknown"); s != "stopped" {
		return Refused("VM %s must be stopped before converting to template. Current status: %s", vmid, s)
	}

	if args.Has("name") || args.Has("description") {
		data := url.Values{}
		if args.Has("name") {
			data.Set("name", args.String("name"))
		}
		if args.Has("description") {
			data.Set("description", args.String("description"))
		}
		if _, err := c.Put(ctx, vmPath(node, vmid)+"/config", data); err != nil {
			return Failure("create template from VM "+vmid, err)
		}
	}

	data := url.Values{}
	data.Set("template", "1")
	if _, err := c.Put(ctx, vmPath(node, vmid)+"/config", data); err != nil {
		return Failure("create template from VM "+vmid, err)
	}
	return Completed("", "VM %s successfully converted to template", vmid)
}

func handleCloneTemplate(ctx context.Context, c proxmox.API, args Args) Envelope {
	node, vmid := args.String("node"), args.String("template_vmid")
	name := args.String("name")

	if env, ok := requireTemplate(ctx, c, node, vmid, "clone template "+vmid); !ok {
		return env
	}

	data := url.Values{}
	data.Set("name", name)
	full := "0"
	if args.Bool("full_clone") {
		full = "1"
	}
	data.Set("full", full)
	if args.Has("target_node") {
		data.Set("target", args.String("target_node"))
	}
	if args.Has("target_vmid") {
		data.Set("newid", args.String("target_vmid"))
	}
	if args.Has("target_storage") {
		data.Set("storage", args.String("target_storage"))
	}

	result, err := c.Post(ctx, vmPath(node, vmid)+"/clone", data)
	if err != nil {
		return Failure("clone template "+vmid, err)
	}

	// Description can only be set once the clone target exists.
	if args.Has("description") && args.Has("target_vmid") {
		targetNode := node
		if args.Has("target_node") {
			targetNode = args.String("target_node")
		}
		update := url.Values{}
		update.Set("description", args.String("description"))
		if _, err := c.Put(ctx, vmPath(targetNode, args.String("target_vmid"))+"/config", update); err != nil {
			log.Warn().Err(err).Msg("Could not update description for cloned VM")
		}
	}

	return Completed(result.Text(), "Template %s clone initiated with name '%s'", vmid, name)
}

func handleUpdateTemplate(ctx context.Context, c proxmox.API, args Args) Envelope {
	node, vmid := args.String("node"), args.String("vmid")

	if env, ok := requireTemplate(ctx, c, node, vmid, "update template "+vmid); !ok {
		return env
	}

	data := url.Values{}
	for _, name := range []string{"name", "description", "cores", "memory"} {
		if args.Has(name) {
			data.Set(name, args.String(name))
		}
	}
	if len(data) == 0 {
		return Refused("No update parameters provided")
	}

	if _, err := c.Put(ctx, vmPath(node, vmid)+"/config", data); err != nil {
		return Failure("update template "+vmid, err)
	}
	return Completed("", "Template %s successfully updated", vmid)
}

func handleDeleteTemplate(ctx context.Context, c proxmox.API, args Args) Envelope {
	node, vmid := args.String("node"), args.String("vmid")

	if env, ok := requireTemplate(ctx, c, node, vmid, "delete template "+vmid); !ok {
		return env
	}

	result, err := c.Delete(ctx, vmPath(node, vmid))
	if err != nil {
		return Failure("delete template "+vmid, err)
	}
	return Completed(result.Text(), "Template %s deletion initiated", vmid)
}

func handleImportTemplate(ctx context.Context, c proxmox.API, args Args) Envelope {
	node, storage := args.String("node"), args.String("storage")
	downloadURL := args.String("url")

	data := url.Values{}
	data.Set("content", "vztmpl")
	data.Set("storage", storage)
	data.Set("url", downloadURL)
	if args.Has("format") {
		data.Set("format", args.String("format"))
	}

	result, err := c.Post(ctx, "/nodes/"+node+"/storage/"+storage+"/download-url", data)
	if err != nil {
		return Failure("import template from "+downloadURL, err)
	}
	return Completed(result.Text(), "Template import from %s initiated", downloadURL)
}

func handleGetTemplateDetails(ctx context.Context, c proxmox.API, args Args) Envelope {
	node, vmid := args.String("node"), args.String("vmid")

	config, err := c.Get(ctx, vmPath(node, vmid)+"/config", nil)
	if err != nil {
		return Failure("get template details for "+vmid, err)
	}
	if config.Int("template", 0) != 1 {
		return Refused("VM %s is not a template", vmid)
	}

	details := render.Record{
		"vmid":        vmid,
		"node":        node,
		"name":        config.String("name", "vm-"+vmid),
		"description": "No description",
		"cores":       "N/A",
		"memory":      "N/A",
		"os_type":     "N/A",
	}
	applyTemplateConfig(details, config)

	networks := render.Record{}
	for _, key := range config.Keys() {
		if strings.HasPrefix(key, "net") {
			networks[key] = config.String(key, "")
		}
	}
	if len(networks) > 0 {
		details["networks"] = networks
	}

	return Success(render.KindTemplateDetails, details)
}

// requireTemplate verifies the target VM is marked as a template. The
// second return is false when the caller should stop and return env.
func requireTemplate(ctx context.Context, c proxmox.API, node, vmid, context string) (Envelope, bool) {
	config, err := c.Get(ctx, vmPath(node, vmid)+"/config", nil)
	if err != nil {
		return Failure(context, err), false
	}
	if config.Int("template", 0) != 1 {
		return Refused("VM %s is not a template", vmid), false
	}
	return Envelope{}, true
}

// applyTemplateConfig copies the displayed config fields and disk
// entries onto a template record.
func applyTemplateConfig(rec render.Record, config payload.Payload) {
	rec["description"] = config.String("description", "No description")
	rec["cores"] = config.String("cores", "N/A")
	rec["memory"] = config.String("memory", "N/A")
	rec["os_type"] = config.String("ostype", "N/A")

	disks := render.Record{}
	for _, key := range config.Keys() {
		if strings.HasPrefix(key, "scsi") || strings.HasPrefix(key, "ide") || strings.HasPrefix(key, "sata") {
			disks[key] = config.String(key, "")
		}
	}
	if len(disks) > 0 {
		rec["disks"] = disks
	}
}
