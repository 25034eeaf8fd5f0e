package server

import (
	"testing"

	"github.com/proxmoxmcp/proxmox-mcp/internal/tools"
)

func TestBuildToolSchema(t *testing.T) {
	op := tools.Operation{
		Name:        "clone_vm",
		Description: "Clone a virtual machine",
		Args: []tools.ArgSpec{
			{Name: "node", Type: tools.TypeString, Required: true, Description: "Host node name"},
			{Name: "timeout", Type: tools.TypeNumber, Default: 300, Description: "Seconds to wait"},
			{Name: "full_clone", Type: tools.TypeBoolean, Default: true, Description: "Full clone"},
		},
	}

	tool := buildTool(op)
	if tool.Name != "clone_vm" {
		t.Errorf("tool name = %q", tool.Name)
	}
	if tool.Description != "Clone a virtual machine" {
		t.Errorf("tool description = %q", tool.Description)
	}

	for _, name := range []string{"node", "timeout", "full_clone"} {
		if _, ok := tool.InputSchema.Properties[name]; !ok {
			t.Errorf("schema missing property %q", name)
		}
	}

	required := map[string]bool{}
	for _, name := range tool.InputSchema.Required {
		required[name] = true
	}
	if !required["node"] {
		t.Error("node should be a required property")
	}
	if required["timeout"] || required["full_clone"] {
		t.Errorf("optional properties marked required: %v", tool.InputSchema.Required)
	}
}

func TestToFloat(t *testing.T) {
	if toFloat(300) != 300 || toFloat(int64(50)) != 50 || toFloat(1.5) != 1.5 {
		t.Error("numeric defaults not converted")
	}
	if toFloat("nope") != 0 {
		t.Error("non-numeric default should convert to 0")
	}
}
