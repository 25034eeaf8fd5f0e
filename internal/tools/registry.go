package tools

import (
	"context"

	"github.com/proxmoxmcp/proxmox-mcp/pkg/proxmox"
)

// ArgType is the JSON schema type of an operation argument.
type ArgType string

const (
	TypeString  ArgType = "string"
	TypeNumber  ArgType = "number"
	TypeBoolean ArgType = "boolean"
)

// ArgSpec declares one named argument of an operation.
type ArgSpec struct {
	Name        string
	Type        ArgType
	Description string
	Required    bool
	Default     interface{}
}

// HandlerFunc executes one operation against the remote API with
// validated, defaulted arguments.
type HandlerFunc func(ctx context.Context, c proxmox.API, args Args) Envelope

// Operation describes one entry of the static operation catalog.
type Operation struct {
	Name        string
	Description string
	Args        []ArgSpec
	// FreeForm operations additionally accept undeclared arguments
	// and forward them verbatim to the remote API.
	FreeForm bool
	Handler  HandlerFunc
}

// operations assembles the full catalog. Registration order is the
// order tools are listed to clients.
func operations() []Operation {
	var ops []Operation
	ops = append(ops, nodeOperations()...)
	ops = append(ops, vmOperations()...)
	ops = append(ops, containerOperations()...)
	ops = append(ops, templateOperations()...)
	ops = append(ops, backupOperations()...)
	ops = append(ops, taskOperations()...)
	ops = append(ops, storageOperations()...)
	ops = append(ops, clusterOperations()...)
	return ops
}

func argNode() ArgSpec {
	return ArgSpec{Name: "node", Type: TypeString, Required: true,
		Description: "Host node name (e.g. 'pve1', 'proxmox-node2')"}
}

func argVMID() ArgSpec {
	return ArgSpec{Name: "vmid", Type: TypeString, Required: true,
		Description: "VM ID number (e.g. '100', '101')"}
}

func argContainerID() ArgSpec {
	return ArgSpec{Name: "vmid", Type: TypeString, Required: true,
		Description: "Container ID number (e.g. '200', '201')"}
}
