// Package proxmox implements a client for the Proxmox VE HTTP API.
//
// Responses arrive wrapped in a {"data": ...} envelope with no
// enforced schema, so the client hands callers payload.Payload values
// rather than typed structs. Mutating endpoints usually answer with a
// task UPID string inside the envelope.
package proxmox

import (
	"context"
	"net/url"

	"github.com/proxmoxmcp/proxmox-mcp/internal/payload"
)

// API is the surface consumed by operation handlers. All methods are
// safe for concurrent use.
type API interface {
	// ListNodes returns the cluster node summaries from /nodes.
	ListNodes(ctx context.Context) ([]payload.Payload, error)
	// Get fetches an object resource.
	Get(ctx context.Context, path string, params url.Values) (payload.Payload, error)
	// GetList fetches a list resource.
	GetList(ctx context.Context, path string, params url.Values) ([]payload.Payload, error)
	// Post submits a mutation. For asynchronous endpoints the returned
	// payload is the task UPID string.
	Post(ctx context.Context, path string, data url.Values) (payload.Payload, error)
	// Put updates a resource configuration.
	Put(ctx context.Context, path string, data url.Values) (payload.Payload, error)
	// Delete removes a resource, returning a task UPID where the
	// endpoint is asynchronous.
	Delete(ctx context.Context, path string) (payload.Payload, error)
}
