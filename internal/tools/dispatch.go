package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/proxmoxmcp/proxmox-mcp/internal/logging"
	"github.com/proxmoxmcp/proxmox-mcp/internal/metrics"
	"github.com/proxmoxmcp/proxmox-mcp/pkg/proxmox"
)

// Dispatcher routes operation names to their handlers. The registry is
// built once at construction and immutable afterwards.
type Dispatcher struct {
	client proxmox.API
	ops    map[string]Operation
	order  []string
}

// NewDispatcher builds a dispatcher over the static operation catalog.
func NewDispatcher(client proxmox.API) *Dispatcher {
	d := &Dispatcher{
		client: client,
		ops:    make(map[string]Operation),
	}
	for _, op := range operations() {
		d.ops[op.Name] = op
		d.order = append(d.order, op.Name)
	}
	return d
}

// Operations returns the catalog in registration order.
func (d *Dispatcher) Operations() []Operation {
	ops := make([]Operation, 0, len(d.order))
	for _, name := range d.order {
		ops = append(ops, d.ops[name])
	}
	return ops
}

// Dispatch validates arguments and invokes the named operation's
// handler exactly once. Every outcome, including handler panics, is
// converted to an envelope; nothing propagates to the transport.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, raw map[string]interface{}) (env Envelope) {
	start := time.Now()
	ctx, requestID := logging.WithRequestID(ctx, "")
	logger := log.With().Str("requestID", requestID).Str("operation", name).Logger()

	op, ok := d.ops[name]
	if !ok {
		logger.Warn().Msg("Unknown operation requested")
		// Client-supplied names stay out of the label set.
		metrics.RecordOperation("unknown", "unknown")
		return UnknownOperation(name)
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Operation handler panicked")
			env = Failure(strings.ReplaceAll(name, "_", " "), fmt.Errorf("internal error: %v", r))
		}

		outcome := "success"
		if !env.Success {
			outcome = "failure"
		}
		metrics.RecordOperation(name, outcome)
		logger.Debug().
			Bool("success", env.Success).
			Dur("duration", time.Since(start)).
			Msg("Operation completed")
	}()

	args, missing := d.collectArgs(op, raw)
	if len(missing) > 0 {
		logger.Debug().Strs("missing", missing).Msg("Rejecting operation with missing arguments")
		return MissingArguments(missing)
	}

	return op.Handler(ctx, d.client, args)
}

// collectArgs applies declared defaults and reports required arguments
// that are absent or empty. Free-form operations keep their undeclared
// arguments.
func (d *Dispatcher) collectArgs(op Operation, raw map[string]interface{}) (Args, []string) {
	args := Args{}
	declared := make(map[string]bool, len(op.Args))
	var missing []string

	for _, spec := range op.Args {
		declared[spec.Name] = true
		v, present := raw[spec.Name]
		if !present || isEmpty(v) {
			if spec.Required {
				missing = append(missing, spec.Name)
			} else if spec.Default != nil {
				args[spec.Name] = spec.Default
			}
			continue
		}
		args[spec.Name] = v
	}

	if op.FreeForm {
		for name, v := range raw {
			if !declared[name] && !isEmpty(v) {
				args[name] = v
			}
		}
	}

	return args, missing
}

func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
