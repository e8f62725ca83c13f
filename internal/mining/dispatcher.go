package mining

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/v4ex/minex/internal/auth"
	"github.com/v4ex/minex/internal/domain"
	"github.com/v4ex/minex/internal/infra/metrics"
)

// Envelope is the inbound message: a verb plus its opaque payload.
type Envelope struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// Dispatcher resolves envelopes to actions and runs them under the
// per-subject single-writer guarantee. Every outcome — including unknown
// verbs, authorization denials, and persistence faults — resolves to a
// Response; nothing escapes to the transport as an unhandled fault.
type Dispatcher struct {
	store     domain.Store
	validator domain.Validator
	registry  *Registry
	exec      *keyedExecutor
}

// NewDispatcher wires a dispatcher over the given store and validator.
func NewDispatcher(store domain.Store, validator domain.Validator) *Dispatcher {
	return &Dispatcher{
		store:     store,
		validator: validator,
		registry:  NewRegistry(),
		exec:      newKeyedExecutor(),
	}
}

// Dispatch runs one envelope against the mining task owned by sub, on
// behalf of the caller behind gate.
func (d *Dispatcher) Dispatch(ctx context.Context, gate *auth.Gate, sub string, env Envelope) *Response {
	start := time.Now()

	resp := d.dispatch(ctx, gate, sub, env)

	metrics.ActionsDispatched.WithLabelValues(env.Action, statusFamily(resp.Status)).Inc()
	metrics.DispatchLatency.Observe(time.Since(start).Seconds())
	if resp.Status == http.StatusForbidden {
		metrics.AuthDenials.Inc()
	}
	if resp.Status >= 500 {
		metrics.Faults.Inc()
		log.Printf("[dispatch] %s on %q failed: %s", env.Action, sub, resp.Message)
	}

	return resp
}

func (d *Dispatcher) dispatch(ctx context.Context, gate *auth.Gate, sub string, env Envelope) *Response {
	if sub == "" {
		return &Response{Status: http.StatusNotFound, Message: "No mining task subject."}
	}

	factory, ok := d.registry.Resolve(Verb(env.Action))
	if !ok {
		return &Response{Status: http.StatusNotFound, Message: "Unknown action " + strconv.Quote(env.Action) + "."}
	}

	var resp *Response
	d.exec.Do(taskKey(sub), func() {
		res, err := Load(ctx, d.store, d.validator, sub)
		if err != nil {
			resp = fault(err)
			return
		}
		resp = factory(res, gate, env.Payload).Perform(ctx)
	})
	return resp
}

func statusFamily(status int) string {
	return strconv.Itoa(status/100) + "xx"
}
