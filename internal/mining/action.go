package mining

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/v4ex/minex/internal/auth"
	"github.com/v4ex/minex/internal/domain"
)

// Verb names one action in the closed protocol set.
type Verb string

const (
	VerbView             Verb = "VIEW"
	VerbInitialize       Verb = "INITIALIZE"
	VerbRevertInitialize Verb = "REVERT_INITIALIZE"
	VerbEdit             Verb = "EDIT"
	VerbClearEdit        Verb = "CLEAR_EDIT"
	VerbSubmit           Verb = "SUBMIT"
	VerbResubmit         Verb = "RESUBMIT"
	VerbProceed          Verb = "PROCEED"
	VerbReject           Verb = "REJECT"
	VerbConfirm          Verb = "CONFIRM"
	VerbAdmit            Verb = "ADMIT"
	VerbDeny             Verb = "DENY"
	VerbUnset            Verb = "UNSET"
	VerbReset            Verb = "RESET"
)

// Response is the outcome of one dispatched action.
// The task model is attached only on success, so failed mutations never
// leak partial state.
type Response struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Payload ResponsePayload `json:"payload"`
}

// ResponsePayload carries the externally visible task projection.
type ResponsePayload struct {
	MiningTask *domain.MiningTask `json:"miningTask,omitempty"`
}

// Action is one named, permission-gated unit of work bound to a resource,
// a caller, and a payload.
type Action interface {
	// Allowed evaluates the action's permission predicates.
	Allowed(ctx context.Context) (bool, error)

	// Perform re-checks Allowed, then applies the effect and reports the
	// outcome. A disallowed action performs no mutation.
	Perform(ctx context.Context) *Response
}

// predicate is one link of the permission chain, an ordered list evaluated
// with short-circuiting AND.
type predicate func(ctx context.Context) (bool, error)

// actionBase binds the resource, the caller's gate, and the decoded payload
// shared by every concrete action.
type actionBase struct {
	res     *Resource
	gate    *auth.Gate
	payload json.RawMessage
	preds   []predicate
}

func newActionBase(res *Resource, gate *auth.Gate, payload json.RawMessage) actionBase {
	return actionBase{res: res, gate: gate, payload: payload}
}

// Allowed evaluates the predicate chain: the shared base predicates first,
// then the variant's own, short-circuiting on the first failure.
func (b *actionBase) Allowed(ctx context.Context) (bool, error) {
	chain := make([]predicate, 0, 2+len(b.preds))
	chain = append(chain, b.callerAuthenticated, b.resourceBound)
	chain = append(chain, b.preds...)

	for _, p := range chain {
		ok, err := p(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// require appends variant predicates to the chain.
func (b *actionBase) require(preds ...predicate) {
	b.preds = append(b.preds, preds...)
}

// guard re-checks Allowed and turns a failure into the terminal response:
// nil when the action may proceed, 403 when disallowed, 500 when a
// collaborator fault kept the predicates from being evaluated.
func (b *actionBase) guard(ctx context.Context) *Response {
	ok, err := b.Allowed(ctx)
	if err != nil {
		return fault(err)
	}
	if !ok {
		return disallow()
	}
	return nil
}

// succeed builds a 2xx response with the task model attached.
func (b *actionBase) succeed(status int, message string) *Response {
	return &Response{
		Status:  status,
		Message: message,
		Payload: ResponsePayload{MiningTask: b.res.Model()},
	}
}

// ─── Shared Predicates ──────────────────────────────────────────────────────

func (b *actionBase) callerAuthenticated(context.Context) (bool, error) {
	return b.gate.IsAuthenticated(), nil
}

func (b *actionBase) resourceBound(context.Context) (bool, error) {
	return b.res != nil && b.res.OwnerID() != "", nil
}

// ownsResource holds when the caller is the task's miner.
func (b *actionBase) ownsResource(context.Context) (bool, error) {
	return b.gate.IsOwnerOf(b.res)
}

// hasRole binds a role-membership predicate.
func (b *actionBase) hasRole(role auth.Role) predicate {
	return func(ctx context.Context) (bool, error) {
		return b.gate.HasRole(ctx, role)
	}
}

// matchedBrokering holds when the task is the one the confirming broker is
// brokering: proceeded by a broker and still in the Broker stage.
func (b *actionBase) matchedBrokering(context.Context) (bool, error) {
	t := b.res.Task()
	return t.IsInBrokerStage() && t.IsProceeded(), nil
}

// ─── Terminal Responses ─────────────────────────────────────────────────────

// disallow is the structured outcome of a failed permission check.
func disallow() *Response {
	return &Response{Status: http.StatusForbidden, Message: "Action not allowed."}
}

// conflict reports a task not in the stage the action requires.
func conflict(message string) *Response {
	return &Response{Status: http.StatusConflict, Message: message}
}

// notAcceptable reports a payload that failed schema or business validation.
func notAcceptable(message string) *Response {
	return &Response{Status: http.StatusNotAcceptable, Message: message}
}

// fault reports a persistence or collaborator failure. Any mutation has
// already been rolled back by the resource.
func fault(err error) *Response {
	return &Response{Status: http.StatusInternalServerError, Message: err.Error()}
}
