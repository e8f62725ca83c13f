package mining

import (
	"encoding/json"

	"github.com/v4ex/minex/internal/auth"
)

// actionFactory builds an action bound to a resource, a caller, and a
// payload.
type actionFactory func(res *Resource, gate *auth.Gate, payload json.RawMessage) Action

// Registry maps the closed verb set to action factories. It is built once
// at startup and read-only afterward.
type Registry struct {
	factories map[Verb]actionFactory
}

// NewRegistry returns the protocol's full verb set.
func NewRegistry() *Registry {
	return &Registry{factories: map[Verb]actionFactory{
		VerbView:             newViewAction,
		VerbInitialize:       newInitializeAction,
		VerbRevertInitialize: newRevertInitializeAction,
		VerbEdit:             newEditAction,
		VerbClearEdit:        newClearEditAction,
		VerbSubmit:           newSubmitAction,
		VerbResubmit:         newResubmitAction,
		VerbProceed:          newProceedAction,
		VerbReject:           newRejectAction,
		VerbConfirm:          newConfirmAction,
		VerbAdmit:            newAdmitAction,
		VerbDeny:             newDenyAction,
		VerbUnset:            newUnsetAction,
		VerbReset:            newResetAction,
	}}
}

// Resolve returns the factory for verb, or false for verbs outside the
// protocol.
func (r *Registry) Resolve(verb Verb) (actionFactory, bool) {
	f, ok := r.factories[verb]
	return f, ok
}

// Verbs returns the registered verb set, for diagnostics.
func (r *Registry) Verbs() []Verb {
	verbs := make([]Verb, 0, len(r.factories))
	for v := range r.factories {
		verbs = append(verbs, v)
	}
	return verbs
}
