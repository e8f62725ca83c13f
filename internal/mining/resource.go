// Package mining implements the mining-task resource and its action
// dispatch. A resource is one miner's task record loaded from the store;
// actions are named, permission-gated operations bound to a resource, a
// caller, and a payload.
package mining

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/v4ex/minex/internal/domain"
	"github.com/v4ex/minex/internal/infra/schema"
)

// taskKey derives the storage key for a subject's mining task.
// Keys are per-owning-subject: one task per miner at a time.
func taskKey(sub string) string {
	return "mining-task/" + sub
}

// Resource is a mining task bound to its storage key. All transitions are
// guarded: a failed precondition returns false with no side effect, a
// persistence fault restores the pre-mutation record and returns the error.
//
// Callers must hold the subject's executor slot while using a Resource; the
// check-then-persist discipline below relies on one writer per key.
type Resource struct {
	store     domain.Store
	validator domain.Validator
	key       string
	task      *domain.MiningTask
}

// Load reads the subject's record from the store, falling back to a fresh
// all-absent record owned by sub when none exists yet.
func Load(ctx context.Context, store domain.Store, validator domain.Validator, sub string) (*Resource, error) {
	key := taskKey(sub)

	task, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load mining task: %w", err)
	}
	if task == nil {
		task = domain.NewMiningTask(sub)
	}

	return &Resource{store: store, validator: validator, key: key, task: task}, nil
}

// OwnerID returns the owning subject. Implements auth.Ownable.
func (r *Resource) OwnerID() string {
	return r.task.Sub
}

// Task returns the live record. Derived-state queries go through it.
func (r *Resource) Task() *domain.MiningTask {
	return r.task
}

// Model returns a detached copy of the record for response payloads.
func (r *Resource) Model() *domain.MiningTask {
	return r.task.Clone()
}

func (r *Resource) save(ctx context.Context) error {
	if err := r.store.Put(ctx, r.key, r.task); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return nil
}

// mutate snapshots the record, applies fn, and persists. On a persistence
// fault the snapshot is restored so in-memory state equals pre-call state.
func (r *Resource) mutate(ctx context.Context, fn func(t *domain.MiningTask)) (bool, error) {
	snapshot := r.task.Clone()

	fn(r.task)

	if err := r.save(ctx); err != nil {
		r.task = snapshot
		return false, err
	}
	return true, nil
}

// ─── Miner Stage Operations ─────────────────────────────────────────────────

// Initialize assigns a fresh random id and the initialization timestamp.
func (r *Resource) Initialize(ctx context.Context) (bool, error) {
	if r.task.IsInitialized() {
		return false, nil
	}

	return r.mutate(ctx, func(t *domain.MiningTask) {
		now := time.Now()
		t.ID = uuid.NewString()
		t.Timestamps.InitializedAt = &now
	})
}

// RevertInitialize clears the identity of a task that was never edited.
func (r *Resource) RevertInitialize(ctx context.Context) (bool, error) {
	if !r.task.IsInitialized() || r.task.IsEdited() {
		return false, nil
	}

	return r.mutate(ctx, func(t *domain.MiningTask) {
		t.ID = ""
		t.Timestamps.InitializedAt = nil
	})
}

// Edit records work details after schema validation. An invalid payload is
// a no-op false, not a fault.
func (r *Resource) Edit(ctx context.Context, work []byte) (bool, error) {
	if !r.task.IsInitialized() || r.task.IsSubmitted() {
		return false, nil
	}

	if !r.validator.Validate(schema.SchemaWork, work) {
		return false, nil
	}

	return r.mutate(ctx, func(t *domain.MiningTask) {
		now := time.Now()
		t.Work = append([]byte(nil), work...)
		t.Timestamps.EditedAt = &now
	})
}

// ClearEdit removes unsubmitted work details.
func (r *Resource) ClearEdit(ctx context.Context) (bool, error) {
	if !r.task.IsInitialized() || !r.task.IsEdited() || r.task.IsSubmitted() {
		return false, nil
	}

	return r.mutate(ctx, func(t *domain.MiningTask) {
		t.Work = nil
		t.Timestamps.EditedAt = nil
	})
}

// Submit hands the edited work to the Broker stage.
func (r *Resource) Submit(ctx context.Context) (bool, error) {
	if r.task.IsSubmitted() || !r.task.IsInitialized() || !r.task.IsEdited() {
		return false, nil
	}

	return r.mutate(ctx, func(t *domain.MiningTask) {
		now := time.Now()
		t.Timestamps.SubmittedAt = &now
	})
}

// RevertSubmit withdraws a submission no broker has proceeded yet.
func (r *Resource) RevertSubmit(ctx context.Context) (bool, error) {
	if !r.task.IsSubmitted() || r.task.IsProceeded() {
		return false, nil
	}

	return r.mutate(ctx, func(t *domain.MiningTask) {
		t.Timestamps.SubmittedAt = nil
	})
}

// Resubmit withdraws the current submission, optionally replaces the work
// details, and submits again. The sub-steps persist individually; the
// composite stops at the first one that fails.
func (r *Resource) Resubmit(ctx context.Context, work []byte) (bool, error) {
	if ok, err := r.RevertSubmit(ctx); !ok || err != nil {
		return ok, err
	}
	if len(work) > 0 {
		if ok, err := r.Edit(ctx, work); !ok || err != nil {
			return ok, err
		}
	}
	return r.Submit(ctx)
}

// ─── Broker Stage Operations ────────────────────────────────────────────────

// Reject marks the current submission rejected and clears any proceeding.
func (r *Resource) Reject(ctx context.Context) (bool, error) {
	if r.task.IsRejected() || r.task.IsConfirmed() {
		return false, nil
	}

	return r.mutate(ctx, func(t *domain.MiningTask) {
		now := time.Now()
		t.Timestamps.RejectedAt = &now
		t.Timestamps.ProceededAt = nil
	})
}

// Proceed passes the submission onward and clears any rejection.
func (r *Resource) Proceed(ctx context.Context) (bool, error) {
	if r.task.IsProceeded() || r.task.IsConfirmed() {
		return false, nil
	}

	return r.mutate(ctx, func(t *domain.MiningTask) {
		now := time.Now()
		t.Timestamps.ProceededAt = &now
		t.Timestamps.RejectedAt = nil
	})
}

// Confirm fixes the proceeded submission for the Minter stage.
func (r *Resource) Confirm(ctx context.Context) (bool, error) {
	if r.task.IsConfirmed() || !r.task.IsProceeded() || r.task.IsRejected() {
		return false, nil
	}

	return r.mutate(ctx, func(t *domain.MiningTask) {
		now := time.Now()
		t.Timestamps.ConfirmedAt = &now
	})
}

// SetCommitted records the actual commit timestamp of the underlying work.
func (r *Resource) SetCommitted(ctx context.Context, at time.Time) (bool, error) {
	return r.mutate(ctx, func(t *domain.MiningTask) {
		t.Timestamps.CommittedAt = &at
	})
}

// ─── Minter Stage Operations ────────────────────────────────────────────────

// Admit accepts the confirmed task for settlement.
func (r *Resource) Admit(ctx context.Context) (bool, error) {
	if !r.task.IsInMinterStage() || r.task.IsAdmitted() {
		return false, nil
	}

	return r.mutate(ctx, func(t *domain.MiningTask) {
		now := time.Now()
		t.Timestamps.AdmittedAt = &now
	})
}

// Deny turns the confirmed task down.
func (r *Resource) Deny(ctx context.Context) (bool, error) {
	if !r.task.IsInMinterStage() || r.task.IsDenied() {
		return false, nil
	}

	return r.mutate(ctx, func(t *domain.MiningTask) {
		now := time.Now()
		t.Timestamps.DeniedAt = &now
	})
}

// Unset withdraws a pending admit or deny decision.
func (r *Resource) Unset(ctx context.Context) (bool, error) {
	if !r.task.IsInMinterStage() {
		return false, nil
	}

	return r.mutate(ctx, func(t *domain.MiningTask) {
		t.Timestamps.AdmittedAt = nil
		t.Timestamps.DeniedAt = nil
	})
}

// ─── Administrative Operations ──────────────────────────────────────────────

// Reset restores the record to its all-absent form, keeping only the
// owning subject. Unconditional.
func (r *Resource) Reset(ctx context.Context) (bool, error) {
	return r.mutate(ctx, func(t *domain.MiningTask) {
		*t = *domain.NewMiningTask(t.Sub)
	})
}
