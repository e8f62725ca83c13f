// Package domain holds the mining-task record and its derived lifecycle
// states. A mining task flows through four stages as three parties act on it:
// Miner (initialize → edit → submit), Broker (proceed/reject → confirm),
// Minter (admit/deny), Final (settle → publish → finish).
package domain

import (
	"encoding/json"
	"time"
)

// Timestamps records when each lifecycle event last happened. A nil entry
// means the event has not happened (or was reverted). There is no stored
// state enum — every state is recomputed from these fields, so state and
// timestamps cannot drift apart.
type Timestamps struct {
	InitializedAt *time.Time `json:"initializedAt"`
	EditedAt      *time.Time `json:"editedAt"`
	SubmittedAt   *time.Time `json:"submittedAt"`
	CommittedAt   *time.Time `json:"committedAt"`
	RejectedAt    *time.Time `json:"rejectedAt"`
	ProceededAt   *time.Time `json:"proceededAt"`
	ConfirmedAt   *time.Time `json:"confirmedAt"`
	DeniedAt      *time.Time `json:"deniedAt"`
	AdmittedAt    *time.Time `json:"admittedAt"`
	SettledAt     *time.Time `json:"settledAt"`
	PublishedAt   *time.Time `json:"publishedAt"`
	FinishedAt    *time.Time `json:"finishedAt"`
}

// MiningTask is the persistent record for one (subject, task) pair.
// Sub is immutable after the first save; ID is assigned at initialization.
type MiningTask struct {
	Sub        string          `json:"sub"`
	ID         string          `json:"id,omitempty"`
	Timestamps Timestamps      `json:"timestamps"`
	Work       json.RawMessage `json:"work,omitempty"`
}

// NewMiningTask returns an empty record owned by sub.
func NewMiningTask(sub string) *MiningTask {
	return &MiningTask{Sub: sub}
}

// Clone returns a deep copy. Used to snapshot the record before a mutation
// so a failed persistence attempt can be rolled back.
func (m *MiningTask) Clone() *MiningTask {
	c := *m
	c.Timestamps = m.Timestamps.clone()
	if m.Work != nil {
		c.Work = make(json.RawMessage, len(m.Work))
		copy(c.Work, m.Work)
	}
	return &c
}

func (ts Timestamps) clone() Timestamps {
	cp := func(t *time.Time) *time.Time {
		if t == nil {
			return nil
		}
		v := *t
		return &v
	}
	return Timestamps{
		InitializedAt: cp(ts.InitializedAt),
		EditedAt:      cp(ts.EditedAt),
		SubmittedAt:   cp(ts.SubmittedAt),
		CommittedAt:   cp(ts.CommittedAt),
		RejectedAt:    cp(ts.RejectedAt),
		ProceededAt:   cp(ts.ProceededAt),
		ConfirmedAt:   cp(ts.ConfirmedAt),
		DeniedAt:      cp(ts.DeniedAt),
		AdmittedAt:    cp(ts.AdmittedAt),
		SettledAt:     cp(ts.SettledAt),
		PublishedAt:   cp(ts.PublishedAt),
		FinishedAt:    cp(ts.FinishedAt),
	}
}

// ─── Derived States ─────────────────────────────────────────────────────────

// IsInitialized reports whether the task has an identity.
// ID and InitializedAt are assigned atomically by Initialize.
func (m *MiningTask) IsInitialized() bool {
	return m.ID != "" && m.Timestamps.InitializedAt != nil
}

// IsEdited reports whether work details have been recorded.
func (m *MiningTask) IsEdited() bool {
	return m.IsInitialized() && m.Timestamps.EditedAt != nil && m.Work != nil
}

// IsSubmitted reports whether the work has been handed to the Broker stage.
func (m *MiningTask) IsSubmitted() bool {
	return m.IsEdited() && m.Timestamps.SubmittedAt != nil
}

// IsCommitted reports whether a commit timestamp has been recorded for the
// underlying work.
func (m *MiningTask) IsCommitted() bool {
	return m.Timestamps.CommittedAt != nil
}

// IsRejected reports whether the current submission stands rejected.
// A RejectedAt older than SubmittedAt belongs to a prior cycle and does not
// count; most recent event wins.
func (m *MiningTask) IsRejected() bool {
	return m.IsSubmitted() && m.Timestamps.RejectedAt != nil &&
		m.Timestamps.RejectedAt.After(*m.Timestamps.SubmittedAt)
}

// IsRejectedBefore reports whether the task was ever rejected, in any cycle.
func (m *MiningTask) IsRejectedBefore() bool {
	return m.Timestamps.RejectedAt != nil
}

// IsProceeded reports whether a Broker has passed the task onward.
func (m *MiningTask) IsProceeded() bool {
	return m.IsEdited() && m.Timestamps.ProceededAt != nil
}

// IsConfirmed reports whether the brokering Broker has confirmed the task.
func (m *MiningTask) IsConfirmed() bool {
	return m.IsProceeded() && m.Timestamps.ConfirmedAt != nil
}

// IsDenied reports whether the current confirmation stands denied.
// Same recency rule as IsRejected.
func (m *MiningTask) IsDenied() bool {
	return m.IsConfirmed() && m.Timestamps.DeniedAt != nil &&
		m.Timestamps.DeniedAt.After(*m.Timestamps.ConfirmedAt)
}

// IsDeniedBefore reports whether the task was ever denied, in any cycle.
func (m *MiningTask) IsDeniedBefore() bool {
	return m.Timestamps.DeniedAt != nil
}

// IsAdmitted reports whether a Minter has admitted the task.
func (m *MiningTask) IsAdmitted() bool { return m.Timestamps.AdmittedAt != nil }

// IsSettled reports whether the admitted task has been settled.
func (m *MiningTask) IsSettled() bool { return m.Timestamps.SettledAt != nil }

// IsPublished reports whether the settlement has been published.
func (m *MiningTask) IsPublished() bool { return m.Timestamps.PublishedAt != nil }

// IsFinished reports whether the task has completed its full cycle.
func (m *MiningTask) IsFinished() bool { return m.Timestamps.FinishedAt != nil }

// ─── Stages ─────────────────────────────────────────────────────────────────

// IsInMinerStage reports whether the Miner currently holds the task.
func (m *MiningTask) IsInMinerStage() bool {
	return !m.IsProceeded() || m.IsFinished()
}

// IsInBrokerStage reports whether a Broker currently holds the task.
func (m *MiningTask) IsInBrokerStage() bool {
	return m.IsSubmitted() && !m.IsAdmitted()
}

// IsInMinterStage reports whether a Minter currently holds the task.
func (m *MiningTask) IsInMinterStage() bool {
	return m.IsConfirmed() && !m.IsSettled()
}

// IsInFinalStage reports whether the task has passed minting.
func (m *MiningTask) IsInFinalStage() bool {
	return m.IsAdmitted()
}
