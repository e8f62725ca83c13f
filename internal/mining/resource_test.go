package mining

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/v4ex/minex/internal/domain"
	"github.com/v4ex/minex/internal/infra/schema"
)

// memStore is an in-memory domain.Store with write-failure injection.
type memStore struct {
	records map[string]*domain.MiningTask
	failPut bool
	puts    int
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*domain.MiningTask)}
}

func (s *memStore) Get(_ context.Context, key string) (*domain.MiningTask, error) {
	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return rec.Clone(), nil
}

func (s *memStore) Put(_ context.Context, key string, task *domain.MiningTask) error {
	if s.failPut {
		return errors.New("store offline")
	}
	s.records[key] = task.Clone()
	s.puts++
	return nil
}

var validWork = json.RawMessage(`{"proof":"deadbeef"}`)

func newTestResource(t *testing.T) (*Resource, *memStore) {
	t.Helper()
	store := newMemStore()
	res, err := Load(context.Background(), store, schema.NewService(), "miner-1")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	return res, store
}

// advance drives the resource through the named transitions, failing the
// test on the first one that does not succeed.
func advance(t *testing.T, res *Resource, steps ...string) {
	t.Helper()
	ctx := context.Background()
	for _, step := range steps {
		var ok bool
		var err error
		switch step {
		case "initialize":
			ok, err = res.Initialize(ctx)
		case "edit":
			ok, err = res.Edit(ctx, validWork)
		case "submit":
			ok, err = res.Submit(ctx)
		case "proceed":
			ok, err = res.Proceed(ctx)
		case "confirm":
			ok, err = res.Confirm(ctx)
		case "admit":
			ok, err = res.Admit(ctx)
		default:
			t.Fatalf("unknown step %q", step)
		}
		if err != nil {
			t.Fatalf("%s error: %v", step, err)
		}
		if !ok {
			t.Fatalf("%s returned false", step)
		}
	}
}

// ─── Miner Stage ────────────────────────────────────────────────────────────

func TestInitialize(t *testing.T) {
	res, store := newTestResource(t)

	advance(t, res, "initialize")

	task := res.Task()
	if task.ID == "" || task.Timestamps.InitializedAt == nil {
		t.Error("initialize should assign id and initializedAt together")
	}
	if !task.IsInitialized() {
		t.Error("task should be initialized")
	}
	if store.puts != 1 {
		t.Errorf("puts = %d, want 1", store.puts)
	}
}

func TestInitializeTwice(t *testing.T) {
	res, _ := newTestResource(t)
	advance(t, res, "initialize")

	id := res.Task().ID
	at := *res.Task().Timestamps.InitializedAt

	ok, err := res.Initialize(context.Background())
	if err != nil {
		t.Fatalf("second Initialize() error: %v", err)
	}
	if ok {
		t.Error("second Initialize() should return false")
	}
	if res.Task().ID != id || !res.Task().Timestamps.InitializedAt.Equal(at) {
		t.Error("failed Initialize() must leave id and initializedAt unchanged")
	}
}

func TestRevertInitialize(t *testing.T) {
	res, _ := newTestResource(t)
	advance(t, res, "initialize")

	ok, err := res.RevertInitialize(context.Background())
	if err != nil || !ok {
		t.Fatalf("RevertInitialize() = %v, %v", ok, err)
	}
	if res.Task().IsInitialized() {
		t.Error("reverted task should not be initialized")
	}
}

func TestRevertInitializeAfterEdit(t *testing.T) {
	res, _ := newTestResource(t)
	advance(t, res, "initialize", "edit")

	ok, err := res.RevertInitialize(context.Background())
	if err != nil {
		t.Fatalf("RevertInitialize() error: %v", err)
	}
	if ok {
		t.Error("RevertInitialize() should fail once work details exist")
	}
}

func TestEditBeforeInitialize(t *testing.T) {
	res, store := newTestResource(t)

	ok, err := res.Edit(context.Background(), validWork)
	if err != nil {
		t.Fatalf("Edit() error: %v", err)
	}
	if ok {
		t.Error("Edit() before Initialize() should return false")
	}
	if store.puts != 0 {
		t.Error("failed Edit() must not persist")
	}
}

func TestEditInvalidWork(t *testing.T) {
	res, _ := newTestResource(t)
	advance(t, res, "initialize")

	before := res.Task().Clone()

	ok, err := res.Edit(context.Background(), json.RawMessage(`[1,2,3]`))
	if err != nil {
		t.Fatalf("Edit() error: %v", err)
	}
	if ok {
		t.Error("Edit() with invalid work should return false")
	}
	if !reflect.DeepEqual(res.Task(), before) {
		t.Error("failed Edit() must leave the record exactly as before")
	}
}

func TestClearEdit(t *testing.T) {
	res, _ := newTestResource(t)
	advance(t, res, "initialize", "edit")

	ok, err := res.ClearEdit(context.Background())
	if err != nil || !ok {
		t.Fatalf("ClearEdit() = %v, %v", ok, err)
	}
	task := res.Task()
	if task.IsEdited() || task.Work != nil || task.Timestamps.EditedAt != nil {
		t.Error("ClearEdit() should remove work and editedAt")
	}
}

func TestClearEditAfterSubmit(t *testing.T) {
	res, _ := newTestResource(t)
	advance(t, res, "initialize", "edit", "submit")

	ok, _ := res.ClearEdit(context.Background())
	if ok {
		t.Error("ClearEdit() after Submit() should return false")
	}
}

func TestSubmitBeforeEdit(t *testing.T) {
	res, _ := newTestResource(t)
	advance(t, res, "initialize")

	ok, err := res.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if ok {
		t.Error("Submit() before Edit() should return false")
	}
	if res.Task().IsSubmitted() {
		t.Error("task must remain unsubmitted")
	}
}

func TestMinerLifecycle(t *testing.T) {
	res, _ := newTestResource(t)
	advance(t, res, "initialize", "edit", "submit")

	task := res.Task()
	if !task.IsInitialized() || !task.IsEdited() || !task.IsSubmitted() {
		t.Error("task should be initialized, edited, and submitted")
	}
	if !task.IsInBrokerStage() {
		t.Error("submitted task should be in the Broker stage")
	}
}

func TestRevertSubmit(t *testing.T) {
	res, _ := newTestResource(t)
	advance(t, res, "initialize", "edit", "submit")

	ok, err := res.RevertSubmit(context.Background())
	if err != nil || !ok {
		t.Fatalf("RevertSubmit() = %v, %v", ok, err)
	}
	if res.Task().IsSubmitted() {
		t.Error("reverted submission should not count as submitted")
	}
}

func TestRevertSubmitAfterProceed(t *testing.T) {
	res, _ := newTestResource(t)
	advance(t, res, "initialize", "edit", "submit", "proceed")

	ok, _ := res.RevertSubmit(context.Background())
	if ok {
		t.Error("RevertSubmit() after Proceed() should return false")
	}
}

func TestResubmitReplacesWork(t *testing.T) {
	res, _ := newTestResource(t)
	advance(t, res, "initialize", "edit", "submit")

	replacement := json.RawMessage(`{"proof":"cafebabe"}`)
	ok, err := res.Resubmit(context.Background(), replacement)
	if err != nil || !ok {
		t.Fatalf("Resubmit() = %v, %v", ok, err)
	}

	task := res.Task()
	if !task.IsSubmitted() {
		t.Error("resubmitted task should be submitted")
	}
	if string(task.Work) != string(replacement) {
		t.Errorf("work = %s, want %s", task.Work, replacement)
	}
}

func TestResubmitStopsAtInvalidWork(t *testing.T) {
	res, _ := newTestResource(t)
	advance(t, res, "initialize", "edit", "submit")

	ok, err := res.Resubmit(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Resubmit() error: %v", err)
	}
	if ok {
		t.Error("Resubmit() with invalid replacement should return false")
	}
	// The revert step persisted before the edit failed; the composite is
	// not transactional.
	if res.Task().IsSubmitted() {
		t.Error("task should be left withdrawn after the failed edit step")
	}
}

// ─── Broker Stage ───────────────────────────────────────────────────────────

func TestProceedClearsRejection(t *testing.T) {
	res, _ := newTestResource(t)
	advance(t, res, "initialize", "edit", "submit")

	ok, err := res.Reject(context.Background())
	if err != nil || !ok {
		t.Fatalf("Reject() = %v, %v", ok, err)
	}
	if !res.Task().IsRejected() {
		t.Error("task should be currently rejected")
	}

	ok, err = res.Proceed(context.Background())
	if err != nil || !ok {
		t.Fatalf("Proceed() = %v, %v", ok, err)
	}
	task := res.Task()
	if task.IsRejected() || task.Timestamps.RejectedAt != nil {
		t.Error("Proceed() should clear the rejection")
	}
	if !task.IsProceeded() {
		t.Error("task should be proceeded")
	}
}

func TestRejectClearsProceeding(t *testing.T) {
	res, _ := newTestResource(t)
	advance(t, res, "initialize", "edit", "submit", "proceed")

	ok, err := res.Reject(context.Background())
	if err != nil || !ok {
		t.Fatalf("Reject() = %v, %v", ok, err)
	}
	task := res.Task()
	if task.IsProceeded() || task.Timestamps.ProceededAt != nil {
		t.Error("Reject() should clear the proceeding")
	}
}

func TestConfirmTwice(t *testing.T) {
	res, _ := newTestResource(t)
	advance(t, res, "initialize", "edit", "submit", "proceed", "confirm")

	if !res.Task().IsConfirmed() {
		t.Fatal("task should be confirmed")
	}

	ok, err := res.Confirm(context.Background())
	if err != nil {
		t.Fatalf("second Confirm() error: %v", err)
	}
	if ok {
		t.Error("second Confirm() should return false")
	}
}

func TestConfirmRequiresProceed(t *testing.T) {
	res, _ := newTestResource(t)
	advance(t, res, "initialize", "edit", "submit")

	ok, _ := res.Confirm(context.Background())
	if ok {
		t.Error("Confirm() before Proceed() should return false")
	}
}

func TestRejectAfterConfirm(t *testing.T) {
	res, _ := newTestResource(t)
	advance(t, res, "initialize", "edit", "submit", "proceed", "confirm")

	ok, _ := res.Reject(context.Background())
	if ok {
		t.Error("Reject() after Confirm() should return false")
	}
}

// ─── Minter Stage ───────────────────────────────────────────────────────────

func TestAdmitRequiresMinterStage(t *testing.T) {
	res, _ := newTestResource(t)
	advance(t, res, "initialize", "edit", "submit", "proceed")

	ok, _ := res.Admit(context.Background())
	if ok {
		t.Error("Admit() before Confirm() should return false")
	}

	advance(t, res, "confirm", "admit")
	if !res.Task().IsAdmitted() || !res.Task().IsInFinalStage() {
		t.Error("admitted task should be in the Final stage")
	}
}

func TestUnsetClearsDecision(t *testing.T) {
	res, _ := newTestResource(t)
	advance(t, res, "initialize", "edit", "submit", "proceed", "confirm", "admit")

	ok, err := res.Unset(context.Background())
	if err != nil || !ok {
		t.Fatalf("Unset() = %v, %v", ok, err)
	}
	task := res.Task()
	if task.IsAdmitted() || task.Timestamps.DeniedAt != nil {
		t.Error("Unset() should clear the minting decision")
	}
}

// ─── Reset / Persistence ────────────────────────────────────────────────────

func TestReset(t *testing.T) {
	res, store := newTestResource(t)
	advance(t, res, "initialize", "edit", "submit")

	ok, err := res.Reset(context.Background())
	if err != nil || !ok {
		t.Fatalf("Reset() = %v, %v", ok, err)
	}

	task := res.Task()
	if task.Sub != "miner-1" {
		t.Errorf("Sub = %q, want %q", task.Sub, "miner-1")
	}
	if task.IsInitialized() || task.Work != nil || task.Timestamps.SubmittedAt != nil {
		t.Error("Reset() should clear everything but the subject")
	}

	stored := store.records[taskKey("miner-1")]
	if stored == nil || stored.ID != "" {
		t.Error("reset record should be persisted bare")
	}
}

func TestRollbackOnPutFailure(t *testing.T) {
	res, store := newTestResource(t)
	advance(t, res, "initialize", "edit")

	before := res.Task().Clone()
	store.failPut = true

	ok, err := res.Submit(context.Background())
	if err == nil {
		t.Fatal("Submit() with failing store should return an error")
	}
	if ok {
		t.Error("Submit() with failing store should not report success")
	}
	if !errors.Is(err, domain.ErrPersistence) {
		t.Errorf("error = %v, want wrapped ErrPersistence", err)
	}
	if !reflect.DeepEqual(res.Task(), before) {
		t.Error("in-memory record must equal its pre-call values after rollback")
	}
}

func TestLoadExistingRecord(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	res, err := Load(ctx, store, schema.NewService(), "miner-1")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	advance(t, res, "initialize", "edit")
	id := res.Task().ID

	reloaded, err := Load(ctx, store, schema.NewService(), "miner-1")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if reloaded.Task().ID != id {
		t.Errorf("reloaded ID = %q, want %q", reloaded.Task().ID, id)
	}
	if !reloaded.Task().IsEdited() {
		t.Error("reloaded task should still be edited")
	}
}
