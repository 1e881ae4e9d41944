package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"churchclerk/internal/core"
	"churchclerk/internal/records/memory"
)

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, core.Activity) error {
	return errors.New("broker down")
}

func TestEmitterWritesToStore(t *testing.T) {
	store := memory.New()
	e := NewEmitter(NewStoreRecorder(store), nil)
	e.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	ctx := WithActor(context.Background(), "clerk")
	e.Emit(ctx, core.ActivityPickedUp, "cert-1", "marked picked up")

	got, _ := store.ListActivity(ctx, 10)
	if len(got) != 1 {
		t.Fatalf("expected one activity, got %d", len(got))
	}
	if got[0].Actor != "clerk" || got[0].RecordID != "cert-1" || got[0].Kind != core.ActivityPickedUp {
		t.Fatalf("unexpected activity: %+v", got[0])
	}
}

func TestEmitterSwallowsPublishErrors(t *testing.T) {
	e := NewEmitter(failingPublisher{}, nil)
	e.Emit(context.Background(), core.ActivityReportGenerated, "", "pdf")

	var nilEmitter *Emitter
	nilEmitter.Emit(context.Background(), core.ActivityReportGenerated, "", "pdf")
}

func TestActorDefaultsToSystem(t *testing.T) {
	if got := ActorFromContext(context.Background()); got != "system" {
		t.Fatalf("actor = %q", got)
	}
}
