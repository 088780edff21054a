package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestMemoryStoreWeightsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := testRecord("m1", 3)
	if err := store.SaveWeights(ctx, input); err != nil {
		t.Fatalf("save weights: %v", err)
	}

	input.Weights[0] = 42
	output, ok, err := store.GetWeights(ctx, "m1")
	if err != nil {
		t.Fatalf("get weights: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted weights")
	}
	if output.Weights[0] == 42 {
		t.Fatal("store aliases the caller's weight slice")
	}
	output.Localities["RegionOf"] = 9
	again, _, _ := store.GetWeights(ctx, "m1")
	if again.Localities["RegionOf"] != 2 {
		t.Fatalf("store aliases returned localities: %+v", again.Localities)
	}
}

func TestMemoryStoreListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	base := testRecord("", 2).CreatedAt
	for id, offset := range map[string]time.Duration{"c": time.Hour, "a": 0, "b": time.Hour} {
		record := testRecord(id, 2)
		record.CreatedAt = base.Add(offset)
		if err := store.SaveWeights(ctx, record); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	summaries, err := store.ListWeights(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var ids []string
	for _, s := range summaries {
		ids = append(ids, s.ID)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, ids); diff != "" {
		t.Fatalf("list order mismatch (-want +got):\n%s", diff)
	}

	deleted, err := store.DeleteWeights(ctx, "b")
	if err != nil || !deleted {
		t.Fatalf("delete b: deleted=%v err=%v", deleted, err)
	}
	deleted, err = store.DeleteWeights(ctx, "b")
	if err != nil || deleted {
		t.Fatalf("second delete b: deleted=%v err=%v", deleted, err)
	}
	if _, ok, _ := store.GetWeights(ctx, "b"); ok {
		t.Fatal("expected b to be gone")
	}
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	if err := store.SaveWeights(context.Background(), testRecord("m1", 1)); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected not initialized, got: %v", err)
	}
}

func TestMemoryStoreRejectsInvalidRecord(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	record := testRecord("m1", 3)
	record.Weights = nil
	if err := store.SaveWeights(ctx, record); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected invalid record, got: %v", err)
	}
}
