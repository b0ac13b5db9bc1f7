package services

import (
	"context"
	"testing"
	"time"

	"github.com/topicrally/backend/internal/models"
	"go.uber.org/zap"
)

func TestScheduler_PastEndDateFiresImmediately(t *testing.T) {
	store := newFakeCampaignStore()
	proc := newFakeProcessor()
	s := NewScheduler(store, proc, zap.NewNop())
	defer s.Stop()

	s.Arm("overdue", time.Now().Add(-time.Hour))

	if !waitFor(time.Second, func() bool { return proc.count("overdue") == 1 }) {
		t.Fatal("processor should have been invoked immediately for a past end date")
	}
	if s.armed("overdue") {
		t.Error("no timer should remain registered for an immediately processed campaign")
	}
}

func TestScheduler_FiresAtEndDate(t *testing.T) {
	store := newFakeCampaignStore()
	proc := newFakeProcessor()
	s := NewScheduler(store, proc, zap.NewNop())
	defer s.Stop()

	s.Arm("future", time.Now().Add(80*time.Millisecond))

	time.Sleep(20 * time.Millisecond)
	if proc.count("future") != 0 {
		t.Fatal("timer must not fire before the end date")
	}

	if !waitFor(time.Second, func() bool { return proc.count("future") == 1 }) {
		t.Fatal("timer should have fired at the end date")
	}
	if !waitFor(time.Second, func() bool { return !s.armed("future") }) {
		t.Error("timer handle should be removed after firing")
	}
}

func TestScheduler_RearmReplacesTimer(t *testing.T) {
	store := newFakeCampaignStore()
	proc := newFakeProcessor()
	s := NewScheduler(store, proc, zap.NewNop())
	defer s.Stop()

	// First timer would fire at +40ms; re-arming to +250ms must cancel it.
	s.Arm("rearmed", time.Now().Add(40*time.Millisecond))
	s.Arm("rearmed", time.Now().Add(250*time.Millisecond))

	time.Sleep(120 * time.Millisecond)
	if n := proc.count("rearmed"); n != 0 {
		t.Fatalf("cancelled timer fired anyway, processed %d times", n)
	}
	if !s.armed("rearmed") {
		t.Fatal("replacement timer should still be registered")
	}

	if !waitFor(time.Second, func() bool { return proc.count("rearmed") == 1 }) {
		t.Fatal("replacement timer should fire")
	}
	if n := proc.count("rearmed"); n != 1 {
		t.Errorf("processed %d times, want exactly 1", n)
	}
}

func TestScheduler_RehydrateArmsPendingCampaigns(t *testing.T) {
	store := newFakeCampaignStore()
	now := time.Now()

	store.put(&models.Campaign{TopicID: "pending-1", TxID: "tx1", StartDate: now.Add(-time.Hour), EndDate: now.Add(100 * time.Millisecond)})
	store.put(&models.Campaign{TopicID: "pending-2", TxID: "tx2", StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour)})
	done := &models.Campaign{TopicID: "done", TxID: "tx3", StartDate: now.Add(-2 * time.Hour), EndDate: now.Add(time.Hour), RewardsDistributed: true}
	store.put(done)

	proc := newFakeProcessor()
	s := NewScheduler(store, proc, zap.NewNop())
	defer s.Stop()

	if err := s.Rehydrate(context.Background()); err != nil {
		t.Fatalf("rehydrate failed: %v", err)
	}

	if !s.armed("pending-1") || !s.armed("pending-2") {
		t.Error("all pending campaigns with future end dates should be armed")
	}
	if s.armed("done") {
		t.Error("distributed campaigns must not be rearmed")
	}

	// Simulated restart recovery: pending-1 fires at its original end date.
	time.Sleep(30 * time.Millisecond)
	if proc.count("pending-1") != 0 {
		t.Fatal("rehydrated timer fired early")
	}
	if !waitFor(time.Second, func() bool { return proc.count("pending-1") == 1 }) {
		t.Fatal("rehydrated timer should fire at the original end date")
	}
	if proc.count("pending-2") != 0 {
		t.Error("far-future campaign must not have fired")
	}
}

func TestScheduler_RehydrateQueryFailure(t *testing.T) {
	store := newFakeCampaignStore()
	store.listErr = errBoom
	s := NewScheduler(store, newFakeProcessor(), zap.NewNop())
	defer s.Stop()

	if err := s.Rehydrate(context.Background()); err == nil {
		t.Fatal("rehydrate should surface the query failure to be logged by the caller")
	}
}
