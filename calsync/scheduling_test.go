package calsync

import (
	"context"
	"testing"
	"time"

	"github.com/Pjt727/homeroom/calsync/providers/providertest"
)

func TestSchedulerRunOnce(t *testing.T) {
	h := newHarness(t, time.Second)
	h.store.addStudent(Student{ID: "a1", Name: "Alice", ParentID: "parent-a"}, algebra())
	h.store.addStudent(Student{ID: "b2", Name: "Bob", ParentID: "parent-b"}, biology())
	h.store.addStudent(Student{ID: "c3", Name: "Cy", ParentID: "parent-c"}, biology())
	h.provider.FailWith(func(op, target string) error {
		if op == providertest.OpCreate && target == "Cy" {
			return errBoom
		}
		return nil
	})

	s, err := NewScheduler(h.orch, h.store, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	synced, failed := s.RunOnce(context.Background())
	if synced != 2 || failed != 1 {
		t.Errorf("synced %d failed %d, want 2 and 1", synced, failed)
	}
	h.store.record(t, "parent-a", AllStudentsSubject)
	h.store.record(t, "parent-b", AllStudentsSubject)
}

func TestSchedulerDisabled(t *testing.T) {
	h := newHarness(t, time.Second)
	s, err := NewScheduler(h.orch, h.store, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.Enabled() {
		t.Error("empty spec should disable the scheduler")
	}
	s.Start(context.Background())
	select {
	case <-s.Stop().Done():
	case <-time.After(time.Second):
		t.Error("stopping a disabled scheduler should not block")
	}
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	h := newHarness(t, time.Second)
	if _, err := NewScheduler(h.orch, h.store, "every tuesday", nil); err == nil {
		t.Error("expected an invalid cron spec to fail")
	}
	s, err := NewScheduler(h.orch, h.store, "0 3 * * *", nil)
	if err != nil {
		t.Fatalf("valid spec rejected: %v", err)
	}
	if !s.Enabled() {
		t.Error("scheduler with a spec should be enabled")
	}
	s.Start(context.Background())
	<-s.Stop().Done()
}
