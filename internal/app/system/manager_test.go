package system

import (
	"context"
	"errors"
	"testing"
)

type recordingService struct {
	name     string
	startErr error
	events   *[]string
}

func (s *recordingService) Name() string { return s.name }

func (s *recordingService) Start(_ context.Context) error {
	*s.events = append(*s.events, "start:"+s.name)
	return s.startErr
}

func (s *recordingService) Stop(_ context.Context) error {
	*s.events = append(*s.events, "stop:"+s.name)
	return nil
}

func TestManager_StartStopOrder(t *testing.T) {
	m := NewManager()
	var events []string

	for _, name := range []string{"a", "b"} {
		if err := m.Register(&recordingService{name: name, events: &events}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	want := []string{"start:a", "start:b", "stop:b", "stop:a"}
	if len(events) != len(want) {
		t.Fatalf("events: %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("event %d: got %s, want %s", i, events[i], want[i])
		}
	}
}

func TestManager_StartFailureRollsBack(t *testing.T) {
	m := NewManager()
	var events []string

	if err := m.Register(&recordingService{name: "a", events: &events}); err != nil {
		t.Fatalf("register a: %v", err)
	}
	if err := m.Register(&recordingService{name: "b", startErr: errors.New("boom"), events: &events}); err != nil {
		t.Fatalf("register b: %v", err)
	}

	if err := m.Start(context.Background()); err == nil {
		t.Fatal("start should propagate failure")
	}

	want := []string{"start:a", "start:b", "stop:a"}
	if len(events) != len(want) {
		t.Fatalf("events: %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("event %d: got %s, want %s", i, events[i], want[i])
		}
	}
}

func TestManager_RegisterRules(t *testing.T) {
	m := NewManager()

	if err := m.Register(NoopService{ServiceName: "x"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Register(NoopService{ServiceName: "x"}); err == nil {
		t.Fatal("duplicate name should be rejected")
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Register(NoopService{ServiceName: "y"}); err == nil {
		t.Fatal("registration after start should be rejected")
	}
}
