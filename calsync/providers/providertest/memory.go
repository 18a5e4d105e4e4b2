// Package providertest holds an in memory calendar provider for tests
package providertest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Pjt727/homeroom/calsync/providers"
)

const (
	OpCreate = "create"
	OpExists = "exists"
	OpClear  = "clear"
	OpPush   = "push"
)

type Call struct {
	Op string
	// calendar id, or the name for creates
	Target string
}

type Calendar struct {
	ID      string
	Name    string
	Sources []string
	Events  []providers.Event
}

// FailFunc decides whether a call should fail, returning nil lets it through
type FailFunc func(op, target string) error

// Memory is a providers.Provider safe for concurrent use
type Memory struct {
	mu        sync.Mutex
	calendars map[string]*Calendar
	calls     []Call
	nextID    int
	fail      FailFunc
	// Block, when not nil, is waited on by every call so tests can hold a sync open
	Block chan struct{}
}

func NewMemory() *Memory {
	return &Memory{calendars: map[string]*Calendar{}}
}

func (m *Memory) Name() string {
	return "memory"
}

func (m *Memory) FailWith(f FailFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = f
}

func (m *Memory) begin(ctx context.Context, op, target string) error {
	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	m.calls = append(m.calls, Call{Op: op, Target: target})
	fail := m.fail
	m.mu.Unlock()
	if fail != nil {
		if err := fail(op, target); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (m *Memory) CreateCalendar(ctx context.Context, name string, sources []string) (string, error) {
	if err := m.begin(ctx, OpCreate, name); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := fmt.Sprintf("cal-%d", m.nextID)
	m.calendars[id] = &Calendar{ID: id, Name: name, Sources: slices.Clone(sources)}
	return id, nil
}

func (m *Memory) CalendarExists(ctx context.Context, calendarID string) (bool, error) {
	if err := m.begin(ctx, OpExists, calendarID); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.calendars[calendarID]
	return ok, nil
}

func (m *Memory) ClearEvents(ctx context.Context, calendarID string) error {
	if err := m.begin(ctx, OpClear, calendarID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cal, ok := m.calendars[calendarID]
	if !ok {
		return fmt.Errorf("clear %s: %w", calendarID, providers.ErrNotFound)
	}
	cal.Events = nil
	return nil
}

func (m *Memory) PushEvent(ctx context.Context, calendarID string, ev providers.Event) (string, error) {
	if err := m.begin(ctx, OpPush, calendarID); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cal, ok := m.calendars[calendarID]
	if !ok {
		return "", fmt.Errorf("push to %s: %w", calendarID, providers.ErrNotFound)
	}
	cal.Events = append(cal.Events, ev)
	return fmt.Sprintf("%s-ev-%d", calendarID, len(cal.Events)), nil
}

// Delete removes a calendar as if the user deleted it from the provider
func (m *Memory) Delete(calendarID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.calendars, calendarID)
}

func (m *Memory) Calendar(calendarID string) (Calendar, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cal, ok := m.calendars[calendarID]
	if !ok {
		return Calendar{}, false
	}
	c := *cal
	c.Events = slices.Clone(cal.Events)
	c.Sources = slices.Clone(cal.Sources)
	return c, true
}

func (m *Memory) CalendarCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calendars)
}

func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

func (m *Memory) CountCalls(op string) int {
	n := 0
	for _, c := range m.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (m *Memory) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
