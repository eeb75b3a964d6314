package calendar

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// fakeClient is an in-memory Client keyed by calendar and event id.
type fakeClient struct {
	mu       sync.Mutex
	creator  string
	nextID   int
	events   map[string]map[string]Event
	grants   map[string][]string
	listErr  error
	grantErr map[string]error
	delErr   map[string]error
	calls    []string
}

func newFakeClient(creator string) *fakeClient {
	return &fakeClient{
		creator:  creator,
		events:   map[string]map[string]Event{},
		grants:   map[string][]string{},
		grantErr: map[string]error{},
		delErr:   map[string]error{},
	}
}

func (f *fakeClient) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

// put stores an event as if a user had created it directly in the calendar.
func (f *fakeClient) put(calendarID string, event Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.events[calendarID] == nil {
		f.events[calendarID] = map[string]Event{}
	}
	f.events[calendarID][event.ID] = event
}

func (f *fakeClient) ListEvents(_ context.Context, calendarID string, timeMin time.Time) ([]Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list %s", calendarID)
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []Event
	for _, e := range f.events[calendarID] {
		if e.End.After(timeMin) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeClient) GetEvent(_ context.Context, calendarID, eventID string) (Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("get %s/%s", calendarID, eventID)
	e, ok := f.events[calendarID][eventID]
	if !ok {
		return Event{}, ErrEventNotFound
	}
	return e, nil
}

func (f *fakeClient) InsertEvent(_ context.Context, calendarID string, event Event) (Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	event.ID = fmt.Sprintf("evt-%d", f.nextID)
	event.CreatorEmail = f.creator
	if f.events[calendarID] == nil {
		f.events[calendarID] = map[string]Event{}
	}
	f.events[calendarID][event.ID] = event
	f.record("insert %s/%s", calendarID, event.ID)
	return event, nil
}

func (f *fakeClient) UpdateEvent(_ context.Context, calendarID string, event Event) (Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("update %s/%s", calendarID, event.ID)
	prev, ok := f.events[calendarID][event.ID]
	if !ok {
		return Event{}, ErrEventNotFound
	}
	event.CreatorEmail = prev.CreatorEmail
	f.events[calendarID][event.ID] = event
	return event, nil
}

func (f *fakeClient) DeleteEvent(_ context.Context, calendarID, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete %s/%s", calendarID, eventID)
	if err := f.delErr[calendarID]; err != nil {
		return err
	}
	if _, ok := f.events[calendarID][eventID]; !ok {
		return ErrEventNotFound
	}
	delete(f.events[calendarID], eventID)
	return nil
}

func (f *fakeClient) GrantAccess(_ context.Context, calendarID, email, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("grant %s %s %s", calendarID, email, role)
	if err := f.grantErr[calendarID]; err != nil {
		return err
	}
	f.grants[calendarID] = append(f.grants[calendarID], email)
	return nil
}

func (f *fakeClient) RevokeAccess(_ context.Context, calendarID, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("revoke %s %s", calendarID, email)
	for i, granted := range f.grants[calendarID] {
		if granted == email {
			f.grants[calendarID] = append(f.grants[calendarID][:i], f.grants[calendarID][i+1:]...)
			return nil
		}
	}
	return ErrAccessRuleNotFound
}

func (f *fakeClient) count(calendarID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events[calendarID])
}
