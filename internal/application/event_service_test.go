package application

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/example/eventform/internal/ingest"
)

type parserStub struct {
	records []ingest.Record
	err     error
}

func (p *parserStub) Parse(ctx context.Context, fileName string, data []byte) ([]ingest.Record, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.records, nil
}

func newEventService(t *testing.T, state *State, parser WorkbookParser) *EventService {
	t.Helper()
	urls, err := NewFormURLBuilder("https://forms.example.com/register")
	if err != nil {
		t.Fatalf("form url builder: %v", err)
	}
	return NewEventService(state, parser, NewIDClock(fixedClock()), urls, func() string { return "batch-1" })
}

func TestEventService_Ingest(t *testing.T) {
	t.Run("prepends one draft event per row", func(t *testing.T) {
		store := &snapshotStoreStub{loaded: Snapshot{Events: []Event{{ID: "evt_old_0", Name: "Old", Status: StatusLive}}}}
		state := newLoadedState(t, store)
		svc := newEventService(t, state, &parserStub{records: []ingest.Record{
			{Index: 0, Name: "Conf A", StartDate: "Mar 5, 2024", EndDate: "Mar 5, 2024", Location: "NYC"},
			{Index: 1, Name: "Conf B", StartDate: "N/A", EndDate: "N/A", Location: "Remote"},
		}})

		result, err := svc.Ingest(context.Background(), IngestParams{FileName: "events.xlsx", Data: []byte("x")})
		if err != nil {
			t.Fatalf("ingest: %v", err)
		}
		if result.BatchID != "batch-1" || len(result.Events) != 2 {
			t.Fatalf("unexpected result %+v", result)
		}

		events := state.Events()
		if len(events) != 3 {
			t.Fatalf("expected 3 events, got %d", len(events))
		}
		if events[0].Name != "Conf A" || events[1].Name != "Conf B" || events[2].Name != "Old" {
			t.Fatalf("expected new batch first, got %+v", events)
		}

		idPattern := regexp.MustCompile(`^evt_\d+_\d+$`)
		seen := map[string]bool{}
		for _, event := range events[:2] {
			if !idPattern.MatchString(event.ID) {
				t.Fatalf("unexpected id format %q", event.ID)
			}
			if seen[event.ID] {
				t.Fatalf("duplicate id %q", event.ID)
			}
			seen[event.ID] = true
			if event.Status != StatusDraft {
				t.Fatalf("expected Draft status, got %s", event.Status)
			}
			if event.FormURL != "https://forms.example.com/register?event="+event.ID {
				t.Fatalf("unexpected form url %q", event.FormURL)
			}
		}
		if events[1].StartDate != "N/A" || events[1].EndDate != "N/A" || events[1].Location != "Remote" {
			t.Fatalf("unexpected defaults %+v", events[1])
		}
		if store.saveCount() != 1 {
			t.Fatalf("expected a single commit for the batch, got %d saves", store.saveCount())
		}
	})

	t.Run("successive uploads in the same millisecond get distinct ids", func(t *testing.T) {
		state := newLoadedState(t, &snapshotStoreStub{})
		svc := newEventService(t, state, &parserStub{records: []ingest.Record{{Index: 0, Name: "A"}}})

		first, err := svc.Ingest(context.Background(), IngestParams{})
		if err != nil {
			t.Fatalf("first ingest: %v", err)
		}
		second, err := svc.Ingest(context.Background(), IngestParams{})
		if err != nil {
			t.Fatalf("second ingest: %v", err)
		}
		if first.Events[0].ID == second.Events[0].ID {
			t.Fatalf("expected distinct ids, both were %q", first.Events[0].ID)
		}
	})

	t.Run("empty sheet is a no-op", func(t *testing.T) {
		store := &snapshotStoreStub{}
		state := newLoadedState(t, store)
		svc := newEventService(t, state, &parserStub{})

		result, err := svc.Ingest(context.Background(), IngestParams{})
		if err != nil {
			t.Fatalf("ingest: %v", err)
		}
		if len(result.Events) != 0 || store.saveCount() != 0 {
			t.Fatalf("expected no change, got %+v and %d saves", result, store.saveCount())
		}
	})

	t.Run("unreadable upload", func(t *testing.T) {
		state := newLoadedState(t, &snapshotStoreStub{})
		svc := newEventService(t, state, &parserStub{err: ingest.ErrUnsupportedFormat})

		_, err := svc.Ingest(context.Background(), IngestParams{})
		if !errors.Is(err, ErrUnreadableUpload) {
			t.Fatalf("expected ErrUnreadableUpload, got %v", err)
		}
		if len(state.Events()) != 0 {
			t.Fatalf("expected no events")
		}
	})
}

func TestEventService_CycleStatus(t *testing.T) {
	store := &snapshotStoreStub{loaded: Snapshot{Events: []Event{{ID: "evt_1_0", Status: StatusDraft}}}}
	state := newLoadedState(t, store)
	svc := newEventService(t, state, nil)

	want := []EventStatus{StatusLive, StatusClosed, StatusDraft, StatusLive, StatusClosed, StatusDraft}
	for i, expected := range want {
		event, found, err := svc.CycleStatus(context.Background(), "evt_1_0")
		if err != nil || !found {
			t.Fatalf("cycle %d: found=%v err=%v", i, found, err)
		}
		if event.Status != expected {
			t.Fatalf("cycle %d: expected %s, got %s", i, expected, event.Status)
		}
	}

	saves := store.saveCount()
	_, found, err := svc.CycleStatus(context.Background(), "evt_missing")
	if err != nil || found {
		t.Fatalf("expected silent no-op for unknown id, found=%v err=%v", found, err)
	}
	if store.saveCount() != saves {
		t.Fatalf("expected unknown id to skip persistence")
	}
}

func TestEventService_SetBulkStatus(t *testing.T) {
	state := newLoadedState(t, &snapshotStoreStub{loaded: Snapshot{Events: []Event{
		{ID: "a", Status: StatusDraft},
		{ID: "b", Status: StatusDraft},
		{ID: "c", Status: StatusClosed},
	}}})
	svc := newEventService(t, state, nil)

	selection := NewSelection("a", "c", "missing")
	updated, err := svc.SetBulkStatus(context.Background(), selection, StatusLive)
	if err != nil {
		t.Fatalf("set bulk status: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 updates, got %d", updated)
	}
	if selection.Len() != 0 {
		t.Fatalf("expected selection to be cleared")
	}
	events := state.Events()
	if events[0].Status != StatusLive || events[1].Status != StatusDraft || events[2].Status != StatusLive {
		t.Fatalf("unexpected statuses %+v", events)
	}

	if _, err := svc.SetBulkStatus(context.Background(), NewSelection("a"), EventStatus("Archived")); err == nil {
		t.Fatalf("expected validation error for unknown status")
	}
}

func TestEventService_DeleteSelected(t *testing.T) {
	seed := func() Snapshot {
		return Snapshot{
			Events:    []Event{{ID: "a"}, {ID: "b"}},
			Responses: []Response{{ID: "resp_1", EventID: "a"}, {ID: "resp_2", EventID: "a"}},
		}
	}

	t.Run("requires confirmation", func(t *testing.T) {
		state := newLoadedState(t, &snapshotStoreStub{loaded: seed()})
		svc := newEventService(t, state, nil)

		selection := NewSelection("a")
		_, err := svc.DeleteSelected(context.Background(), DeleteEventsParams{Selection: selection})
		if !errors.Is(err, ErrConfirmationRequired) {
			t.Fatalf("expected ErrConfirmationRequired, got %v", err)
		}
		if len(state.Events()) != 2 || selection.Len() != 1 {
			t.Fatalf("expected declined delete to leave state and selection untouched")
		}
	})

	t.Run("empty selection is a no-op", func(t *testing.T) {
		store := &snapshotStoreStub{loaded: seed()}
		state := newLoadedState(t, store)
		svc := newEventService(t, state, nil)

		removed, err := svc.DeleteSelected(context.Background(), DeleteEventsParams{Selection: NewSelection()})
		if err != nil || removed != 0 || store.saveCount() != 0 {
			t.Fatalf("expected no-op, removed=%d err=%v saves=%d", removed, err, store.saveCount())
		}
	})

	t.Run("keeps orphaned responses", func(t *testing.T) {
		state := newLoadedState(t, &snapshotStoreStub{loaded: seed()})
		svc := newEventService(t, state, nil)
		responses := NewResponseService(state, nil, fixedClock())

		selection := NewSelection("a")
		removed, err := svc.DeleteSelected(context.Background(), DeleteEventsParams{Selection: selection, Confirmed: true})
		if err != nil || removed != 1 {
			t.Fatalf("delete: removed=%d err=%v", removed, err)
		}
		if selection.Len() != 0 {
			t.Fatalf("expected selection to be cleared")
		}
		if events := state.Events(); len(events) != 1 || events[0].ID != "b" {
			t.Fatalf("unexpected events %+v", events)
		}
		count, err := responses.CountForEvent(context.Background(), "a")
		if err != nil || count != 2 {
			t.Fatalf("expected orphaned responses to be counted, got %d err=%v", count, err)
		}
	})
}

func TestEventService_ListEvents(t *testing.T) {
	state := newLoadedState(t, &snapshotStoreStub{loaded: Snapshot{
		Events:    []Event{{ID: "a", Status: StatusLive}, {ID: "b", Status: StatusDraft}},
		Responses: []Response{{EventID: "b"}, {EventID: "a"}, {EventID: "b"}, {EventID: "gone"}},
	}})
	svc := newEventService(t, state, nil)

	summaries, err := svc.ListEvents(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if summaries[0].ResponseCount != 1 || summaries[1].ResponseCount != 2 {
		t.Fatalf("unexpected counts %+v", summaries)
	}

	live, err := svc.ListByStatus(context.Background(), StatusLive)
	if err != nil || len(live) != 1 || live[0].ID != "a" {
		t.Fatalf("unexpected live events %+v err=%v", live, err)
	}

	if _, err := svc.GetEvent(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
