package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/eventform/internal/ingest"
)

// WorkbookParser turns an uploaded spreadsheet into normalized rows.
type WorkbookParser interface {
	Parse(ctx context.Context, fileName string, data []byte) ([]ingest.Record, error)
}

// IngestParams carries an uploaded spreadsheet.
type IngestParams struct {
	FileName string
	Data     []byte
}

// IngestResult reports the events created by one upload.
type IngestResult struct {
	BatchID string
	Events  []Event
}

// EventService owns the event commands: ingestion, status changes and deletion.
type EventService struct {
	state   *State
	parser  WorkbookParser
	clock   *IDClock
	urls    FormURLBuilder
	batchID func() string
	logger  *slog.Logger
}

// NewEventService constructs an event service with the provided dependencies.
func NewEventService(state *State, parser WorkbookParser, clock *IDClock, urls FormURLBuilder, batchID func() string) *EventService {
	return NewEventServiceWithLogger(state, parser, clock, urls, batchID, nil)
}

// NewEventServiceWithLogger constructs an event service with a specified logger.
func NewEventServiceWithLogger(state *State, parser WorkbookParser, clock *IDClock, urls FormURLBuilder, batchID func() string, logger *slog.Logger) *EventService {
	if clock == nil {
		clock = NewIDClock(nil)
	}
	if batchID == nil {
		batchID = func() string { return "" }
	}
	return &EventService{state: state, parser: parser, clock: clock, urls: urls, batchID: batchID, logger: defaultLogger(logger)}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// Ingest parses an upload and prepends one Draft event per data row as a
// single batch. An upload without data rows changes nothing.
func (s *EventService) Ingest(ctx context.Context, params IngestParams) (result IngestResult, err error) {
	if s == nil || s.state == nil {
		err = fmt.Errorf("EventService is not configured")
		return
	}
	if s.parser == nil {
		err = fmt.Errorf("workbook parser not configured")
		return
	}

	result.BatchID = s.batchID()
	logger := s.loggerWith(ctx, "Ingest",
		"batch_id", result.BatchID,
		"file_name", params.FileName,
		"bytes", len(params.Data),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to ingest events", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "events ingested", "events", len(result.Events))
	}()

	records, parseErr := s.parser.Parse(ctx, params.FileName, params.Data)
	if parseErr != nil {
		err = fmt.Errorf("%w: %v", ErrUnreadableUpload, parseErr)
		return
	}
	if len(records) == 0 {
		return
	}

	stamp := s.clock.Stamp()
	created := make([]Event, 0, len(records))
	for _, record := range records {
		id := EventID(stamp, record.Index)
		created = append(created, Event{
			ID:        id,
			Name:      record.Name,
			StartDate: record.StartDate,
			EndDate:   record.EndDate,
			Location:  record.Location,
			Status:    StatusDraft,
			FormURL:   s.urls.FormURL(id),
		})
	}

	err = s.state.commit(ctx, func(next *Snapshot) change {
		next.Events = append(cloneEvents(created), next.Events...)
		return changeEvents
	})
	if err != nil {
		return
	}
	result.Events = created
	return
}

// CycleStatus advances one event through Draft, Live and Closed. Unknown ids
// are a silent no-op and report false.
func (s *EventService) CycleStatus(ctx context.Context, eventID string) (event Event, found bool, err error) {
	if s == nil || s.state == nil {
		err = fmt.Errorf("EventService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "CycleStatus", "event_id", eventID)
	defer func() {
		switch {
		case err != nil:
			logger.ErrorContext(ctx, "failed to cycle event status", "error", err, "error_kind", ErrorKind(err))
		case !found:
			logger.DebugContext(ctx, "event not found; status unchanged")
		default:
			logger.InfoContext(ctx, "event status cycled", "status", string(event.Status))
		}
	}()

	err = s.state.commit(ctx, func(next *Snapshot) change {
		for i := range next.Events {
			if next.Events[i].ID != eventID {
				continue
			}
			next.Events[i].Status = next.Events[i].Status.Next()
			event = next.Events[i]
			found = true
			return changeEvents
		}
		return 0
	})
	if err != nil {
		found = false
		event = Event{}
	}
	return
}

// SetBulkStatus assigns status to every selected event in one commit and
// clears the selection afterwards.
func (s *EventService) SetBulkStatus(ctx context.Context, selection *Selection, status EventStatus) (updated int, err error) {
	if s == nil || s.state == nil {
		err = fmt.Errorf("EventService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "SetBulkStatus",
		"status", string(status),
		"selected", selection.Len(),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to set event status", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event status set", "updated", updated)
	}()

	if !status.Valid() {
		vErr := &ValidationError{}
		vErr.add("status", fmt.Sprintf("unknown status %q", status))
		err = vErr
		return
	}
	if selection.Len() == 0 {
		return
	}

	err = s.state.commit(ctx, func(next *Snapshot) change {
		for i := range next.Events {
			if selection.Has(next.Events[i].ID) {
				next.Events[i].Status = status
				updated++
			}
		}
		if updated == 0 {
			return 0
		}
		return changeEvents
	})
	if err != nil {
		updated = 0
		return
	}
	selection.Clear()
	return
}

// DeleteSelected removes every selected event once the caller confirmed the
// destructive action. Responses referencing the removed events are kept.
func (s *EventService) DeleteSelected(ctx context.Context, params DeleteEventsParams) (removed int, err error) {
	if s == nil || s.state == nil {
		err = fmt.Errorf("EventService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "DeleteSelected", "selected", params.Selection.Len())
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete events", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "events deleted", "removed", removed)
	}()

	if params.Selection.Len() == 0 {
		return
	}
	if !params.Confirmed {
		err = ErrConfirmationRequired
		return
	}

	err = s.state.commit(ctx, func(next *Snapshot) change {
		kept := next.Events[:0]
		for _, event := range next.Events {
			if params.Selection.Has(event.ID) {
				removed++
				continue
			}
			kept = append(kept, event)
		}
		if removed == 0 {
			return 0
		}
		next.Events = kept
		return changeEvents
	})
	if err != nil {
		removed = 0
		return
	}
	params.Selection.Clear()
	return
}

// GetEvent returns the event with the given id.
func (s *EventService) GetEvent(ctx context.Context, eventID string) (Event, error) {
	if s == nil || s.state == nil {
		return Event{}, fmt.Errorf("EventService is not configured")
	}
	event, ok := s.state.findEvent(eventID)
	if !ok {
		return Event{}, ErrNotFound
	}
	return event, nil
}

// ListEvents returns every event, newest batch first, with its live response count.
func (s *EventService) ListEvents(ctx context.Context) ([]EventSummary, error) {
	if s == nil || s.state == nil {
		return nil, fmt.Errorf("EventService is not configured")
	}
	snapshot := s.state.Snapshot()
	counts := countByEvent(snapshot.Responses)

	summaries := make([]EventSummary, 0, len(snapshot.Events))
	for _, event := range snapshot.Events {
		summaries = append(summaries, EventSummary{Event: event, ResponseCount: counts[event.ID]})
	}
	s.loggerWith(ctx, "ListEvents").DebugContext(ctx, "events listed", "count", len(summaries))
	return summaries, nil
}

// ListByStatus returns the events currently in status.
func (s *EventService) ListByStatus(ctx context.Context, status EventStatus) ([]Event, error) {
	if s == nil || s.state == nil {
		return nil, fmt.Errorf("EventService is not configured")
	}
	var out []Event
	for _, event := range s.state.Events() {
		if event.Status == status {
			out = append(out, event)
		}
	}
	return out, nil
}

func countByEvent(responses []Response) map[string]int {
	counts := make(map[string]int, len(responses))
	for _, response := range responses {
		counts[response.EventID]++
	}
	return counts
}
