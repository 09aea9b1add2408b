package main

import (
	"context"
	"fmt"
	"time"

	"github.com/example/eventform/internal/application"
	"github.com/example/eventform/internal/export"
	"github.com/example/eventform/internal/persistence"
)

// snapshotStoreAdapter maps the state container onto the slot repository.
type snapshotStoreAdapter struct {
	repo *persistence.Repository
}

func newSnapshotStoreAdapter(repo *persistence.Repository) *snapshotStoreAdapter {
	return &snapshotStoreAdapter{repo: repo}
}

func (a *snapshotStoreAdapter) LoadSnapshot(ctx context.Context) (application.Snapshot, error) {
	collections, err := a.repo.LoadCollections(ctx)
	if err != nil {
		return application.Snapshot{}, err
	}

	snapshot := application.Snapshot{
		Events:    make([]application.Event, 0, len(collections.Events)),
		Responses: make([]application.Response, 0, len(collections.Responses)),
		Keys:      make([]application.APIKey, 0, len(collections.Keys)),
	}
	for _, model := range collections.Events {
		snapshot.Events = append(snapshot.Events, toApplicationEvent(model))
	}
	for _, model := range collections.Responses {
		response, err := toApplicationResponse(model)
		if err != nil {
			return application.Snapshot{}, err
		}
		snapshot.Responses = append(snapshot.Responses, response)
	}
	for _, model := range collections.Keys {
		key, err := toApplicationKey(model)
		if err != nil {
			return application.Snapshot{}, err
		}
		snapshot.Keys = append(snapshot.Keys, key)
	}
	return snapshot, nil
}

func (a *snapshotStoreAdapter) SaveSnapshot(ctx context.Context, snapshot application.Snapshot) error {
	collections := persistence.Collections{
		Events:    make([]persistence.Event, 0, len(snapshot.Events)),
		Responses: make([]persistence.Response, 0, len(snapshot.Responses)),
		Keys:      make([]persistence.APIKey, 0, len(snapshot.Keys)),
	}
	for _, event := range snapshot.Events {
		collections.Events = append(collections.Events, toPersistenceEvent(event))
	}
	for _, response := range snapshot.Responses {
		collections.Responses = append(collections.Responses, toPersistenceResponse(response))
	}
	for _, key := range snapshot.Keys {
		collections.Keys = append(collections.Keys, toPersistenceKey(key))
	}
	return a.repo.SaveCollections(ctx, collections)
}

func toApplicationEvent(model persistence.Event) application.Event {
	return application.Event{
		ID:        model.ID,
		Name:      model.Name,
		StartDate: model.StartDate,
		EndDate:   model.EndDate,
		Location:  model.Location,
		Status:    application.EventStatus(model.Status),
		FormURL:   model.FormURL,
	}
}

func toPersistenceEvent(event application.Event) persistence.Event {
	return persistence.Event{
		ID:        event.ID,
		Name:      event.Name,
		StartDate: event.StartDate,
		EndDate:   event.EndDate,
		Location:  event.Location,
		Status:    string(event.Status),
		FormURL:   event.FormURL,
	}
}

func toApplicationResponse(model persistence.Response) (application.Response, error) {
	submitted, err := parseTimestamp(model.SubmittedAt)
	if err != nil {
		return application.Response{}, fmt.Errorf("%w: response %s submittedAt: %v", persistence.ErrCorruptSlot, model.ID, err)
	}
	return application.Response{
		ID:          model.ID,
		EventID:     model.EventID,
		EventName:   model.EventName,
		FullName:    model.FullName,
		Email:       model.Email,
		Phone:       model.Phone,
		Title:       model.Title,
		Company:     model.Company,
		Intents:     append([]string(nil), model.Intents...),
		SubmittedAt: submitted,
	}, nil
}

func toPersistenceResponse(response application.Response) persistence.Response {
	intents := append([]string{}, response.Intents...)
	return persistence.Response{
		ID:          response.ID,
		EventID:     response.EventID,
		EventName:   response.EventName,
		FullName:    response.FullName,
		Email:       response.Email,
		Phone:       response.Phone,
		Title:       response.Title,
		Company:     response.Company,
		Intents:     intents,
		SubmittedAt: formatTimestamp(response.SubmittedAt),
	}
}

func toApplicationKey(model persistence.APIKey) (application.APIKey, error) {
	created, err := parseTimestamp(model.CreatedAt)
	if err != nil {
		return application.APIKey{}, fmt.Errorf("%w: key %s createdAt: %v", persistence.ErrCorruptSlot, model.ID, err)
	}
	key := application.APIKey{
		ID:        model.ID,
		Key:       model.Key,
		Label:     model.Label,
		CreatedAt: created,
	}
	if model.LastUsed != nil {
		used, err := parseTimestamp(*model.LastUsed)
		if err != nil {
			return application.APIKey{}, fmt.Errorf("%w: key %s lastUsed: %v", persistence.ErrCorruptSlot, model.ID, err)
		}
		key.LastUsed = &used
	}
	return key, nil
}

func toPersistenceKey(key application.APIKey) persistence.APIKey {
	model := persistence.APIKey{
		ID:        key.ID,
		Key:       key.Key,
		Label:     key.Label,
		CreatedAt: formatTimestamp(key.CreatedAt),
	}
	if key.LastUsed != nil {
		used := formatTimestamp(*key.LastUsed)
		model.LastUsed = &used
	}
	return model
}

func formatTimestamp(at time.Time) string {
	return at.UTC().Format(export.TimestampLayout)
}

func parseTimestamp(value string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}
