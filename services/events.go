// Package services binds the event repository and the image store, applying
// ownership checks, date/time composition and image-file lifecycle rules.
package services

import (
	"errors"
	"log/slog"

	"eventsapi/models"
	"eventsapi/storage"
	"eventsapi/utils"

	"github.com/google/uuid"
)

// ErrUnauthorized is returned when the requester does not own the record.
var ErrUnauthorized = errors.New("not authorized")

// ValidationError rejects a request with a message safe to show the caller.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

func validationErr(msg string) error { return &ValidationError{Msg: msg} }

// ImagePayload is the three-state image part of a request: absent, present
// with bytes (attach/replace), or present empty (clear the current image).
type ImagePayload struct {
	Set         bool
	Data        []byte
	ContentType string
}

func (p ImagePayload) hasData() bool { return p.Set && len(p.Data) > 0 }
func (p ImagePayload) isClear() bool { return p.Set && len(p.Data) == 0 }

// EventInput carries the fields a create or update request explicitly
// supplies. Unset fields are left untouched on update.
type EventInput struct {
	Name        models.Field
	Description models.Field
	Date        models.Field
	Time        models.Field
	Location    models.Field
	Status      models.Field
	Cost        models.Field
	Image       ImagePayload
}

type EventService struct {
	repo   models.EventRepository
	images storage.ImageStore
	logger *slog.Logger
}

func NewEventService(repo models.EventRepository, images storage.ImageStore, logger *slog.Logger) *EventService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventService{repo: repo, images: images, logger: logger}
}

func (s *EventService) List(ownerID int64) ([]models.Event, error) {
	return s.repo.ListByOwner(ownerID)
}

// Create validates the input, composes the UTC timestamp, stages the image if
// one was supplied and persists the record. A blob staged for a create that
// later fails is always released before the error is returned.
func (s *EventService) Create(ownerID int64, in EventInput) (models.Event, error) {
	if in.Name.Value == "" {
		return models.Event{}, validationErr("Event name is required.")
	}
	if in.Location.Value == "" {
		return models.Event{}, validationErr("Event location is required.")
	}
	if in.Date.Value == "" {
		return models.Event{}, validationErr("Event date is required.")
	}

	hhmm := in.Time.Value
	if hhmm == "" {
		hhmm = "00:00"
	}
	dateTime, err := utils.ComposeDateTime(in.Date.Value, hhmm)
	if err != nil {
		return models.Event{}, validationErr("Invalid date or time format.")
	}

	status := models.StatusScheduled
	if in.Status.Value != "" {
		status, err = models.ParseStatus(in.Status.Value)
		if err != nil {
			return models.Event{}, validationErr("Invalid event status.")
		}
	}

	cost := "N/A"
	if in.Cost.Set {
		cost = in.Cost.Value
	}

	imageRef := ""
	if in.Image.hasData() {
		imageRef, err = s.stage(in.Image)
		if err != nil {
			return models.Event{}, err
		}
	}

	event := models.Event{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        in.Name.Value,
		Description: in.Description.Value,
		DateTime:    dateTime,
		Time:        hhmm,
		Location:    in.Location.Value,
		Status:      status,
		Cost:        cost,
		ImageRef:    imageRef,
	}

	if err := s.repo.Create(&event); err != nil {
		if imageRef != "" {
			s.images.Remove(imageRef)
		}
		return models.Event{}, err
	}
	return event, nil
}

// Update loads the record, rejects non-owners, applies only the supplied
// fields and handles the image lifecycle: a new payload replaces the current
// blob, an explicit empty payload clears it, absence leaves it alone. Any
// failure after a new blob was staged releases that blob.
func (s *EventService) Update(requesterID int64, id string, in EventInput) (models.Event, error) {
	existing, err := s.repo.GetByID(id)
	if err != nil {
		return models.Event{}, err
	}
	if existing.OwnerID != requesterID {
		return models.Event{}, ErrUnauthorized
	}

	var patch models.EventPatch
	if in.Name.Set {
		if in.Name.Value == "" {
			return models.Event{}, validationErr("Event name may not be empty.")
		}
		patch.Name = in.Name
	}
	if in.Location.Set {
		if in.Location.Value == "" {
			return models.Event{}, validationErr("Event location may not be empty.")
		}
		patch.Location = in.Location
	}
	if in.Status.Set && in.Status.Value != "" {
		if _, err := models.ParseStatus(in.Status.Value); err != nil {
			return models.Event{}, validationErr("Invalid event status.")
		}
		patch.Status = in.Status
	}
	if in.Description.Set {
		patch.Description = in.Description
	}
	if in.Cost.Set {
		patch.Cost = in.Cost
	}

	// Recompose the timestamp when either part changes; the stored value of
	// the other part is reused.
	if (in.Date.Set && in.Date.Value != "") || (in.Time.Set && in.Time.Value != "") {
		datePart := existing.DateTime.UTC().Format("2006-01-02")
		if in.Date.Set && in.Date.Value != "" {
			datePart = in.Date.Value
		}
		timePart := existing.Time
		if in.Time.Set && in.Time.Value != "" {
			timePart = in.Time.Value
			patch.Time = in.Time
		}
		patch.DateTime, err = utils.ComposeDateTime(datePart, timePart)
		if err != nil {
			return models.Event{}, validationErr("Invalid date or time format.")
		}
		patch.DateTimeSet = true
	}

	newRef := ""
	switch {
	case in.Image.hasData():
		newRef, err = s.stage(in.Image)
		if err != nil {
			return models.Event{}, err
		}
		patch.ImageRef = models.FieldValue(newRef)
	case in.Image.isClear():
		patch.ImageRef = models.FieldValue("")
	}

	updated, err := s.repo.UpdatePartial(id, patch)
	if err != nil {
		if newRef != "" {
			s.images.Remove(newRef)
		}
		return models.Event{}, err
	}

	// The previous blob is only released once the new state is persisted.
	if patch.ImageRef.Set && existing.ImageRef != "" && existing.ImageRef != newRef {
		s.images.Remove(existing.ImageRef)
	}
	return updated, nil
}

// Delete removes the record and releases its blob. A blob that cannot be
// removed never fails the delete.
func (s *EventService) Delete(requesterID int64, id string) error {
	existing, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if existing.OwnerID != requesterID {
		return ErrUnauthorized
	}

	if err := s.repo.Delete(id); err != nil {
		return err
	}
	if existing.ImageRef != "" {
		s.images.Remove(existing.ImageRef)
	}
	return nil
}

func (s *EventService) stage(p ImagePayload) (string, error) {
	ref, err := s.images.Save(p.Data, p.ContentType)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidImage) {
			return "", validationErr(err.Error())
		}
		s.logger.Error("failed to store image", "error", err)
		return "", err
	}
	return ref, nil
}
