package models

import (
	"errors"
	"time"
)

// ErrEventNotFound is returned by repositories when no event matches the id.
var ErrEventNotFound = errors.New("event not found")

// Status is the lifecycle state of an event. Unknown values never pass
// through ParseStatus.
type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusPostponed Status = "Postponed"
	StatusCancelled Status = "Cancelled"
	StatusCompleted Status = "Completed"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusScheduled, StatusPostponed, StatusCancelled, StatusCompleted:
		return Status(s), nil
	}
	return "", errors.New("invalid status: " + s)
}

type Event struct {
	ID          string    `json:"id" bson:"id"`
	OwnerID     int64     `json:"ownerId" bson:"ownerId"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description" bson:"description"`
	DateTime    time.Time `json:"dateTime" bson:"dateTime"` // composed date + time, UTC
	Time        string    `json:"time" bson:"time"`         // HH:MM, kept for edit round-trip
	Location    string    `json:"location" bson:"location"`
	Status      Status    `json:"status" bson:"status"`
	Cost        string    `json:"cost" bson:"cost"`
	ImageRef    string    `json:"imageRef" bson:"imageRef"` // relative path under the upload prefix, "" = none
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Normalize fills defaults on legacy records that predate the status and time
// fields. Applied at the repository boundary so callers never see zero values.
func (e *Event) Normalize() {
	if e.Status == "" {
		e.Status = StatusScheduled
	}
	if e.Time == "" {
		e.Time = "00:00"
	}
}

// Field is a three-state optional string: not supplied, supplied empty
// (an explicit clear), or supplied with a value.
type Field struct {
	Set   bool
	Value string
}

func FieldValue(v string) Field { return Field{Set: true, Value: v} }

// EventPatch carries the subset of fields an update explicitly supplies.
// Fields left unset are untouched by UpdatePartial.
type EventPatch struct {
	Name        Field
	Description Field
	Location    Field
	Status      Field
	Cost        Field
	Time        Field
	ImageRef    Field

	DateTime    time.Time
	DateTimeSet bool
}

type EventRepository interface {
	Create(e *Event) error
	ListByOwner(ownerID int64) ([]Event, error)
	GetByID(id string) (Event, error)
	UpdatePartial(id string, p EventPatch) (Event, error)
	Delete(id string) error
}

type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserRepository interface {
	Create(u *User) error
	ValidateCredentials(email, plain string) (User, error)
	GetByID(id int64) (User, error)
}
