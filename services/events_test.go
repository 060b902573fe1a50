package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"eventsapi/models"
	"eventsapi/storage"
)

/* ---------- in-memory doubles ---------- */

type memEventRepo struct {
	items      map[string]models.Event
	failCreate bool
	failUpdate bool
}

func newMemEventRepo() *memEventRepo {
	return &memEventRepo{items: map[string]models.Event{}}
}

func (m *memEventRepo) Create(e *models.Event) error {
	if m.failCreate {
		return errors.New("boom")
	}
	if e.Name == "" || e.Location == "" || e.DateTime.IsZero() {
		return errors.New("name, location and date are required")
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	m.items[e.ID] = *e
	return nil
}

func (m *memEventRepo) ListByOwner(ownerID int64) ([]models.Event, error) {
	var out []models.Event
	for _, e := range m.items {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateTime.Before(out[j].DateTime) })
	return out, nil
}

func (m *memEventRepo) GetByID(id string) (models.Event, error) {
	e, ok := m.items[id]
	if !ok {
		return models.Event{}, models.ErrEventNotFound
	}
	return e, nil
}

func (m *memEventRepo) UpdatePartial(id string, p models.EventPatch) (models.Event, error) {
	if m.failUpdate {
		return models.Event{}, errors.New("boom")
	}
	e, ok := m.items[id]
	if !ok {
		return models.Event{}, models.ErrEventNotFound
	}
	if p.Name.Set {
		e.Name = p.Name.Value
	}
	if p.Description.Set {
		e.Description = p.Description.Value
	}
	if p.Location.Set {
		e.Location = p.Location.Value
	}
	if p.Status.Set {
		e.Status = models.Status(p.Status.Value)
	}
	if p.Cost.Set {
		e.Cost = p.Cost.Value
	}
	if p.Time.Set {
		e.Time = p.Time.Value
	}
	if p.DateTimeSet {
		e.DateTime = p.DateTime
	}
	if p.ImageRef.Set {
		e.ImageRef = p.ImageRef.Value
	}
	e.UpdatedAt = time.Now().UTC()
	m.items[id] = e
	return e, nil
}

func (m *memEventRepo) Delete(id string) error {
	if _, ok := m.items[id]; !ok {
		return models.ErrEventNotFound
	}
	delete(m.items, id)
	return nil
}

type fakeImageStore struct {
	blobs map[string][]byte
	seq   int
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{blobs: map[string][]byte{}}
}

func (f *fakeImageStore) Save(data []byte, contentType string) (string, error) {
	if !strings.HasPrefix(contentType, "image/") || len(data) == 0 || len(data) > storage.MaxImageSize {
		return "", storage.ErrInvalidImage
	}
	f.seq++
	ref := fmt.Sprintf("/uploads/img-%d", f.seq)
	f.blobs[ref] = data
	return ref, nil
}

func (f *fakeImageStore) Remove(ref string)         { delete(f.blobs, ref) }
func (f *fakeImageStore) Resolve(ref string) string { return ref }

func setup(t *testing.T) (*EventService, *memEventRepo, *fakeImageStore) {
	t.Helper()
	repo := newMemEventRepo()
	images := newFakeImageStore()
	return NewEventService(repo, images, nil), repo, images
}

func launchInput() EventInput {
	return EventInput{
		Name:     models.FieldValue("Launch"),
		Location: models.FieldValue("HQ"),
		Date:     models.FieldValue("2025-03-01"),
	}
}

func pngPayload() ImagePayload {
	return ImagePayload{Set: true, Data: []byte("png"), ContentType: "image/png"}
}

/* ---------- create ---------- */

func TestCreate_Defaults(t *testing.T) {
	svc, _, _ := setup(t)

	e, err := svc.Create(1, launchInput())
	if err != nil {
		t.Fatalf("create err: %v", err)
	}

	if e.Time != "00:00" {
		t.Fatalf("want time 00:00, got %q", e.Time)
	}
	want := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if !e.DateTime.Equal(want) {
		t.Fatalf("want %v got %v", want, e.DateTime)
	}
	if e.Status != models.StatusScheduled {
		t.Fatalf("want Scheduled got %q", e.Status)
	}
	if e.Cost != "N/A" {
		t.Fatalf("want N/A got %q", e.Cost)
	}
	if e.ID == "" || e.OwnerID != 1 {
		t.Fatalf("id/owner not assigned: %+v", e)
	}
}

func TestCreate_ExplicitEmptyCostIsKept(t *testing.T) {
	svc, _, _ := setup(t)

	in := launchInput()
	in.Cost = models.FieldValue("")
	e, err := svc.Create(1, in)
	if err != nil {
		t.Fatalf("create err: %v", err)
	}
	if e.Cost != "" {
		t.Fatalf("explicit empty cost must not default, got %q", e.Cost)
	}
}

func TestCreate_MissingRequiredFields(t *testing.T) {
	svc, repo, images := setup(t)

	in := launchInput()
	in.Location = models.Field{}
	in.Image = pngPayload()

	_, err := svc.Create(1, in)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if len(repo.items) != 0 {
		t.Fatal("no record should be created")
	}
	if len(images.blobs) != 0 {
		t.Fatal("no blob should survive a failed create")
	}
}

func TestCreate_BadDate(t *testing.T) {
	svc, _, _ := setup(t)

	in := launchInput()
	in.Date = models.FieldValue("03/01/2025")
	var ve *ValidationError
	if _, err := svc.Create(1, in); !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestCreate_UnknownStatusRejected(t *testing.T) {
	svc, _, _ := setup(t)

	in := launchInput()
	in.Status = models.FieldValue("Maybe")
	var ve *ValidationError
	if _, err := svc.Create(1, in); !errors.As(err, &ve) {
		t.Fatalf("unrecognized status must not pass through, got %v", err)
	}
}

func TestCreate_PersistFailureReleasesStagedBlob(t *testing.T) {
	svc, repo, images := setup(t)
	repo.failCreate = true

	in := launchInput()
	in.Image = pngPayload()

	if _, err := svc.Create(1, in); err == nil {
		t.Fatal("want error")
	}
	if len(images.blobs) != 0 {
		t.Fatalf("orphaned blob after failed create: %v", images.blobs)
	}
}

func TestCreate_NonImageUploadRejected(t *testing.T) {
	svc, _, images := setup(t)

	in := launchInput()
	in.Image = ImagePayload{Set: true, Data: []byte("exe"), ContentType: "application/octet-stream"}

	var ve *ValidationError
	if _, err := svc.Create(1, in); !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if len(images.blobs) != 0 {
		t.Fatal("nothing should be stored")
	}
}

/* ---------- update ---------- */

func TestUpdate_TimeOnlyMovesOnlyTimePortion(t *testing.T) {
	svc, _, _ := setup(t)
	created, err := svc.Create(1, launchInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(1, created.ID, EventInput{Time: models.FieldValue("14:30")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	want := time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC)
	if !updated.DateTime.Equal(want) {
		t.Fatalf("want %v got %v", want, updated.DateTime)
	}
	if updated.Name != "Launch" || updated.Location != "HQ" {
		t.Fatalf("unrelated fields changed: %+v", updated)
	}
}

func TestUpdate_DateWithoutTimeReusesStoredTime(t *testing.T) {
	svc, _, _ := setup(t)
	in := launchInput()
	in.Time = models.FieldValue("09:15")
	created, err := svc.Create(1, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(1, created.ID, EventInput{Date: models.FieldValue("2025-04-02")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	want := time.Date(2025, 4, 2, 9, 15, 0, 0, time.UTC)
	if !updated.DateTime.Equal(want) {
		t.Fatalf("stored time not reused: want %v got %v", want, updated.DateTime)
	}
	if updated.Time != "09:15" {
		t.Fatalf("time field changed: %q", updated.Time)
	}
}

func TestUpdate_OwnerMismatchLeavesRecordUntouched(t *testing.T) {
	svc, repo, _ := setup(t)
	created, err := svc.Create(1, launchInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Update(2, created.ID, EventInput{Name: models.FieldValue("Hijack")})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if repo.items[created.ID].Name != "Launch" {
		t.Fatal("record was mutated by a non-owner")
	}
}

func TestUpdate_EmptyNameRejectedNotCleared(t *testing.T) {
	svc, repo, _ := setup(t)
	created, _ := svc.Create(1, launchInput())

	_, err := svc.Update(1, created.ID, EventInput{Name: models.FieldValue("")})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if repo.items[created.ID].Name != "Launch" {
		t.Fatal("name must not be cleared")
	}
}

func TestUpdate_ClearDescriptionAndCost(t *testing.T) {
	svc, _, _ := setup(t)
	in := launchInput()
	in.Description = models.FieldValue("all hands")
	in.Cost = models.FieldValue("$10")
	created, _ := svc.Create(1, in)

	updated, err := svc.Update(1, created.ID, EventInput{
		Description: models.FieldValue(""),
		Cost:        models.FieldValue(""),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Description != "" || updated.Cost != "" {
		t.Fatalf("explicit empty should clear: %+v", updated)
	}
}

func TestUpdate_OmittedFieldsUntouched(t *testing.T) {
	svc, _, _ := setup(t)
	in := launchInput()
	in.Description = models.FieldValue("all hands")
	created, _ := svc.Create(1, in)

	updated, err := svc.Update(1, created.ID, EventInput{Name: models.FieldValue("Launch v2")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Description != "all hands" {
		t.Fatalf("omitted description changed: %q", updated.Description)
	}
	if !updated.DateTime.Equal(created.DateTime) {
		t.Fatal("date portion changed without a date in the request")
	}
}

func TestUpdate_Idempotent(t *testing.T) {
	svc, _, _ := setup(t)
	created, _ := svc.Create(1, launchInput())

	patch := EventInput{Name: models.FieldValue("Launch v2"), Cost: models.FieldValue("$5")}
	first, err := svc.Update(1, created.ID, patch)
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	second, err := svc.Update(1, created.ID, patch)
	if err != nil {
		t.Fatalf("second update: %v", err)
	}

	first.UpdatedAt = time.Time{}
	second.UpdatedAt = time.Time{}
	if first != second {
		t.Fatalf("identical patches diverged:\n%+v\n%+v", first, second)
	}
}

func TestUpdate_ReplaceImageReleasesOldBlob(t *testing.T) {
	svc, _, images := setup(t)
	in := launchInput()
	in.Image = pngPayload()
	created, _ := svc.Create(1, in)
	oldRef := created.ImageRef

	updated, err := svc.Update(1, created.ID, EventInput{
		Image: ImagePayload{Set: true, Data: []byte("png2"), ContentType: "image/png"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ImageRef == "" || updated.ImageRef == oldRef {
		t.Fatalf("image not replaced: %q", updated.ImageRef)
	}
	if _, ok := images.blobs[oldRef]; ok {
		t.Fatal("old blob should be released")
	}
	if _, ok := images.blobs[updated.ImageRef]; !ok {
		t.Fatal("new blob missing")
	}
}

func TestUpdate_ClearImage(t *testing.T) {
	svc, _, images := setup(t)
	in := launchInput()
	in.Image = pngPayload()
	created, _ := svc.Create(1, in)

	updated, err := svc.Update(1, created.ID, EventInput{Image: ImagePayload{Set: true}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ImageRef != "" {
		t.Fatalf("imageRef should be empty, got %q", updated.ImageRef)
	}
	if len(images.blobs) != 0 {
		t.Fatalf("old blob not removed: %v", images.blobs)
	}
}

func TestUpdate_AbsentImageUntouched(t *testing.T) {
	svc, _, images := setup(t)
	in := launchInput()
	in.Image = pngPayload()
	created, _ := svc.Create(1, in)

	updated, err := svc.Update(1, created.ID, EventInput{Name: models.FieldValue("Launch v2")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ImageRef != created.ImageRef {
		t.Fatalf("image should be untouched: %q vs %q", updated.ImageRef, created.ImageRef)
	}
	if _, ok := images.blobs[created.ImageRef]; !ok {
		t.Fatal("blob should still exist")
	}
}

func TestUpdate_PersistFailureReleasesNewBlobKeepsOld(t *testing.T) {
	svc, repo, images := setup(t)
	in := launchInput()
	in.Image = pngPayload()
	created, _ := svc.Create(1, in)

	repo.failUpdate = true
	_, err := svc.Update(1, created.ID, EventInput{
		Image: ImagePayload{Set: true, Data: []byte("png2"), ContentType: "image/png"},
	})
	if err == nil {
		t.Fatal("want error")
	}
	if len(images.blobs) != 1 {
		t.Fatalf("want exactly the old blob, got %v", images.blobs)
	}
	if _, ok := images.blobs[created.ImageRef]; !ok {
		t.Fatal("old blob must survive a failed update")
	}
}

func TestUpdate_BadDateReleasesNothingAndPersistsNothing(t *testing.T) {
	svc, repo, _ := setup(t)
	created, _ := svc.Create(1, launchInput())

	_, err := svc.Update(1, created.ID, EventInput{Date: models.FieldValue("garbage")})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if !repo.items[created.ID].DateTime.Equal(created.DateTime) {
		t.Fatal("record changed despite bad date")
	}
}

func TestUpdate_UnknownID(t *testing.T) {
	svc, _, _ := setup(t)
	if _, err := svc.Update(1, "nope", EventInput{}); !errors.Is(err, models.ErrEventNotFound) {
		t.Fatalf("want ErrEventNotFound, got %v", err)
	}
}

/* ---------- delete & list ---------- */

func TestDelete_ReleasesBlob(t *testing.T) {
	svc, repo, images := setup(t)
	in := launchInput()
	in.Image = pngPayload()
	created, _ := svc.Create(1, in)

	if err := svc.Delete(1, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(repo.items) != 0 {
		t.Fatal("record should be gone")
	}
	if len(images.blobs) != 0 {
		t.Fatal("blob should be released")
	}
}

func TestDelete_OwnerMismatch(t *testing.T) {
	svc, repo, _ := setup(t)
	created, _ := svc.Create(1, launchInput())

	if err := svc.Delete(2, created.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if _, ok := repo.items[created.ID]; !ok {
		t.Fatal("record should still be present")
	}
}

func TestList_OwnedOnlyAscending(t *testing.T) {
	svc, _, _ := setup(t)

	mk := func(owner int64, date string) {
		in := launchInput()
		in.Date = models.FieldValue(date)
		if _, err := svc.Create(owner, in); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	mk(1, "2025-05-01")
	mk(1, "2025-03-01")
	mk(2, "2025-01-01")

	events, err := svc.List(1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("want 2 owned events, got %d", len(events))
	}
	if !events[0].DateTime.Before(events[1].DateTime) {
		t.Fatal("not ascending by composed timestamp")
	}
}
