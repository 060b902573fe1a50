package models

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoEventRepo struct {
	col *mongo.Collection
}

func NewMongoEventRepository(col *mongo.Collection) EventRepository {
	return &mongoEventRepo{col: col}
}

func (r *mongoEventRepo) Create(e *Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if e.Name == "" || e.Location == "" || e.DateTime.IsZero() {
		return errors.New("name, location and date are required")
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err := r.col.InsertOne(ctx, e)
	return err
}

func (r *mongoEventRepo) ListByOwner(ownerID int64) ([]Event, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "dateTime", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"ownerId": ownerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Event
	for cur.Next(ctx) {
		var e Event
		if err := cur.Decode(&e); err != nil {
			return nil, err
		}
		e.Normalize()
		out = append(out, e)
	}
	return out, cur.Err()
}

func (r *mongoEventRepo) GetByID(id string) (Event, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var e Event
	if err := r.col.FindOne(ctx, bson.M{"id": id}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Event{}, ErrEventNotFound
		}
		return Event{}, err
	}
	e.Normalize()
	return e, nil
}

// UpdatePartial applies only the fields the patch explicitly sets and returns
// the record as persisted. Field-level checks mirror Create: a supplied name
// or location may not be empty, a supplied status must be a known value.
func (r *mongoEventRepo) UpdatePartial(id string, p EventPatch) (Event, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	set := bson.M{}
	if p.Name.Set {
		if p.Name.Value == "" {
			return Event{}, errors.New("name may not be empty")
		}
		set["name"] = p.Name.Value
	}
	if p.Location.Set {
		if p.Location.Value == "" {
			return Event{}, errors.New("location may not be empty")
		}
		set["location"] = p.Location.Value
	}
	if p.Status.Set {
		st, err := ParseStatus(p.Status.Value)
		if err != nil {
			return Event{}, err
		}
		set["status"] = st
	}
	if p.Description.Set {
		set["description"] = p.Description.Value
	}
	if p.Cost.Set {
		set["cost"] = p.Cost.Value
	}
	if p.Time.Set {
		set["time"] = p.Time.Value
	}
	if p.DateTimeSet {
		set["dateTime"] = p.DateTime
	}
	if p.ImageRef.Set {
		set["imageRef"] = p.ImageRef.Value
	}
	set["updatedAt"] = time.Now().UTC().Truncate(time.Millisecond)

	after := options.After
	opts := options.FindOneAndUpdate().SetReturnDocument(after)
	var e Event
	err := r.col.FindOneAndUpdate(ctx, bson.M{"id": id}, bson.M{"$set": set}, opts).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Event{}, ErrEventNotFound
		}
		return Event{}, err
	}
	e.Normalize()
	return e, nil
}

func (r *mongoEventRepo) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrEventNotFound
	}
	return nil
}
