package routes

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"eventsapi/models"
	"eventsapi/services"
	"eventsapi/storage"
)

/* -------------------- Events -------------------- */

// GET /events
func (d *deps) getEvents(c *gin.Context) {
	userId := c.GetInt64("userId")

	events, err := d.events.List(userId)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not fetch events. Try again later."})
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	c.JSON(http.StatusOK, events)
}

// POST /events
func (d *deps) createEvent(c *gin.Context) {
	userId := c.GetInt64("userId")

	in, err := eventInputFromForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Could not parse request data."})
		return
	}

	event, err := d.events.Create(userId, in)
	if err != nil {
		respondEventError(c, err)
		return
	}

	d.inv.PurgeOwnerList(context.Background(), userId)
	c.JSON(http.StatusCreated, event)
}

// PUT /events/:id
func (d *deps) updateEvent(c *gin.Context) {
	userId := c.GetInt64("userId")
	id := c.Param("id")

	in, err := eventInputFromForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Could not parse request data."})
		return
	}

	event, err := d.events.Update(userId, id, in)
	if err != nil {
		respondEventError(c, err)
		return
	}

	d.inv.PurgeOwnerList(context.Background(), userId)
	c.JSON(http.StatusOK, event)
}

// DELETE /events/:id
func (d *deps) deleteEvent(c *gin.Context) {
	userId := c.GetInt64("userId")
	id := c.Param("id")

	if err := d.events.Delete(userId, id); err != nil {
		respondEventError(c, err)
		return
	}

	d.inv.PurgeOwnerList(context.Background(), userId)
	c.JSON(http.StatusOK, gin.H{"message": "Event removed."})
}

// eventInputFromForm reads the multipart body into the three-state input the
// service expects: a form key that is absent stays unset, present-but-empty
// means an explicit clear. The image may arrive as a file part (attach) or as
// an empty text part (clear).
func eventInputFromForm(c *gin.Context) (services.EventInput, error) {
	var in services.EventInput

	if err := c.Request.ParseMultipartForm(storage.MaxImageSize + 1<<20); err != nil {
		return in, err
	}
	form := c.Request.MultipartForm

	field := func(name string) models.Field {
		vals, ok := form.Value[name]
		if !ok || len(vals) == 0 {
			return models.Field{}
		}
		return models.FieldValue(vals[0])
	}

	in.Name = field("name")
	in.Description = field("description")
	in.Date = field("date")
	in.Time = field("time")
	in.Location = field("location")
	in.Status = field("status")
	in.Cost = field("cost")

	if files := form.File["image"]; len(files) > 0 {
		f, err := files[0].Open()
		if err != nil {
			return in, err
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, storage.MaxImageSize+1))
		if err != nil {
			return in, err
		}
		in.Image = services.ImagePayload{
			Set:         true,
			Data:        data,
			ContentType: files[0].Header.Get("Content-Type"),
		}
	} else if img := field("image"); img.Set && img.Value == "" {
		in.Image = services.ImagePayload{Set: true}
	}

	return in, nil
}

// respondEventError maps service errors onto the HTTP contract. Internal
// detail never reaches the caller.
func respondEventError(c *gin.Context, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"message": ve.Msg})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized."})
	case errors.Is(err, models.ErrEventNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Event not found."})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error. Try again later."})
	}
}
