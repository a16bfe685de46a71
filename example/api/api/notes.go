package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pluvio/dbx/example/notes"
)

type noteResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *API) postNote(c *gin.Context) {
	type request struct {
		Title string `json:"title" binding:"required"`
		Body  string `json:"body"`
	}

	ctx := c.Request.Context()

	var req request
	err := c.BindJSON(&req)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{})
		return
	}

	note, err := a.store.Add(ctx, notes.ToAdd{
		Title: req.Title,
		Body:  req.Body,
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{})
		return
	}

	c.JSON(http.StatusOK, noteResponse(*note))
}

func (a *API) getNote(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{})
		return
	}

	note, err := a.store.ByID(ctx, id)
	switch {
	case errors.Is(err, notes.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{})
		return
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{})
		return
	}

	c.JSON(http.StatusOK, noteResponse(*note))
}

func (a *API) getNotes(c *gin.Context) {
	ctx := c.Request.Context()

	list, err := a.store.List(ctx, notes.ListQuery{
		TitleContains: c.Query("title"),
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{})
		return
	}

	out := make([]noteResponse, len(list))
	for i, n := range list {
		out[i] = noteResponse(n)
	}
	c.JSON(http.StatusOK, gin.H{"notes": out})
}

func (a *API) patchNote(c *gin.Context) {
	type request struct {
		Title *string `json:"title"`
		Body  *string `json:"body"`
	}

	ctx := c.Request.Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{})
		return
	}

	var req request
	if err := c.BindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{})
		return
	}

	note, err := a.store.Update(ctx, id, notes.ToUpdate{
		Title: req.Title,
		Body:  req.Body,
	})
	switch {
	case errors.Is(err, notes.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{})
		return
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{})
		return
	}

	c.JSON(http.StatusOK, noteResponse(*note))
}

func (a *API) deleteNote(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{})
		return
	}

	err = a.store.Delete(ctx, id)
	switch {
	case errors.Is(err, notes.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{})
		return
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{})
		return
	}

	c.Status(http.StatusNoContent)
}
