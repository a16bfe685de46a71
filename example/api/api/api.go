package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pluvio/dbx/example/notes"
	"github.com/pluvio/dbx/httpserver/ginrouter"
)

type API struct {
	router *gin.Engine
	store  *notes.Store
}

type Options struct {
	Store *notes.Store
}

func New(ctx context.Context, opts Options) *API {
	r := ginrouter.Default(ctx, "api")
	a := &API{
		router: r,
		store:  opts.Store,
	}

	r.GET("/api/hello", a.getHello)

	r.POST("/api/notes", a.postNote)
	r.GET("/api/notes", a.getNotes)
	r.GET("/api/notes/:id", a.getNote)
	r.PATCH("/api/notes/:id", a.patchNote)
	r.DELETE("/api/notes/:id", a.deleteNote)

	return a
}

func (a *API) Handler() http.Handler {
	return a.router
}
