package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// getHello is a smoke check handler, it touches no backing services.
func (a *API) getHello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"hello": "notes"})
}
