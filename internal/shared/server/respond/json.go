package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// Created writes a 201 Created JSON response. Used by the handlers that mint
// new resources (doc requests, uploads, notes).
func Created(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusCreated, payload)
}
