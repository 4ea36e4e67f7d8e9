package handlers

import (
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}
