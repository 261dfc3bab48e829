package utils

import (
	"github.com/gin-gonic/gin"
)

type JSONResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func RespondJSON(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, JSONResponse{
		Status:  code >= 200 && code < 300,
		Message: message,
		Data:    data,
	})
}

// RespondError also mirrors the message into an "error" field so API clients
// that only look for {error: string} on 4xx/5xx keep working.
func RespondError(c *gin.Context, code int, err error) {
	c.JSON(code, gin.H{
		"status":  false,
		"message": err.Error(),
		"error":   err.Error(),
	})
}
