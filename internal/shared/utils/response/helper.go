package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Success:    status == StatusSuccess,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// OK writes a 200 success envelope.
func OK(c *gin.Context, message string, data interface{}) {
	RespondJSON(c, StatusSuccess, http.StatusOK, message, data, nil)
}

// Created writes a 201 success envelope.
func Created(c *gin.Context, message string, data interface{}) {
	RespondJSON(c, StatusSuccess, http.StatusCreated, message, data, nil)
}

// Error writes an error envelope and aborts the handler chain.
func Error(c *gin.Context, code int, message string, errors interface{}) {
	RespondJSON(c, StatusError, code, message, nil, errors)
	c.Abort()
}
