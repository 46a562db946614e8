package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// envelope is the body of every API response.
type envelope struct {
	Data  interface{} `json:"data,omitempty"`
	Error *errorInfo  `json:"error,omitempty"`
}

type errorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, envelope{Data: data})
}

func failure(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, envelope{Error: &errorInfo{Code: errorCode(status), Message: message}})
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusServiceUnavailable:
		return "UNAVAILABLE"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}
