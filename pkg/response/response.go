package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the JSON body of every failed API call.
type ErrorBody struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// OK sends a 200 JSON response with data as the whole body.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string, details interface{}) {
	c.JSON(http.StatusBadRequest, ErrorBody{Error: err, Details: details})
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, ErrorBody{Error: err})
}

// Internal sends 500 with diagnostic details.
func Internal(c *gin.Context, err string, details interface{}) {
	c.JSON(http.StatusInternalServerError, ErrorBody{Error: err, Details: details})
}
