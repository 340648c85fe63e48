package api

import (
	"github.com/gin-gonic/gin"

	"github.com/openepidata/graph-etl/store"
)

var (
	errorMessageMap = map[int64]string{
		999: "internal server error",

		1010: "invalid parameters",

		1100: store.ErrNoRollupData.Error(),
	}

	errorInternalServer = errorJSON(999)

	errorInvalidParameters = errorJSON(1010)

	errorNoRollupData = errorJSON(1100)
)

type ErrorResponse struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

// errorJSON converts an error code to a standardized error object
func errorJSON(code int64) ErrorResponse {
	var message string
	if msg, ok := errorMessageMap[code]; ok {
		message = msg
	} else {
		message = "unknown"
	}

	return ErrorResponse{
		Code:    code,
		Message: message,
	}
}

// abortWithEncoding aborts the request with an encoded error body, collecting
// the underlying errors onto the gin context for the logger middleware.
func abortWithEncoding(c *gin.Context, code int, obj ErrorResponse, errors ...error) {
	for _, err := range errors {
		c.Error(err)
	}
	c.JSON(code, obj)
	c.Abort()
}
