package serviceutils

import (
	"github.com/labstack/echo/v4"
	"github.com/locvowork/employee_records/apigateway/internal/logger"
)

// MessageResponse is the acknowledgment body of a write.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ResponseSuccess writes data as JSON, or a {"message"} acknowledgment when
// data is nil.
func ResponseSuccess(c echo.Context, status int, message string, data interface{}) error {
	if data == nil {
		return c.JSON(status, MessageResponse{Message: message})
	}
	return c.JSON(status, data)
}

// ResponseError writes {"detail": message}. err is logged, never returned
// to the client.
func ResponseError(c echo.Context, status int, message string, err error) error {
	ctx := c.Request().Context()
	if status >= 500 {
		logger.ErrorLog(ctx, "%s: %v", message, err)
	} else if err != nil {
		logger.DebugLog(ctx, "%s: %v", message, err)
	}
	return c.JSON(status, ErrorResponse{Detail: message})
}
