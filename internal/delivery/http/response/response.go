package response

import (
	"github.com/gin-gonic/gin"
)

// requestIDKey mirrors middleware.RequestIDKey; importing middleware here
// would create a cycle.
const requestIDKey = "RequestID"

// Response is the JSON envelope of every API reply. Error carries
// client-safe details only, such as per-field messages.
type Response struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     interface{} `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// Success sends a success response
func Success(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Response{
		Success:   true,
		Message:   message,
		Data:      data,
		RequestID: c.GetString(requestIDKey),
	})
}

// Error sends an error response
func Error(c *gin.Context, code int, message string, details interface{}) {
	c.JSON(code, Response{
		Success:   false,
		Message:   message,
		Error:     details,
		RequestID: c.GetString(requestIDKey),
	})
}
