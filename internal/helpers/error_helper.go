package helpers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RespondWithError renders the generic error page. Internal details stay
// in the logs; the message here is safe to show a purchaser.
func RespondWithError(c *gin.Context, statusCode int, customMessage string) {
	c.HTML(statusCode, "error.html", gin.H{
		"Status":  http.StatusText(statusCode),
		"Message": customMessage,
	})
	c.Abort()
}
