package i18n

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/syncwave/crm/internal/common/errorx"
)

// Success message IDs
const (
	SuccessDeleted          = "SuccessDeleted"
	SuccessPasswordChanged  = "SuccessPasswordChanged"
	SuccessDispatchStarted  = "SuccessDispatchStarted"
	SuccessDispatchStopped  = "SuccessDispatchStopped"
	SuccessMessageCancelled = "SuccessMessageCancelled"
	SuccessRetryScheduled   = "SuccessRetryScheduled"
	SuccessImportFinished   = "SuccessImportFinished"
)

// RespondWithError sends an appropriate HTTP error response for the given error
func RespondWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	e := errorx.As(err)
	if e == nil {
		e = errorx.Internal(err)
	}

	body := gin.H{
		"error": TranslateMessage(c, e.MessageID, e.Data),
		"code":  e.MessageID,
	}
	if e.Field != "" {
		body["field"] = e.Field
	}
	c.AbortWithStatusJSON(e.HTTPStatus(), body)
}

// RespondWithSuccess sends a success HTTP response with an internationalized message
func RespondWithSuccess(c *gin.Context, statusCode int, msgID string, data map[string]any, payload any) {
	response := gin.H{
		"message": TranslateMessage(c, msgID, data),
	}
	for k, v := range data {
		response[k] = v
	}

	switch p := payload.(type) {
	case nil:
	case gin.H:
		for k, v := range p {
			response[k] = v
		}
	case map[string]any:
		for k, v := range p {
			response[k] = v
		}
	default:
		response["data"] = payload
	}

	c.JSON(statusCode, response)
}

// RespondOK sends a success HTTP response with status code 200
func RespondOK(c *gin.Context, msgID string, data map[string]any, payload any) {
	RespondWithSuccess(c, http.StatusOK, msgID, data, payload)
}

// RespondAccepted sends a success HTTP response with status code 202
func RespondAccepted(c *gin.Context, msgID string, data map[string]any, payload any) {
	RespondWithSuccess(c, http.StatusAccepted, msgID, data, payload)
}
