package response

import "github.com/gin-gonic/gin"

// FieldError is one entry of a validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ErrorBody is the shape of every non-2xx JSON response.
type ErrorBody struct {
	Code    int          `json:"code"`
	Msg     string       `json:"msg"`
	Details []FieldError `json:"details,omitempty"`
}

// Error builds an error body; an empty customMsg falls back to CodeMsgMap.
func Error(code int, customMsg string) ErrorBody {
	msg := CodeMsgMap[code]
	if customMsg != "" {
		msg = customMsg
	}
	return ErrorBody{Code: code, Msg: msg}
}

func Invalid(details []FieldError) ErrorBody {
	b := Error(CodeUnprocessable, "")
	b.Details = details
	return b
}

// Abort writes the body with its code as HTTP status and stops the chain.
func Abort(c *gin.Context, body ErrorBody) {
	c.AbortWithStatusJSON(body.Code, body)
}
