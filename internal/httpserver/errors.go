package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"storefront/internal/domain"
	usersvc "storefront/internal/service/user"
)

const invalidDataMessage = "The given data was invalid."

// writeError maps service errors to HTTP responses. Unknown errors are
// logged and reported as 500 without details.
func (h *handlers) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found."})
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"message": invalidDataMessage,
			"errors":  gin.H{"input": []string{strings.TrimPrefix(err.Error(), domain.ErrInvalidInput.Error()+": ")}},
		})
	case errors.Is(err, domain.ErrAlreadyExists):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"message": invalidDataMessage,
			"errors":  gin.H{"email": []string{"The email has already been taken."}},
		})
	case errors.Is(err, usersvc.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "These credentials do not match our records."})
	case errors.Is(err, usersvc.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthenticated."})
	default:
		h.logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}

// writeBindError reports binding and validation failures as 422 with one
// message list per field.
func writeBindError(c *gin.Context, err error) {
	fields := gin.H{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			name := strings.ToLower(fe.Field())
			fields[name] = []string{fieldMessage(name, fe)}
		}
	} else {
		fields["input"] = []string{"The request could not be parsed."}
	}
	c.JSON(http.StatusUnprocessableEntity, gin.H{"message": invalidDataMessage, "errors": fields})
}

func fieldMessage(name string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "The " + name + " field is required."
	case "gt", "min":
		return "The " + name + " must be greater than " + fe.Param() + "."
	case "max":
		return "The " + name + " may not be greater than " + fe.Param() + "."
	case "email":
		return "The " + name + " must be a valid email address."
	default:
		return "The " + name + " is invalid."
	}
}
