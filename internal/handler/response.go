package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/ledger"
)

var validate = validator.New()

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

type BadRequestErrorResponse struct {
	Message string            `json:"message"`
	Details []ValidationError `json:"details"`
}

func ValidateRequest(obj any) []ValidationError {
	err := validate.Struct(obj)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{Message: err.Error(), Type: "invalid"}}
	}

	validationErrors := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, ValidationError{
			Field:   fe.Field(),
			Message: errorMessage(fe),
			Type:    fe.Tag(),
		})
	}
	return validationErrors
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "gt":
		return "Value must be greater than " + fe.Param()
	case "nefield":
		return "Value must differ from " + fe.Param()
	default:
		return "Invalid value"
	}
}

func RespondWithError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

func RespondWithValidationError(c *gin.Context, details []ValidationError) {
	c.JSON(http.StatusBadRequest, BadRequestErrorResponse{
		Message: "Validation failed",
		Details: details,
	})
}

// statusFor maps a ledger error kind to its HTTP status and client message.
func statusFor(err error) (int, string) {
	switch ledger.KindOf(err) {
	case ledger.KindUserNotFound:
		return http.StatusNotFound, "User not found"
	case ledger.KindInsufficientFunds:
		return http.StatusUnprocessableEntity, "Insufficient funds"
	case ledger.KindLockBusy:
		return http.StatusConflict, "Transfer in progress, please try again"
	case ledger.KindVersionConflict:
		return http.StatusConflict, "Sender was modified concurrently, please resubmit"
	case ledger.KindStorage:
		return http.StatusServiceUnavailable, "Storage unavailable, please retry later"
	default:
		return http.StatusInternalServerError, "Failed to process request"
	}
}
