package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"invoiceflow/internal/calculator"
	"invoiceflow/internal/common"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestValidator plugs validator/v10 into echo's c.Validate. Field names in
// reported errors follow the json tags.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{validate: v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	return rv.validate.Struct(i)
}

// validationDetails turns validator errors into details keyed by JSON path,
// e.g. "items[0].quantity".
func validationDetails(err error) map[string]string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return map[string]string{"request": err.Error()}
	}

	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		path := fe.Namespace()
		if _, rest, ok := strings.Cut(path, "."); ok {
			path = rest
		}
		details[path] = fieldMessage(fe)
	}
	return details
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}

// bindAndValidate decodes the body and runs the struct tags. It writes the
// error response itself and reports whether the handler should continue.
func bindAndValidate(c echo.Context, req interface{}) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, common.SendClientError(c, "Invalid request format")
	}
	if err := c.Validate(req); err != nil {
		return false, common.SendValidationErrors(c, validationDetails(err))
	}
	return true, nil
}

// Amount accepts a JSON number or numeric string and rounds it to two
// decimals. Malformed input becomes 0.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "null" {
		*a = 0
		return nil
	}
	*a = Amount(calculator.ParseAmount(raw).Value)
	return nil
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

const dateFormatMessage = "must be a date in YYYY-MM-DD format"

// identityFromContext returns the tenant and user set by the JWT middleware.
func identityFromContext(c echo.Context) (tenantID, userID uuid.UUID, ok bool) {
	ctx := c.Request().Context()
	tenantID, tenantOK := common.GetTenantIDFromContext(ctx)
	userID, userOK := common.GetUserIDFromContext(ctx)
	return tenantID, userID, tenantOK && userOK
}

// respondError maps service errors to the standard error envelope.
func respondError(c echo.Context, err error, resource string) error {
	var verr *common.ValidationError
	switch {
	case errors.As(err, &verr):
		return common.SendValidationErrors(c, verr.Fields)
	case errors.Is(err, common.ErrNotFound):
		return common.SendNotFoundError(c, resource)
	case errors.Is(err, common.ErrDuplicateInvoiceNumber):
		return common.SendClientError(c, "Invoice number already exists")
	case errors.Is(err, common.ErrEmailTaken):
		return common.SendClientError(c, "User with this email already exists")
	case errors.Is(err, common.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, common.CreateErrorResponse("INVALID_CREDENTIALS", "Invalid email or password", nil))
	case errors.Is(err, common.ErrUnauthorized):
		return common.SendUnauthorizedError(c)
	case errors.Is(err, common.ErrTooManyAttempts):
		return c.JSON(http.StatusTooManyRequests, common.CreateErrorResponse("TOO_MANY_REQUESTS", "Too many attempts, try again later", nil))
	case errors.Is(err, common.ErrMailDisabled):
		return c.JSON(http.StatusServiceUnavailable, common.CreateErrorResponse("SERVICE_UNAVAILABLE", "Email delivery is not configured", nil))
	default:
		slog.ErrorContext(c.Request().Context(), "request failed", "resource", resource, "error", err)
		return common.SendServerError(c, "Internal server error")
	}
}
