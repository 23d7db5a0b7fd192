package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/adventskalender/internal/apperr"
	"github.com/dukerupert/adventskalender/internal/middleware"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads the request body into dst and validates it. Failures are
// returned as validation errors carrying a caller-facing message.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := decodeBody(w, r, dst); err != nil {
		return err
	}
	return validateStruct(dst)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required")
		}
		return apperr.Validation("invalid JSON")
	}
	return nil
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Internal("validation failed", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldErrorMessage(fe))
	}
	return apperr.Validation(strings.Join(msgs, "; "))
}

func fieldErrorMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation for '%s'", field, fe.Tag())
	}
}

func parseIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid id")
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError answers with {"error": message} and the status for err's kind.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.Status(err), map[string]string{"error": apperr.Message(err)})
}

// opLogger records the outcome of handler operations.
type opLogger struct {
	logger *slog.Logger
}

func newOpLogger(logger *slog.Logger, component string) opLogger {
	return opLogger{logger: logger.With("component", component)}
}

func (o opLogger) attrs(r *http.Request, op string, extra []any) []any {
	attrs := []any{"op", op}
	if id := middleware.RequestID(r.Context()); id != "" {
		attrs = append(attrs, "request_id", id)
	}
	return append(attrs, extra...)
}

func (o opLogger) success(r *http.Request, op string, extra ...any) {
	o.logger.InfoContext(r.Context(), "operation succeeded", o.attrs(r, op, extra)...)
}

// fail logs err and writes the error response. Server-side failures are
// logged at error level with the underlying cause; client errors at debug.
func (o opLogger) fail(w http.ResponseWriter, r *http.Request, op string, err error, extra ...any) {
	attrs := append(o.attrs(r, op, extra), "error", err)
	if apperr.Status(err) >= http.StatusInternalServerError {
		o.logger.ErrorContext(r.Context(), "operation failed", attrs...)
	} else {
		o.logger.DebugContext(r.Context(), "operation rejected", attrs...)
	}
	writeError(w, err)
}
