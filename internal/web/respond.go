package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/Joseda-hg/lazyboard/internal/apperr"
)

var (
	errRouteNotFound = apperr.NotFound("Route not found")
	requestValidator = newValidator()
)

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps err onto a status code. Operational failures are logged and
// reported without their details.
func writeError(w http.ResponseWriter, r *http.Request, log *logrus.Entry, err error) {
	status := statusFor(err)
	kind := apperr.KindOf(err)
	message := apperr.Message(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"path":       r.URL.Path,
		}).Error("request failed")
		message = "Internal server error"
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Kind: kind.String(), Message: message}})
}

// decodeJSON reads a JSON body into v and runs its validate tags.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("Request body is required")
		}
		return apperr.Validation("Invalid request body: %v", err)
	}
	if err := requestValidator.Struct(v); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fieldError(fieldErrs[0])
		}
		return apperr.Validation("Invalid request body: %v", err)
	}
	return nil
}

func boolParam(r *http.Request, name string) (*bool, error) {
	value := r.URL.Query().Get(name)
	switch value {
	case "":
		return nil, nil
	case "true", "1":
		v := true
		return &v, nil
	case "false", "0":
		v := false
		return &v, nil
	default:
		return nil, apperr.Validation("Invalid value for %s: %q", name, value)
	}
}

func fieldError(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required", "required_without":
		return apperr.Validation("Field '%s' is required", fe.Field())
	case "excluded_with":
		return apperr.Validation("Field '%s' cannot be combined with '%s'", fe.Field(), strings.ToLower(fe.Param()))
	default:
		return apperr.Validation("Invalid field '%s': failed %s", fe.Field(), fe.Tag())
	}
}
