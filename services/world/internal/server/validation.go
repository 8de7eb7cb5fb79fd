package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"mozhi/pkg/domain"
	"mozhi/services/world/internal/app"
)

const maxJSONBody = 1 << 20

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// decodeBody reads a JSON body into dst and validates it. Failures come back
// as *app.ValidationError.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		details := make([]app.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, app.FieldError{
				Loc:  []string{"body", fe.Field()},
				Msg:  friendlyMessage(fe),
				Type: "value_error." + fe.Tag(),
			})
		}
		return &app.ValidationError{Details: details}
	}
	return nil
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "__root__"
		}
		return &app.ValidationError{Details: []app.FieldError{{
			Loc:  []string{"body", field},
			Msg:  "must be of type " + typeErr.Type.String(),
			Type: "type_error." + typeErr.Type.Kind().String(),
		}}}
	case errors.Is(err, domain.ErrAcquisitionTarget):
		return &app.ValidationError{Details: []app.FieldError{{
			Loc:  []string{"body", "target"},
			Msg:  err.Error(),
			Type: "value_error.target",
		}}}
	case errors.Is(err, domain.ErrCustomNameTooLong):
		return &app.ValidationError{Details: []app.FieldError{{
			Loc:  []string{"body", "custom_name"},
			Msg:  fmt.Sprintf("must not exceed %d characters", domain.MaxCustomNameLen),
			Type: "value_error.max",
		}}}
	case errors.As(err, &tooLarge):
		return err
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return &app.ValidationError{Details: []app.FieldError{{
			Loc:  []string{"body"},
			Msg:  "invalid JSON body",
			Type: "value_error.jsondecode",
		}}}
	}
	return &app.ValidationError{Details: []app.FieldError{{
		Loc:  []string{"body"},
		Msg:  err.Error(),
		Type: "value_error",
	}}}
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "field required"
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "oneof":
		return "must be one of: " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	default:
		return "is invalid"
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &app.ValidationError{Details: []app.FieldError{{
			Loc:  []string{"path", name},
			Msg:  "must be a positive integer",
			Type: "type_error.integer",
		}}}
	}
	return id, nil
}

func queryInt(r *http.Request, name string, def, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || (max > 0 && v > max) {
		msg := fmt.Sprintf("must be an integer >= %d", min)
		if max > 0 {
			msg = fmt.Sprintf("must be an integer between %d and %d", min, max)
		}
		return 0, &app.ValidationError{Details: []app.FieldError{{
			Loc:  []string{"query", name},
			Msg:  msg,
			Type: "type_error.integer",
		}}}
	}
	return v, nil
}

const maxPageSize = 500

func pageFromQuery(r *http.Request) (app.Page, error) {
	limit, err := queryInt(r, "limit", 0, 1, maxPageSize)
	if err != nil {
		return app.Page{}, err
	}
	offset, err := queryInt(r, "offset", 0, 0, 0)
	if err != nil {
		return app.Page{}, err
	}
	return app.Page{Limit: limit, Offset: offset}, nil
}
