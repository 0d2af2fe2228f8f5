// Package request decodes and validates JSON request bodies.
package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/radif/gallery/internal/apperr"
)

// maxBodyBytes bounds JSON bodies. Image uploads use multipart and are
// capped separately.
const maxBodyBytes = 1 << 20

var validate = validator.New()

// DecodeJSON reads the body of r into dst and validates it with the
// `validate` struct tags. Failures are ParamsErrors.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Params("invalid request body")
	}
	return Validate(dst)
}

// Validate checks v's `validate` struct tags.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
		}
		return apperr.Params("validation failed: %s", strings.Join(msgs, "; "))
	}
	return apperr.Params("invalid request")
}

// IDParam parses the named chi URL parameter as a positive int64.
func IDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Params("invalid %s %q", name, raw)
	}
	return id, nil
}
