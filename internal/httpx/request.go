package httpx

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// MaxBodyBytes caps JSON request bodies.  Generated sites are whole HTML
// documents, so the cap is generous.
const MaxBodyBytes = 4 << 20

var validate = newValidator()

// newValidator reports JSON field names instead of Go field names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Decode reads a JSON body into T and validates its `validate` tags.  The
// returned error message is safe to show to the caller.
func Decode[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var payload T

	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer body.Close()

	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return payload, errors.New("request body is required")
		}
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return payload, errors.New("request body too large")
		}
		return payload, errors.New("request body must be valid JSON")
	}

	if err := IsValid(payload); err != nil {
		return payload, err
	}
	return payload, nil
}

// IsValid validates payload and flattens validator errors into one line
// naming the JSON fields.
func IsValid[T any](payload T) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
