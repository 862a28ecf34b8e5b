// Package intake turns the payloads our contact forms send into a
// model.RawSubmission the validator understands.
//
// Several clients post to the same endpoint: the contact page (canonical
// names), the Apps Script form (referrer/source), the admissions enquiry form
// (parentName) and older SMS-era forms (parentPhoneNumber, mobile). Each
// canonical field takes the first non-blank alias.
package intake

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kataria/backend/internal/model"
	"github.com/kataria/backend/internal/validation"
)

var (
	ErrMalformedBody        = errors.New("intake: malformed request body")
	ErrUnsupportedMediaType = errors.New("intake: unsupported content type")
)

// aliases lists accepted client keys per canonical field, in priority order.
var aliases = []struct {
	field string
	keys  []string
}{
	{validation.FieldName, []string{"name", "fullName", "parentName"}},
	{validation.FieldEmail, []string{"email", "emailAddress"}},
	{validation.FieldPhone, []string{"phone", "parentPhoneNumber", "mobile", "phoneNumber"}},
	{validation.FieldMessage, []string{"message", "enquiry", "query"}},
	{validation.FieldUserAgent, []string{"userAgent"}},
	{validation.FieldReferralSource, []string{"referralSource", "referrer", "source", "utm_source"}},
}

// Map applies the alias table to flat key/value input. Unknown keys and a
// client-supplied ipAddress are dropped. A canonical field whose aliases are
// all absent stays absent; if some alias is present but every one is blank,
// the field is present and blank.
func Map(in map[string]string) model.RawSubmission {
	out := model.RawSubmission{}
	for _, a := range aliases {
		for _, k := range a.keys {
			v, ok := in[k]
			if !ok {
				continue
			}
			if cur, seen := out[a.field]; !seen || cur == "" {
				out[a.field] = v
			}
			if v != "" {
				break
			}
		}
	}
	return out
}

// FromJSON decodes a JSON object. Scalars are converted to strings; nulls,
// objects and arrays count as absent.
func FromJSON(r io.Reader) (model.RawSubmission, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	if body == nil {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedBody)
	}
	flat := make(map[string]string, len(body))
	for k, v := range body {
		switch t := v.(type) {
		case string:
			flat[k] = t
		case json.Number:
			flat[k] = t.String()
		case bool:
			flat[k] = strconv.FormatBool(t)
		}
	}
	return Map(flat), nil
}

// FromForm maps url-encoded form values, taking the first value per key.
func FromForm(values url.Values) model.RawSubmission {
	flat := make(map[string]string, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			flat[k] = vs[0]
		}
	}
	return Map(flat)
}

// FromRequest decodes the body according to Content-Type (JSON when unset)
// and fills userAgent from the User-Agent header when the body has none.
// The caller bounds the body size.
func FromRequest(r *http.Request) (model.RawSubmission, error) {
	mediaType := "application/json"
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedMediaType, err)
		}
		mediaType = mt
	}

	var raw model.RawSubmission
	switch mediaType {
	case "application/json":
		var err error
		if raw, err = FromJSON(r.Body); err != nil {
			return nil, err
		}
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
		}
		raw = FromForm(r.PostForm)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, mediaType)
	}

	if v, _ := raw.Get(validation.FieldUserAgent); v == "" {
		if ua := r.UserAgent(); ua != "" {
			raw[validation.FieldUserAgent] = ua
		}
	}
	return raw, nil
}
