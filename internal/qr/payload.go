package qr

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kwarc/cheatsheets/internal/fields"
	"github.com/kwarc/cheatsheets/internal/identity"
)

var (
	ErrNotJSONObject     = errors.New("qr payload is not a JSON object")
	ErrNoIdentityFields  = errors.New("qr payload carries no identity fields")
	ErrSignatureMismatch = errors.New("qr signature mismatch")
)

// synonyms lists accepted payload keys per field, highest priority first.
// uid/course/ts come from client-rendered sheets.
var synonyms = map[string][]string{
	fields.CourseID:     {"courseId", "course"},
	fields.InstanceID:   {"instanceId"},
	fields.UniversityID: {"universityId"},
	fields.StudentID:    {"studentId", "uid"},
	fields.StudentName:  {"studentName"},
	fields.WeekID:       {"weekId", "quizId"},
	fields.DownloadDate: {"downloadDate", "downloadedAt", "ts"},
}

type payloadSchema struct {
	CourseID     string `validate:"max=128,excludesall=\n\r"`
	InstanceID   string `validate:"max=128,excludesall=\n\r"`
	UniversityID string `validate:"max=128,excludesall=\n\r"`
	StudentID    string `validate:"max=128,excludesall=/\\\n\r"`
	StudentName  string `validate:"max=256"`
	WeekID       string `validate:"max=64,excludesall=\n\r"`
	DownloadDate string `validate:"max=64"`
}

var validate = validator.New()

// SchemaError reports a payload value that violated a constraint.
type SchemaError struct {
	Field string
	Rule  string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("qr payload field %s violates %s", e.Field, e.Rule)
}

// ParsePayload maps decoded QR text onto Fields.
//
// Signed envelopes ({"payload": "...", "signature": "..."}) are unwrapped;
// when signer is non-nil the signature must verify. String and numeric
// values are accepted, anything else is ignored.
func ParsePayload(text string, signer *identity.Signer) (fields.Fields, error) {
	obj, err := decodeObject(text)
	if err != nil {
		return fields.Fields{}, err
	}

	if inner, ok := obj["payload"].(string); ok {
		sig, _ := obj["signature"].(string)
		if signer != nil && !signer.Verify(identity.Envelope{Payload: inner, Signature: sig}) {
			return fields.Fields{}, ErrSignatureMismatch
		}
		if obj, err = decodeObject(inner); err != nil {
			return fields.Fields{}, err
		}
	}

	lookup := func(key string) string {
		for _, k := range synonyms[key] {
			if v := scalar(obj[k]); v != "" {
				return v
			}
		}
		return ""
	}

	s := payloadSchema{
		CourseID:     lookup(fields.CourseID),
		InstanceID:   lookup(fields.InstanceID),
		UniversityID: lookup(fields.UniversityID),
		StudentID:    lookup(fields.StudentID),
		StudentName:  lookup(fields.StudentName),
		WeekID:       lookup(fields.WeekID),
		DownloadDate: lookup(fields.DownloadDate),
	}
	if err := validate.Struct(s); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return fields.Fields{}, &SchemaError{Field: ve[0].Field(), Rule: ve[0].Tag()}
		}
		return fields.Fields{}, fmt.Errorf("qr payload: %w", err)
	}

	f := fields.Fields(s)
	if f.Empty() {
		return fields.Fields{}, ErrNoIdentityFields
	}
	return f, nil
}

func decodeObject(text string) (map[string]any, error) {
	var obj map[string]any
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, ErrNotJSONObject
	}
	return obj, nil
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
