package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/safouanmatmati/ratingboard/pkg/errors"
)

// Rating is a single submitted review of a business.
type Rating struct {
	Business string  `json:"business"`
	User     string  `json:"user"`
	Comment  string  `json:"comment"`
	Score    float64 `json:"score"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`

	// Allowed is the moderation flag. It is nil until a moderator sets it.
	Allowed *bool `json:"allowed,omitempty"`
}

// IsAllowed reports whether the rating has been explicitly accepted.
func (r Rating) IsAllowed() bool {
	return r.Allowed != nil && *r.Allowed
}

// Ratings maps identifiers to ratings. It is also the persisted wire shape.
type Ratings map[string]Rating

// IdentifiedRating pairs a rating with its store identifier for list views.
type IdentifiedRating struct {
	ID string `json:"id"`
	Rating
}

// FieldType names the primitive type a schema field expects.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeObject  FieldType = "object"
	TypeArray   FieldType = "array"
	TypeNull    FieldType = "null"

	// TypeNonFinite is reported for NaN and infinite floats, which never
	// satisfy TypeNumber.
	TypeNonFinite FieldType = "non-finite number"
)

// Field is one entry of a Schema.
type Field struct {
	Name string
	Type FieldType
}

// Schema is an ordered list of required fields with their expected types.
type Schema []Field

// RatingSchema describes the required fields of a Rating.
var RatingSchema = Schema{
	{Name: "business", Type: TypeString},
	{Name: "user", Type: TypeString},
	{Name: "comment", Type: TypeString},
	{Name: "score", Type: TypeNumber},
	{Name: "lat", Type: TypeNumber},
	{Name: "lng", Type: TypeNumber},
}

// FieldError describes why a single field failed validation.
type FieldError struct {
	Undefined    bool      `json:"undefined,omitempty"`
	InvalidType  FieldType `json:"invalid_type,omitempty"`
	ExpectedType FieldType `json:"expected_type,omitempty"`
}

func (e FieldError) String() string {
	if e.Undefined {
		return "undefined"
	}
	return fmt.Sprintf("invalid_type %s, expected %s", e.InvalidType, e.ExpectedType)
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields map[string]FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name].String())
	}
	return "failed to validate rating: " + strings.Join(parts, "; ")
}

// Unwrap lets callers match validation failures with apperrors.ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// FieldDetails exposes the per-field errors for error responses.
func (e *ValidationError) FieldDetails() any {
	return e.Fields
}

// Validate checks data against the schema. Numeric fields are coerced in
// place, so data is modified even when validation fails on other fields.
func (s Schema) Validate(data map[string]any) error {
	fields := make(map[string]FieldError)

	for _, f := range s {
		v, ok := data[f.Name]
		if !ok {
			fields[f.Name] = FieldError{Undefined: true}
			continue
		}

		if f.Type == TypeNumber {
			v = coerceNumber(v)
			data[f.Name] = v
		}

		if actual := typeOf(v); actual != f.Type {
			fields[f.Name] = FieldError{InvalidType: actual, ExpectedType: f.Type}
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Validate checks data against RatingSchema.
func Validate(data map[string]any) error {
	return RatingSchema.Validate(data)
}

// Create copies data into a Rating without validating it. Callers must run
// Validate first; values of the wrong type are left at their zero value.
func Create(data map[string]any) Rating {
	var r Rating
	r.Business, _ = data["business"].(string)
	r.User, _ = data["user"].(string)
	r.Comment, _ = data["comment"].(string)
	r.Score, _ = data["score"].(float64)
	r.Lat, _ = data["lat"].(float64)
	r.Lng, _ = data["lng"].(float64)
	if allowed, ok := data["allowed"].(bool); ok {
		r.Allowed = &allowed
	}
	return r
}

// RatingPatch holds the fields to overwrite on an existing rating.
type RatingPatch struct {
	Business *string  `json:"business,omitempty"`
	User     *string  `json:"user,omitempty"`
	Comment  *string  `json:"comment,omitempty"`
	Score    *float64 `json:"score,omitempty"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
	Allowed  *bool    `json:"allowed,omitempty"`
}

// NewRatingPatch builds a patch from a raw object. Only the fields present
// are checked: schema fields against their type, with numbers coerced as
// Validate does, and "allowed" as a boolean. Unknown keys are ignored.
func NewRatingPatch(data map[string]any) (RatingPatch, error) {
	var p RatingPatch
	fields := make(map[string]FieldError)

	for _, f := range RatingSchema {
		v, ok := data[f.Name]
		if !ok {
			continue
		}
		if f.Type == TypeNumber {
			v = coerceNumber(v)
		}
		if actual := typeOf(v); actual != f.Type {
			fields[f.Name] = FieldError{InvalidType: actual, ExpectedType: f.Type}
			continue
		}

		switch f.Name {
		case "business":
			str := v.(string)
			p.Business = &str
		case "user":
			str := v.(string)
			p.User = &str
		case "comment":
			str := v.(string)
			p.Comment = &str
		case "score":
			n := v.(float64)
			p.Score = &n
		case "lat":
			n := v.(float64)
			p.Lat = &n
		case "lng":
			n := v.(float64)
			p.Lng = &n
		}
	}

	if v, ok := data["allowed"]; ok {
		if b, isBool := v.(bool); isBool {
			p.Allowed = &b
		} else {
			fields["allowed"] = FieldError{InvalidType: typeOf(v), ExpectedType: TypeBoolean}
		}
	}

	if len(fields) > 0 {
		return RatingPatch{}, &ValidationError{Fields: fields}
	}
	return p, nil
}

// Apply returns r with every non-nil patch field copied over it.
func (p RatingPatch) Apply(r Rating) Rating {
	if p.Business != nil {
		r.Business = *p.Business
	}
	if p.User != nil {
		r.User = *p.User
	}
	if p.Comment != nil {
		r.Comment = *p.Comment
	}
	if p.Score != nil {
		r.Score = *p.Score
	}
	if p.Lat != nil {
		r.Lat = *p.Lat
	}
	if p.Lng != nil {
		r.Lng = *p.Lng
	}
	if p.Allowed != nil {
		allowed := *p.Allowed
		r.Allowed = &allowed
	}
	return r
}

// coerceNumber converts numeric kinds, json.Number and numeric strings to
// float64. Anything else, including NaN and infinities, is returned as is.
func coerceNumber(v any) any {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return v
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return v
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return v
		}
		f = parsed
	default:
		return v
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return v
	}
	return f
}

// typeOf reports the schema type of a decoded value.
func typeOf(v any) FieldType {
	if v == nil {
		return TypeNull
	}
	switch n := v.(type) {
	case string:
		return TypeString
	case bool:
		return TypeBoolean
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return TypeNonFinite
		}
		return TypeNumber
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return TypeNumber
	case reflect.Float32:
		if f := rv.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
			return TypeNonFinite
		}
		return TypeNumber
	case reflect.String:
		return TypeString
	case reflect.Bool:
		return TypeBoolean
	case reflect.Slice, reflect.Array:
		return TypeArray
	default:
		return TypeObject
	}
}
