package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/safouanmatmati/ratingboard/pkg/errors"
)

type moderation struct {
	Allowed *bool  `json:"allowed" validate:"required"`
	Reason  string `json:"reason,omitempty" validate:"omitempty,oneof=spam offensive other"`
}

type listQuery struct {
	Sort  string `json:"sort" validate:"omitempty,oneof=score_asc score_desc"`
	Limit int    `validate:"gte=0,lte=100"`
}

func TestValidate_Success(t *testing.T) {
	allowed := false
	assert.NoError(t, Validate(moderation{Allowed: &allowed}))
	assert.NoError(t, Validate(listQuery{Sort: "score_desc", Limit: 10}))
}

func TestValidate_RequiredPointer_FalseIsPresent(t *testing.T) {
	allowed := false
	assert.NoError(t, Validate(moderation{Allowed: &allowed, Reason: "spam"}))
}

func TestValidate_MissingRequired_UsesJSONName(t *testing.T) {
	err := Validate(moderation{})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, map[string]string{"allowed": "is required"}, valErr.Fields())
	assert.Equal(t, "field 'allowed' is required", err.Error())
}

func TestValidate_IsInvalidInput(t *testing.T) {
	err := Validate(moderation{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(err))
}

func TestValidate_OneOfAndRange(t *testing.T) {
	err := Validate(listQuery{Sort: "newest", Limit: 500})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Equal(t, "must be one of: score_asc score_desc", fields["sort"])
	assert.Equal(t, "must be less than or equal to 100", fields["Limit"])
}

func TestDecodeAndValidate_Success(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/", bytes.NewBufferString(`{"allowed":true}`))

	var m moderation
	require.NoError(t, DecodeAndValidate(req, &m))
	require.NotNil(t, m.Allowed)
	assert.True(t, *m.Allowed)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader("{invalid"))

	var m moderation
	err := DecodeAndValidate(req, &m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_ValidationFails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/", bytes.NewBufferString(`{"reason":"spam"}`))

	var m moderation
	err := DecodeAndValidate(req, &m)
	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}
