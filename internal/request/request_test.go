package request

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radif/gallery/internal/apperr"
)

type createBody struct {
	Name  string `json:"name"  validate:"required,max=5"`
	Count int    `json:"count" validate:"gte=0"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{name: "valid", body: `{"name":"abc","count":2}`, ok: true},
		{name: "malformed", body: `{"name":`},
		{name: "unknown field", body: `{"name":"abc","extra":1}`},
		{name: "missing required", body: `{"count":1}`},
		{name: "too long", body: `{"name":"abcdefg"}`},
		{name: "negative", body: `{"name":"a","count":-1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst createBody
			err := DecodeJSON(r, &dst)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, "abc", dst.Name)
				return
			}
			assert.Equal(t, apperr.KindParams, apperr.KindOf(err))
		})
	}
}

func TestValidateNamesFailingFields(t *testing.T) {
	err := Validate(&createBody{Name: "toolong", Count: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Name failed on max")
	assert.Contains(t, err.Error(), "Count failed on gte")
}

func TestIDParam(t *testing.T) {
	for raw, want := range map[string]int64{"42": 42, "0": 0, "-3": 0, "abc": 0} {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", raw)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

		id, err := IDParam(r, "id")
		if want == 0 {
			assert.Equal(t, apperr.KindParams, apperr.KindOf(err), raw)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
}
