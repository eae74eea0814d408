package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rwerner/sourcing-radar/internal/convert"
	"github.com/rwerner/sourcing-radar/internal/store"
	"github.com/rwerner/sourcing-radar/pkg/logger"
)

func TestRespondConvertError_StatusMapping(t *testing.T) {
	h := NewConvertHandler(nil, logger.NewNop())

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", store.ErrNotFound, 404},
		{"already converted", convert.ErrAlreadyConverted, 409},
		{"not convertible", convert.ErrNotConvertible, 409},
		{"no matches", convert.ErrNoMatches, 409},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.respondConvertError(rec, tc.err)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
