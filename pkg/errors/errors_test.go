package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"parse", fmt.Errorf("building query: %w", ErrParse), http.StatusBadRequest},
		{"invalid", ErrInvalidInput, http.StatusBadRequest},
		{"not found", ErrDocumentNotFound, http.StatusNotFound},
		{"busy", ErrGenerationBusy, http.StatusConflict},
		{"no index", fmt.Errorf("opening: %w", ErrNoIndex), http.StatusServiceUnavailable},
		{"corrupt", ErrIndexCorrupt, http.StatusInternalServerError},
		{"app error", New(ErrInternal, http.StatusTeapot, "brewing"), http.StatusTeapot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrParse, http.StatusBadRequest, "position %d", 4)
	assert.ErrorIs(t, err, ErrParse)
	assert.Equal(t, "query parse error: position 4", err.Error())
}
