package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errMissing = NotFound("widget not found")

func TestAsFindsSentinelThroughWrapping(t *testing.T) {
	err := fmt.Errorf("GetWidget: %w", errMissing)

	got := As(err)
	assert.Equal(t, CodeNotFound, got.Code)
	assert.Equal(t, "widget not found", got.Message)
	assert.True(t, errors.Is(err, errMissing))
}

func TestWrapKeepsSentinelAndCause(t *testing.T) {
	cause := errors.New("duplicate key")
	err := Wrap(Conflict("number taken"), cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, CodeConflict, As(err).Code)
	assert.Equal(t, "number taken: duplicate key", err.Error())
}

func TestAsDefaultsToInternal(t *testing.T) {
	got := As(errors.New("connection reset"))
	assert.Equal(t, CodeInternal, got.Code)
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(got.Code))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeBadRequest, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}
