package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("loading trend: %w", NotFound("Trend not found"))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, http.StatusNotFound, KindOf(wrapped).HTTPStatus())

	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, http.StatusInternalServerError, KindOf(errors.New("boom")).HTTPStatus())

	assert.Equal(t, http.StatusBadRequest, KindOf(Validation("x")).HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, KindOf(Unauthenticated("x")).HTTPStatus())
	assert.Equal(t, http.StatusForbidden, KindOf(Forbidden("x")).HTTPStatus())
	assert.Equal(t, http.StatusTooManyRequests, KindOf(TooManyRequests("x")).HTTPStatus())
}

func TestPublicMessage(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Internal("counting users", cause)

	assert.Equal(t, "Internal server error", PublicMessage(err, false))
	assert.Equal(t, "counting users: dial tcp: connection refused", PublicMessage(err, true))
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, "Invalid credentials", PublicMessage(Validation("Invalid credentials"), false))
}
