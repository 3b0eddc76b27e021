package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		err    *Error
		kind   Kind
		status int
		code   string
	}{
		{Validation(CodeEmptyCart, "empty"), KindValidation, http.StatusBadRequest, CodeEmptyCart},
		{NotFound("missing"), KindNotFound, http.StatusNotFound, "not_found"},
		{AccessDenied("no"), KindAccessDenied, http.StatusForbidden, "access_denied"},
		{Conflict(CodeInvalidState, "done"), KindConflict, http.StatusConflict, CodeInvalidState},
		{Inventory("short"), KindInventory, http.StatusBadRequest, "inventory_error"},
		{Upstream("gateway", errors.New("timeout")), KindUpstream, http.StatusBadGateway, "upstream_error"},
		{Internal("db", errors.New("boom")), KindInternal, http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			wrapped := fmt.Errorf("handler: %w", tt.err)
			assert.Equal(t, tt.kind, KindOf(wrapped))
			assert.Equal(t, tt.status, tt.kind.HTTPStatus())
			assert.Equal(t, tt.code, AsError(wrapped).Code)
		})
	}
}

func TestForeignErrorsAreInternal(t *testing.T) {
	cause := errors.New("driver: bad connection")

	assert.Equal(t, KindInternal, KindOf(cause))
	serviceErr := AsError(cause)
	assert.Equal(t, KindInternal, serviceErr.Kind)
	assert.ErrorIs(t, serviceErr, cause)
	assert.NotContains(t, serviceErr.Message, "driver")
}
