package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errSentinel = WithCode(http.StatusNotFound, "thing not found")

func TestCodePropagatesThroughWrap(t *testing.T) {
	err := Wrap(errSentinel.WithContext("id", "42"), "lookup failed")
	assert.Equal(t, http.StatusNotFound, GetCode(err))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
	assert.True(t, Is(err, errSentinel))
	assert.Equal(t, "lookup failed", GetMessage(err))
}

func TestHTTPStatusDefaults(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(stderrors.New("plain")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(New("uncoded")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(WithCode(42, "odd code")))
}

func TestWithContextCopies(t *testing.T) {
	base := WithCode(http.StatusBadRequest, "bad")
	withID := base.WithContext("id", "x")
	assert.Empty(t, base.Context)
	v, ok := withID.ContextValue("id")
	assert.True(t, ok)
	assert.Equal(t, "x", v)
}

func TestCauseAndStdlibInterop(t *testing.T) {
	root := stderrors.New("disk full")
	err := fmt.Errorf("save: %w", Wrap(root, "write prescription"))
	assert.Equal(t, root, Cause(err))
	assert.True(t, Is(err, root))
	assert.Nil(t, Wrap(nil, "nothing"))
}
