package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCode(t *testing.T) {
	base := ExternalServiceError("data api", stderrors.New("connection refused"))
	wrapped := Wrap(base, "save failed")

	assert.Equal(t, CodeExternalService, GetCode(wrapped))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(wrapped))
	assert.Contains(t, wrapped.Error(), "connection refused")
	assert.True(t, stderrors.Is(wrapped, base))
}

func TestWrapPlainError(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))

	err := Wrapf(stderrors.New("boom"), "step %d", 2)
	assert.Equal(t, CodeInternalError, GetCode(err))
	assert.Equal(t, "step 2: boom", err.Error())
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
}

func TestWithCode(t *testing.T) {
	cause := stderrors.New("row 1 is bad")
	err := WithCode(CodeValidationError, cause)

	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(err))
	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, "UNKNOWN", GetCode(cause))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "column is required", Message(InvalidInput("column is required")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(InvalidInput("x")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(New(CodeNotFound, "session not found")))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(New(CodeValidationError, "bad cell")))
}
