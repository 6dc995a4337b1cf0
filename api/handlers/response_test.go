package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/lazypandaa/connect/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorStatus(t *testing.T) {
	cases := map[error]int{
		services.ErrEmptyPost:          http.StatusBadRequest,
		services.ErrInvalidToken:       http.StatusUnauthorized,
		services.ErrBlocked:            http.StatusForbidden,
		services.ErrNotRecipient:       http.StatusForbidden,
		services.ErrPostNotFound:       http.StatusNotFound,
		services.ErrRequestAlreadySent: http.StatusConflict,
		errors.New("disk is full"):     http.StatusInternalServerError,
		// обернутые ошибки распознаются по цепочке
		fmt.Errorf("%w (status: accepted)", services.ErrInvalidTransition): http.StatusConflict,
		fmt.Errorf("%w: password too short", services.ErrInvalidInput):     http.StatusBadRequest,
	}
	for err, want := range cases {
		assert.Equal(t, want, errorStatus(err), err.Error())
	}
}

func TestIDAcceptsNumberAndString(t *testing.T) {
	var req struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 12, "b": "34", "c": null}`), &req))
	assert.Equal(t, ID(12), req.A)
	assert.Equal(t, ID(34), req.B)
	assert.Zero(t, req.C)

	assert.Error(t, json.Unmarshal([]byte(`{"a": "abc"}`), &req))
}
