package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatErrorBody_StringDetail(t *testing.T) {
	body := []byte(`{"detail":"Session expired"}`)
	assert.Equal(t, "Session expired", formatErrorBody(401, "Unauthorized", body))
}

func TestFormatErrorBody_ValidationArray(t *testing.T) {
	body := []byte(`{"detail":[{"msg":"bad session"},"plain"]}`)
	assert.Equal(t, "bad session | plain", formatErrorBody(422, "Unprocessable Entity", body))
}

func TestFormatErrorBody_ArrayEntryWithoutMsg(t *testing.T) {
	body := []byte(`{"detail":[{"loc":["body","query"]}]}`)
	assert.Equal(t, `{"loc":["body","query"]}`, formatErrorBody(422, "Unprocessable Entity", body))
}

func TestFormatErrorBody_DetailNeitherStringNorArray(t *testing.T) {
	body := []byte(`{"detail":{"code":17}}`)
	assert.Equal(t, "HTTP 422", formatErrorBody(422, "Unprocessable Entity", body))
}

func TestFormatErrorBody_MissingDetail(t *testing.T) {
	body := []byte(`{"error":"nope"}`)
	assert.Equal(t, "HTTP 500", formatErrorBody(500, "Internal Server Error", body))
}

func TestFormatErrorBody_UnparsableBody(t *testing.T) {
	body := []byte(`<html>gateway timeout</html>`)
	assert.Equal(t, "Bad Gateway", formatErrorBody(502, "Bad Gateway", body))
}

func TestFormatErrorBody_UnparsableBodyNoStatusText(t *testing.T) {
	body := []byte(`not json`)
	assert.Equal(t, "HTTP 599", formatErrorBody(599, "", body))
}

func TestRequestError_Error(t *testing.T) {
	err := &RequestError{Status: 404, Message: "Care task not found"}
	assert.Equal(t, "Care task not found", err.Error())
}
