package apperrors

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	appErr := NewDatabaseError(cause)

	assert.ErrorIs(t, appErr, cause)
	assert.Contains(t, appErr.Error(), "connection refused")
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPCode)
}

func TestAsAppError(t *testing.T) {
	t.Parallel()

	appErr, ok := AsAppError(NewNotFoundError("Agent not found"))
	require.True(t, ok)
	assert.Equal(t, CodeNotFound, appErr.Code)

	_, ok = AsAppError(errors.New("plain"))
	assert.False(t, ok)
}

func TestHandleError_StatusMapping(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"validation", NewBadRequestError("Invalid ID format."), http.StatusBadRequest, "Invalid ID format."},
		{"not found", NewNotFoundError("Agent not found"), http.StatusNotFound, "Agent not found"},
		{"upload", NewUploadError(errors.New("b2 down")), http.StatusInternalServerError, "Error uploading file"},
		{"storage delete", NewStorageDeleteError(errors.New("b2 down")), http.StatusInternalServerError, "Error deleting file from storage"},
		{"database", NewDatabaseError(errors.New("pg down")), http.StatusInternalServerError, "Database error"},
		{"plain error gets wrapped", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest("GET", "/", nil)

			HandleError(c, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantBody)
		})
	}
}

func TestValidationError_CarriesDetails(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest("POST", "/", nil)

	HandleError(c, ValidationError(map[string]string{"fileUrl": "This field is required"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "fileUrl")
	assert.Contains(t, rec.Body.String(), "This field is required")
}
