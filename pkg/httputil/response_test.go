package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/vitalapp/clinic-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(fn gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	fn(c)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRespondWithError_AppError(t *testing.T) {
	w := perform(func(c *gin.Context) {
		RespondWithError(c, apperrors.NewFieldValidation("page", "must not be negative"))
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Equal(t, "must not be negative", resp.Error.Details["page"])
}

func TestRespondWithError_StatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperrors.NewNotFound("patient", nil), http.StatusNotFound},
		{apperrors.NewDuplicate("dup", nil), http.StatusConflict},
		{apperrors.NewConflict("patient", nil), http.StatusConflict},
		{apperrors.Unauthorized(nil), http.StatusUnauthorized},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := perform(func(c *gin.Context) { RespondWithError(c, tc.err) })
		assert.Equal(t, tc.want, w.Code, tc.err.Error())
	}
}

func TestRespondWithError_HidesInternalDetail(t *testing.T) {
	w := perform(func(c *gin.Context) { RespondWithError(c, errors.New("pq: password authentication failed")) })
	resp := decode(t, w)
	assert.Equal(t, "internal server error", resp.Error.Message)
}

func TestRespondWithStatus(t *testing.T) {
	w := perform(func(c *gin.Context) { RespondWithStatus(c, http.StatusCreated, gin.H{"id": 1}) })
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"id":1}}`, w.Body.String())
}
