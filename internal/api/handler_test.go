package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"waitlist-service/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err    error
		status int
	}{
		{models.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("entry abc: %w", models.ErrNotFound), http.StatusNotFound},
		{models.ErrDuplicateEntry, http.StatusConflict},
		{models.ErrInvalidState, http.StatusConflict},
		{models.ErrForbidden, http.StatusForbidden},
		{models.ErrEventCancelled, http.StatusGone},
		{models.ErrCapacityConflict, http.StatusTooManyRequests},
		{models.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{errors.New("something else"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		respondError(c, tc.err)

		assert.Equal(t, tc.status, w.Code, "error %v", tc.err)
	}
}
