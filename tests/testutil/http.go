package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pharmabill/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// APIClient issues requests against an engine on behalf of one pharmacy.
type APIClient struct {
	Engine     *gin.Engine
	PharmacyID uuid.UUID
	Token      string
}

// Envelope is the response shape shared by every endpoint.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
	Meta *struct {
		Total    int64 `json:"total"`
		Page     int   `json:"page"`
		PageSize int   `json:"page_size"`
	} `json:"meta"`
}

// Do sends body as JSON. A Bearer token is sent when Token is set, otherwise
// the pharmacy travels in the X-Pharmacy-ID header. headers are key/value pairs.
func (c *APIClient) Do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", middleware.BearerPrefix+c.Token)
	} else if c.PharmacyID != uuid.Nil {
		req.Header.Set(middleware.PharmacyHeaderKey, c.PharmacyID.String())
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	c.Engine.ServeHTTP(w, req)
	return w
}

// Decode parses the response envelope.
func Decode(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	return env
}

// DecodeData parses the data member of a successful response.
func DecodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	env := Decode(t, w)
	require.True(t, env.Success, "body: %s", w.Body.String())
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

// AssertErrorCode checks the status and error code of a failed response.
func AssertErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assert.Equal(t, status, w.Code, "body: %s", w.Body.String())
	env := Decode(t, w)
	assert.False(t, env.Success)
	if assert.NotNil(t, env.Error) {
		assert.Equal(t, code, env.Error.Code)
	}
}

// StatusOK is a readability shortcut for assert.Equal on 200.
func StatusOK(t *testing.T, w *httptest.ResponseRecorder) bool {
	t.Helper()
	return assert.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
}
