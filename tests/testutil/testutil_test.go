package testutil

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/pharmabill/backend/internal/domain/client"
	"github.com/pharmabill/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockDB(t *testing.T) {
	m := NewMockDB(t)
	m.Mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))

	var n int
	require.NoError(t, m.DB.Raw("SELECT 1").Scan(&n).Error)
	assert.Equal(t, 1, n)
	m.ExpectationsWereMet(t)
}

func TestFixtures(t *testing.T) {
	assert.Equal(t, TestPharmacyID(), NewTestUUID("pharmacy"))
	assert.NotEqual(t, TestPharmacyID(), TestUserID())
	assert.Equal(t, "1452.00", ARS(t, "1452").StringFixed())
	assert.Equal(t, "+5491112345678", Phone(t, "+5491112345678").String())
}

func TestRecordingEventHandler(t *testing.T) {
	h := NewRecordingEventHandler(client.EventTypeClientCharged)
	assert.Equal(t, []string{client.EventTypeClientCharged}, h.EventTypes())

	c, err := client.NewClient(TestPharmacyID(), "Ana", "García", Phone(t, "+5491112345678"), ARS(t, "1000"))
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), client.NewClientCreatedEvent(c)))

	assert.True(t, WaitForEvents(h, 1, time.Second))
	assert.False(t, WaitForEvents(h, 2, 20*time.Millisecond))
	assert.Equal(t, []string{client.EventTypeClientCreated}, h.Types())

	h.SetError(errors.New("boom"))
	assert.Error(t, h.Handle(context.Background(), client.NewClientCreatedEvent(c)))

	h.Reset()
	assert.Empty(t, h.Handled())
}

func TestAPIClient(t *testing.T) {
	engine := gin.New()
	engine.POST("/echo", func(c *gin.Context) {
		var body map[string]string
		_ = c.ShouldBindJSON(&body)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"pharmacy": c.GetHeader(middleware.PharmacyHeaderKey),
				"auth":     c.GetHeader("Authorization"),
				"key":      c.GetHeader(middleware.IdempotencyKeyHeader),
				"name":     body["name"],
			},
		})
	})
	engine.GET("/fail", func(c *gin.Context) {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": gin.H{"code": "ALREADY_EXISTS", "message": "dup"}})
	})

	api := &APIClient{Engine: engine, PharmacyID: TestPharmacyID()}
	w := api.Do(t, http.MethodPost, "/echo", map[string]string{"name": "Ana"}, middleware.IdempotencyKeyHeader, "k-1")
	StatusOK(t, w)
	data := DecodeData[map[string]string](t, w)
	assert.Equal(t, TestPharmacyID().String(), data["pharmacy"])
	assert.Equal(t, "k-1", data["key"])
	assert.Equal(t, "Ana", data["name"])
	assert.Empty(t, data["auth"])

	api.Token = "abc"
	data = DecodeData[map[string]string](t, api.Do(t, http.MethodPost, "/echo", nil))
	assert.Equal(t, "Bearer abc", data["auth"])
	assert.Empty(t, data["pharmacy"])

	AssertErrorCode(t, api.Do(t, http.MethodGet, "/fail", nil), http.StatusConflict, "ALREADY_EXISTS")
}
