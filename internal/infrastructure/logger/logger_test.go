package logger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNew(t *testing.T) {
	l, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.NotNil(t, l)

	path := filepath.Join(t.TempDir(), "app.log")
	l, err = New(&Config{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)
	l.Info("written")
	require.NoError(t, l.Sync())
	assert.FileExists(t, path)

	_, err = New(&Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestContextHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := WithContext(context.Background(), zap.New(core))
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithPharmacyID(ctx, "ph-1")
	ctx = WithUserID(ctx, "u-1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "ph-1", GetPharmacyID(ctx))
	assert.Equal(t, "u-1", GetUserID(ctx))

	L(ctx).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "ph-1", fields["pharmacy_id"])
	assert.Equal(t, "u-1", fields["user_id"])
	assert.NotContains(t, fields, "trace_id")
}

func TestFromContext_DefaultsToNop(t *testing.T) {
	assert.NotPanics(t, func() {
		FromContext(context.Background()).Info("nothing")
	})
}

func TestGinMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(Recovery(zap.New(core)), GinMiddleware(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) {
		GetGinLogger(c).Info("inside")
		c.Status(http.StatusOK)
	})
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	for _, path := range []string{"/ok?x=1", "/missing", "/panic"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if path == "/panic" {
			assert.Equal(t, http.StatusInternalServerError, w.Code)
		}
	}

	assert.Equal(t, 1, logs.FilterMessage("inside").Len())
	requests := logs.FilterMessage("HTTP Request").All()
	require.Len(t, requests, 2)
	assert.Equal(t, zapcore.InfoLevel, requests[0].Level)
	assert.Equal(t, "x=1", requests[0].ContextMap()["query"])
	assert.Equal(t, zapcore.WarnLevel, requests[1].Level)
	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
}

func TestGetGinLogger_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.NotNil(t, GetGinLogger(c))
}

func TestGormLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info, 50*time.Millisecond)
	ctx := WithRequestID(context.Background(), "req-9")
	sql := func() (string, int64) { return "SELECT 1", 1 }

	gl.Trace(ctx, time.Now(), sql, nil)
	gl.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	gl.Trace(ctx, time.Now(), sql, errors.New("syntax error"))
	gl.Trace(ctx, time.Now(), sql, gormlogger.ErrRecordNotFound)

	assert.Equal(t, 1, logs.FilterMessage("SQL").Len())
	assert.Equal(t, 1, logs.FilterMessage("Slow SQL").Len())
	errs := logs.FilterMessage("SQL error").All()
	require.Len(t, errs, 1)
	assert.Equal(t, "req-9", errs[0].ContextMap()["request_id"])

	silent := gl.LogMode(gormlogger.Silent)
	silent.Trace(ctx, time.Now(), sql, errors.New("ignored"))
	assert.Equal(t, 1, logs.FilterMessage("SQL error").Len())
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel(""))
}
