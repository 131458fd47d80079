package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/datahub/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.StorageBackend = config.BackendMemory
	c.DocumentKey = "app-test-key"
	c.LogLevel = "error"
	return c
}

func TestNewApp_Memory(t *testing.T) {
	c := memoryConfig()
	c.Admin.Email = "root@x.com"
	c.Admin.Password = "supersecret"

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.backend.Close() })

	u, err := app.store.GetUserByEmail(context.Background(), "root@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Admin", u.Role)

	rec := httptest.NewRecorder()
	app.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewApp_InvalidConfig(t *testing.T) {
	c := memoryConfig()
	c.DocumentKey = ""

	_, err := NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "document key is required")
}
