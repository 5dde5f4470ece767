package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoad_DefaultsAndFile(t *testing.T) {
	dir := writeConfig(t, `
api:
  base_url: https://backend.example.com
  token: secret
admin:
  ids: [1, 2]
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "https://backend.example.com", cfg.API.BaseURL)
	assert.Equal(t, "/api/v1/transaction-queues/", cfg.API.QueuesPath)
	assert.Equal(t, 10, cfg.API.PageSize)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, 3*time.Second, cfg.WebSocket.ReconnectInterval)
	assert.False(t, cfg.Database.Enabled)
	assert.True(t, cfg.IsAdmin(2))
	assert.False(t, cfg.IsAdmin(3))
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := writeConfig(t, `
api:
  base_url: https://backend.example.com
`)
	t.Setenv("API_PAGE_SIZE", "25")
	t.Setenv("WEBSOCKET_URL", "wss://backend.example.com/ws/queues/")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.API.PageSize)
	assert.Equal(t, "wss://backend.example.com/ws/queues/", cfg.WebSocket.URL)
}

func TestLoad_MissingBaseURL(t *testing.T) {
	dir := writeConfig(t, "bot:\n  token: x\n")

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestValidate_PageSizeBounds(t *testing.T) {
	cfg := &Config{API: APIConfig{BaseURL: "https://backend.example.com", PageSize: MaxPageSize}}
	assert.NoError(t, cfg.Validate())

	cfg.API.PageSize = MaxPageSize + 1
	assert.Error(t, cfg.Validate())

	cfg.API.PageSize = 0
	assert.Error(t, cfg.Validate())
}

func TestIsChatAllowed(t *testing.T) {
	cfg := &Config{}
	assert.True(t, cfg.IsChatAllowed(100))

	cfg.Whitelist.Chats = []int64{100}
	assert.True(t, cfg.IsChatAllowed(100))
	assert.False(t, cfg.IsChatAllowed(200))
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: 5432, Name: "n"}
	assert.Equal(t, "postgres://u:p@h:5432/n?sslmode=disable", d.DSN())
}
