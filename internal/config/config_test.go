package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")

	c := Load(NewViper())

	assert.Equal(t, ":3000", c.ListenAddr)
	assert.Equal(t, "openrouter", c.Provider)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
	assert.Equal(t, "http://localhost:3000", c.RelayURL)
	assert.Equal(t, 20*time.Second, c.RelayTimeout)
	assert.Equal(t, BackendFile, c.StoreBackend)
	assert.NotEmpty(t, c.StorePath)
	assert.False(t, c.TelemetryEnabled)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("SHOPCHAT_PROVIDER", "Anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("SHOPCHAT_RELAY_TIMEOUT", "15s")
	t.Setenv("SHOPCHAT_ALLOWED_ORIGINS", "https://shop.example, https://www.shop.example")
	t.Setenv("SHOPCHAT_STORE_BACKEND", "sqlite")

	c := Load(NewViper())

	assert.Equal(t, "anthropic", c.Provider)
	assert.Equal(t, "sk-test", c.APIKey)
	assert.Equal(t, 15*time.Second, c.RelayTimeout)
	assert.Equal(t, []string{"https://shop.example", "https://www.shop.example"}, c.AllowedOrigins)
	assert.Equal(t, BackendSQLite, c.StoreBackend)
}

func TestValidateServer(t *testing.T) {
	c := Config{Provider: "openrouter", ListenAddr: ":3000"}
	err := c.ValidateServer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENROUTER_API_KEY")

	c.APIKey = "k"
	assert.NoError(t, c.ValidateServer())

	c.Provider = "gemini"
	assert.Error(t, c.ValidateServer())
}

func TestValidateClient(t *testing.T) {
	c := Config{RelayURL: "http://localhost:3000", StoreBackend: BackendFile, StorePath: "/tmp/x"}
	assert.NoError(t, c.ValidateClient())

	c.StoreBackend = "redis"
	assert.Error(t, c.ValidateClient())

	c.StoreBackend = BackendMemory
	c.StorePath = ""
	assert.NoError(t, c.ValidateClient())

	c.RelayURL = ""
	assert.Error(t, c.ValidateClient())
}
