package config

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BLUEPRINT_DB_DATABASE", "shop")
	t.Setenv("BLUEPRINT_DB_USERNAME", "app")
	t.Setenv("BLUEPRINT_DB_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.DB.LockTimeout)
	assert.Equal(t, 30*time.Minute, cfg.OrderExpiry)
	assert.Equal(t, 25, cfg.DB.MaxOpenConns)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BLUEPRINT_DB_DATABASE", "shop")
	t.Setenv("DB_LOCK_TIMEOUT", "750ms")
	t.Setenv("ORDER_EXPIRY", "0")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 750*time.Millisecond, cfg.DB.LockTimeout)
	assert.Equal(t, time.Duration(0), cfg.OrderExpiry)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing database", func(t *testing.T) {
		t.Setenv("BLUEPRINT_DB_DATABASE", "")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("BLUEPRINT_DB_DATABASE", "shop")
		t.Setenv("DB_LOCK_TIMEOUT", "soon")
		_, err := Load()
		assert.ErrorContains(t, err, "DB_LOCK_TIMEOUT")
	})
}

func TestDatabase_DSN(t *testing.T) {
	d := Database{
		Host: "db", Port: "5432", Username: "u", Password: "p", Name: "shop", Schema: "public",
		LockTimeout: 2 * time.Second, StatementTimeout: 10 * time.Second,
	}

	assert.Equal(t,
		"postgres://u:p@db:5432/shop?lock_timeout=2000&search_path=public&sslmode=disable&statement_timeout=10000",
		d.DSN(),
	)
}

func TestDatabase_DSNEscapesCredentials(t *testing.T) {
	d := Database{
		Host: "db", Port: "5432", Username: "shop@admin", Password: "p@ss/w#rd%?", Name: "shop",
		LockTimeout: time.Second, StatementTimeout: time.Second,
	}

	u, err := url.Parse(d.DSN())
	require.NoError(t, err)
	assert.Equal(t, "db:5432", u.Host)
	assert.Equal(t, "/shop", u.Path)
	assert.Equal(t, "shop@admin", u.User.Username())
	password, ok := u.User.Password()
	assert.True(t, ok)
	assert.Equal(t, "p@ss/w#rd%?", password)
	assert.Equal(t, "1000", u.Query().Get("lock_timeout"))
}
