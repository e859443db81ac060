package db

import (
	"io/fs"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/code-pulse/internal/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(&config.DBConfig{
		Host:           "db.internal",
		Port:           5433,
		Username:       "pulse",
		Password:       "p@ss word",
		Database:       "code_pulse",
		SSLMode:        "require",
		ConnectTimeout: 1500 * time.Millisecond,
	})

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db.internal:5433", u.Host)
	assert.Equal(t, "/code_pulse", u.Path)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss word", pw)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
	assert.Equal(t, "2", u.Query().Get("connect_timeout"))
	assert.Equal(t, "code-pulse", u.Query().Get("application_name"))
}

func TestDSN_Defaults(t *testing.T) {
	u, err := url.Parse(DSN(&config.DBConfig{Host: "localhost", Port: 5432, Username: "pulse", Database: "code_pulse"}))
	require.NoError(t, err)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.False(t, u.Query().Has("connect_timeout"))
}

func TestMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrationsFS, "migrations/*.down.sql")
	require.NoError(t, err)
	require.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}
