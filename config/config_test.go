package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Should apply defaults", func(t *testing.T) {
		t.Setenv("DB_DSN", "postgres://localhost/referify")
		t.Setenv("JWT_SECRET", "secret")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, "postgres", cfg.DBDriver)
		assert.Equal(t, time.Hour, cfg.AccessTTL)
		assert.Equal(t, "resumes", cfg.ResumeBucket)
		assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
		assert.False(t, cfg.Production())
	})

	t.Run("Should fail without required secrets", func(t *testing.T) {
		t.Setenv("DB_DSN", "postgres://localhost/referify")
		t.Setenv("JWT_SECRET", "unset")
		require.NoError(t, os.Unsetenv("JWT_SECRET"))

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("Should read overrides", func(t *testing.T) {
		t.Setenv("DB_DSN", "root@tcp(localhost:3306)/referify")
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("DB_DRIVER", "mysql")
		t.Setenv("APP_ENV", "production")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "mysql", cfg.DBDriver)
		assert.True(t, cfg.Production())
		assert.Len(t, cfg.AllowedOrigins, 2)
	})
}
