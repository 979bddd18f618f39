package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")
	t.Setenv("JWT_SECRET", "testsecret123456789012345678901234")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("EMAILJS_VERIFY_TEMPLATE_ID", "template_verify")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "mongodb://localhost:27017", cfg.MongoDB.URI)
	require.Equal(t, "gramaalert", cfg.MongoDB.Database)
	require.Equal(t, 10*time.Second, cfg.MongoDB.Timeout)
	require.Equal(t, "localhost:6379", cfg.Redis.Address)
	require.Equal(t, "ADMIN2024", cfg.Auth.AdminAccessCode)
	require.Equal(t, "template_ppbuv1y", cfg.Email.StatusTemplateID)
	require.Equal(t, "template_verify", cfg.Email.VerifyTemplateID)
	require.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	require.Equal(t, "mongo", cfg.Store.Driver)
	require.Equal(t, "console", cfg.Log.Format)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfig_MissingSecret(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, "JWT_SECRET", cerr.Key)
}

func TestLoadConfig_MemoryStoreNeedsNoMongo(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("GO_ENV", "production")
	t.Setenv("EMAILJS_VERIFY_TEMPLATE_ID", "template_verify")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.Store.Driver)
	require.Equal(t, "json", cfg.Log.Format)
	require.True(t, cfg.IsProduction())
}

func TestLoadConfig_RequiresVerifyTemplate(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("EMAILJS_VERIFY_TEMPLATE_ID", "")

	_, err := LoadConfig()
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, "EMAILJS_VERIFY_TEMPLATE_ID", cerr.Key)
}
