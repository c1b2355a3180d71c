package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/twofactor/pkg/config"
)

type storeConfig struct {
	URL     string        `env:"TEST_STORE_URL" envDefault:"redis://localhost:6379/0"`
	Retries int           `env:"TEST_STORE_RETRIES" envDefault:"3"`
	Timeout time.Duration `env:"TEST_STORE_TIMEOUT" envDefault:"5s"`
}

type cachedConfig struct {
	Issuer string `env:"TEST_CACHED_ISSUER" envDefault:"default"`
}

type requiredConfig struct {
	Key string `env:"TEST_REQUIRED_KEY,required"`
}

func TestParse_FromEnvironment(t *testing.T) {
	t.Setenv("TEST_STORE_URL", "redis://cache:6379/1")
	t.Setenv("TEST_STORE_RETRIES", "7")
	t.Setenv("TEST_STORE_TIMEOUT", "250ms")

	cfg, err := config.Parse[storeConfig]()
	require.NoError(t, err)
	assert.Equal(t, "redis://cache:6379/1", cfg.URL)
	assert.Equal(t, 7, cfg.Retries)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)
}

func TestParse_Defaults(t *testing.T) {
	os.Unsetenv("TEST_STORE_URL")
	os.Unsetenv("TEST_STORE_RETRIES")
	os.Unsetenv("TEST_STORE_TIMEOUT")

	cfg, err := config.Parse[storeConfig]()
	require.NoError(t, err)
	assert.Equal(t, "redis://localhost:6379/0", cfg.URL)
	assert.Equal(t, 3, cfg.Retries)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv("TEST_REQUIRED_KEY")

	var cfg requiredConfig
	err := config.Load(&cfg)
	assert.ErrorIs(t, err, config.ErrParsingConfig)

	// Failures are not cached.
	t.Setenv("TEST_REQUIRED_KEY", "present")
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "present", cfg.Key)
}

func TestLoad_CachedPerType(t *testing.T) {
	t.Setenv("TEST_CACHED_ISSUER", "first")

	var a cachedConfig
	require.NoError(t, config.Load(&a))
	assert.Equal(t, "first", a.Issuer)

	t.Setenv("TEST_CACHED_ISSUER", "second")

	var b cachedConfig
	require.NoError(t, config.Load(&b))
	assert.Equal(t, "first", b.Issuer)
}

func TestLoad_NilPointer(t *testing.T) {
	assert.ErrorIs(t, config.Load[storeConfig](nil), config.ErrNilPointer)
}

func TestMustLoad_Panics(t *testing.T) {
	os.Unsetenv("TEST_REQUIRED_KEY_PANIC")

	type panicConfig struct {
		Key string `env:"TEST_REQUIRED_KEY_PANIC,required"`
	}
	var cfg panicConfig
	assert.Panics(t, func() { config.MustLoad(&cfg) })
}
