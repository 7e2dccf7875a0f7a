package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managedEnv = []string{
	"FEEDSYNC_APP_NAME",
	"FEEDSYNC_APP_ENV",
	"FEEDSYNC_APP_PORT",
	"FEEDSYNC_DATABASE_DRIVER",
	"FEEDSYNC_DATABASE_PASSWORD",
	"FEEDSYNC_DATABASE_SSLMODE",
	"FEEDSYNC_DATABASE_MAX_OPEN_CONNS",
	"FEEDSYNC_DATABASE_MAX_IDLE_CONNS",
	"FEEDSYNC_SALEOR_API_URL",
	"FEEDSYNC_SALEOR_CHANNEL",
	"FEEDSYNC_SALEOR_PAGE_SIZE",
	"FEEDSYNC_SALEOR_MAX_CATEGORY_DEPTH",
	"FEEDSYNC_APL_TYPE",
	"FEEDSYNC_DELIVERY_CURRENCIES",
	"FEEDSYNC_DELIVERY_COD_SURCHARGE",
	"FEEDSYNC_SYNC_EVENT_TIMEOUT",
	"FEEDSYNC_SYNC_RESYNC_CRON",
	"FEEDSYNC_STORAGE_TYPE",
	"FEEDSYNC_STORAGE_S3_BUCKET",
	"FEEDSYNC_TELEMETRY_SAMPLING_RATIO",
}

// isolateEnv saves the managed variables, clears them and restores them after the test
func isolateEnv(t *testing.T) func() {
	t.Helper()
	original := make(map[string]string, len(managedEnv))
	for _, k := range managedEnv {
		original[k] = os.Getenv(k)
	}
	t.Cleanup(func() {
		for k, v := range original {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	})
	return func() {
		for _, k := range managedEnv {
			os.Unsetenv(k)
		}
	}
}

func TestLoad(t *testing.T) {
	clearEnv := isolateEnv(t)

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "feedsync", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, 10, cfg.Database.MaxOpenConns)
		assert.Equal(t, 100, cfg.Saleor.PageSize)
		assert.Equal(t, 32, cfg.Saleor.MaxCategoryDepth)
		assert.Equal(t, "file", cfg.APL.Type)
		assert.Equal(t, []string{"CZK", "EUR"}, cfg.Delivery.Currencies)
		assert.Equal(t, "heureka.xml", cfg.Feed.FileName)
		assert.Equal(t, 10*time.Minute, cfg.Sync.EventTimeout)
		assert.Equal(t, "local", cfg.Storage.Type)
		assert.Equal(t, "feedsync", cfg.Telemetry.ServiceName)
	})

	t.Run("loads values from environment variables with FEEDSYNC prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("FEEDSYNC_APP_NAME", "feeds")
		os.Setenv("FEEDSYNC_DATABASE_DRIVER", "sqlite")
		os.Setenv("FEEDSYNC_SALEOR_API_URL", "https://shop.example.com/graphql/")
		os.Setenv("FEEDSYNC_SALEOR_CHANNEL", "default-channel")
		os.Setenv("FEEDSYNC_SALEOR_MAX_CATEGORY_DEPTH", "8")
		os.Setenv("FEEDSYNC_DELIVERY_CURRENCIES", "CZK, EUR,USD")
		os.Setenv("FEEDSYNC_DELIVERY_COD_SURCHARGE", "30.50")
		os.Setenv("FEEDSYNC_SYNC_EVENT_TIMEOUT", "90s")
		os.Setenv("FEEDSYNC_SYNC_RESYNC_CRON", "0 3 * * *")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "feeds", cfg.App.Name)
		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, "https://shop.example.com/graphql/", cfg.Saleor.APIURL)
		assert.Equal(t, "default-channel", cfg.Saleor.Channel)
		assert.Equal(t, 8, cfg.Saleor.MaxCategoryDepth)
		assert.Equal(t, []string{"CZK", "EUR", "USD"}, cfg.Delivery.Currencies)
		assert.Equal(t, 90*time.Second, cfg.Sync.EventTimeout)
		assert.Equal(t, "0 3 * * *", cfg.Sync.ResyncCron)

		surcharge, err := cfg.Delivery.Surcharge()
		require.NoError(t, err)
		require.NotNil(t, surcharge)
		assert.Equal(t, "30.5", surcharge.String())
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv()
		os.Setenv("FEEDSYNC_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("FEEDSYNC_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects unknown database driver", func(t *testing.T) {
		clearEnv()
		os.Setenv("FEEDSYNC_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("rejects unknown credential store", func(t *testing.T) {
		clearEnv()
		os.Setenv("FEEDSYNC_APL_TYPE", "vault")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "apl.type")
	})

	t.Run("requires bucket for s3 storage", func(t *testing.T) {
		clearEnv()
		os.Setenv("FEEDSYNC_STORAGE_TYPE", "s3")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.s3_bucket")
	})

	t.Run("rejects page size above 100", func(t *testing.T) {
		clearEnv()
		os.Setenv("FEEDSYNC_SALEOR_PAGE_SIZE", "250")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "saleor.page_size")
	})

	t.Run("rejects relative api url", func(t *testing.T) {
		clearEnv()
		os.Setenv("FEEDSYNC_SALEOR_API_URL", "/graphql/")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "saleor.api_url")
	})

	t.Run("rejects malformed cod surcharge", func(t *testing.T) {
		clearEnv()
		os.Setenv("FEEDSYNC_DELIVERY_COD_SURCHARGE", "thirty")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "delivery.cod_surcharge")
	})

	t.Run("rejects sampling ratio out of range", func(t *testing.T) {
		clearEnv()
		os.Setenv("FEEDSYNC_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	clearEnv := isolateEnv(t)

	setValidProductionBase := func() {
		os.Setenv("FEEDSYNC_APP_ENV", "production")
		os.Setenv("FEEDSYNC_SALEOR_API_URL", "https://shop.example.com/graphql/")
		os.Setenv("FEEDSYNC_SALEOR_CHANNEL", "default-channel")
		os.Setenv("FEEDSYNC_DATABASE_PASSWORD", "secure-password")
		os.Setenv("FEEDSYNC_DATABASE_SSLMODE", "require")
		os.Setenv("FEEDSYNC_APL_TYPE", "redis")
	}

	t.Run("passes validation with valid production config", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.App.IsProduction())
	})

	t.Run("requires saleor.api_url in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("FEEDSYNC_SALEOR_API_URL")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "saleor.api_url is required in production")
	})

	t.Run("requires database.password in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("FEEDSYNC_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Setenv("FEEDSYNC_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("sqlite skips postgres credentials checks", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Setenv("FEEDSYNC_DATABASE_DRIVER", "sqlite")
		os.Unsetenv("FEEDSYNC_DATABASE_PASSWORD")

		_, err := Load()
		require.NoError(t, err)
	})

	t.Run("rejects static credentials in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Setenv("FEEDSYNC_APL_TYPE", "static")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "apl.type=static")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}

func TestDeliveryConfig_Surcharge(t *testing.T) {
	s, err := DeliveryConfig{}.Surcharge()
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = DeliveryConfig{CODSurcharge: " 25 "}.Surcharge()
	require.NoError(t, err)
	assert.Equal(t, "25", s.String())
}

func TestRedisConfig_Addr(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: 6380}.Addr())
}
