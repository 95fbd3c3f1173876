package config

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateAndAddDefaults(t *testing.T) {
	// Test case with empty ProjectName and DataSource DNS
	cnf := Configuration{
		ProjectName: "",
		DataSource: DataSourceConfig{
			Dns: "",
		},
		Redis: RedisConfig{
			Dns: "localhost:6379",
		},
	}

	err := cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "data source DNS is required" {
		t.Errorf("Expected data source DNS required error, got %v", err)
	}
	cnf = Configuration{
		ProjectName: "",
		DataSource: DataSourceConfig{
			Dns: "postgres://localhost:5432",
		},
		Redis: RedisConfig{
			Dns: "",
		},
	}

	err = cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "redis DNS is required" {
		t.Errorf("Expected redis DNS required error, got %v", err)
	}

	cnf = Configuration{
		ProjectName: "Test Project",
		DataSource: DataSourceConfig{
			Dns: "some-dns",
		},
		Redis: RedisConfig{
			Dns: "localhost:6379",
		},
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if cnf.Server.Port != DEFAULT_PORT {
		t.Errorf("Expected default port %s, got %s", DEFAULT_PORT, cnf.Server.Port)
	}
}

func TestDefaultsMatchIngestionAndDeliveryPolicy(t *testing.T) {
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: "postgres://localhost:5432/skuflow"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
	}
	assert.NoError(t, cnf.validateAndAddDefaults())

	assert.Equal(t, 1000, cnf.Import.BatchSize)
	assert.Equal(t, PricePolicyZero, cnf.Import.InvalidPricePolicy)
	assert.Equal(t, 3, cnf.Queue.ImportMaxRetry)
	assert.Equal(t, 10*time.Second, cnf.Queue.ImportRetryDelay())
	assert.Equal(t, 10*time.Second, cnf.Webhook.Timeout())
	assert.Equal(t, 3, cnf.Webhook.MaxAttempts)
	assert.Equal(t, time.Minute, cnf.Webhook.RetryDelay())
	assert.Equal(t, "AcmeProductManager/1.0", cnf.Webhook.UserAgent)
	assert.Equal(t, "imports", cnf.Queue.ImportQueue)
	assert.Equal(t, "webhooks", cnf.Queue.WebhookQueue)
}

func TestInvalidPricePolicyRejected(t *testing.T) {
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: "postgres://localhost:5432/skuflow"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
		Import:     ImportConfig{InvalidPricePolicy: "explode"},
	}
	err := cnf.validateAndAddDefaults()
	assert.Error(t, err)

	cnf.Import.InvalidPricePolicy = " SKIP "
	assert.NoError(t, cnf.validateAndAddDefaults())
	assert.Equal(t, PricePolicySkip, cnf.Import.InvalidPricePolicy)
}

func TestRateLimitDefaults(t *testing.T) {
	rps := 10.0
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: "dns"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
		RateLimit:  RateLimitConfig{RequestsPerSecond: &rps},
	}
	assert.NoError(t, cnf.validateAndAddDefaults())
	if assert.NotNil(t, cnf.RateLimit.Burst) {
		assert.Equal(t, 20, *cnf.RateLimit.Burst)
	}
	if assert.NotNil(t, cnf.RateLimit.CleanupIntervalSec) {
		assert.Equal(t, 10800, *cnf.RateLimit.CleanupIntervalSec)
	}
}

func TestUploadRateLimitDefaults(t *testing.T) {
	uploadRPS := 0.2
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: "dns"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
		RateLimit:  RateLimitConfig{UploadRequestsPerSecond: &uploadRPS},
	}
	assert.NoError(t, cnf.validateAndAddDefaults())
	if assert.NotNil(t, cnf.RateLimit.UploadBurst) {
		assert.Equal(t, 1, *cnf.RateLimit.UploadBurst)
	}
	assert.Nil(t, cnf.RateLimit.RequestsPerSecond)
	assert.Nil(t, cnf.RateLimit.Burst)
}

func TestLoadConfigFromFile(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "skuflow.json")
	if err != nil {
		t.Fatalf("Unable to create temporary file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	sampleConfig := Configuration{
		ProjectName: "Temp Project",
		DataSource: DataSourceConfig{
			Dns: "temp-dns",
		},
		Redis: RedisConfig{
			Dns: "temp-redis",
		},
		Import: ImportConfig{BatchSize: 250},
	}
	if err := json.NewEncoder(tmpFile).Encode(sampleConfig); err != nil {
		t.Fatalf("Unable to write to temporary file: %v", err)
	}
	tmpFile.Close()

	// Environment variables override the file
	t.Setenv("SKUFLOW_PROJECT_NAME", "Env Project")
	t.Setenv("SKUFLOW_WEBHOOK_MAX_ATTEMPTS", "5")

	if err := loadConfigFromFile(tmpFile.Name()); err != nil {
		t.Fatalf("loadConfigFromFile failed: %v", err)
	}

	loadedConfig, err := Fetch()
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	assert.Equal(t, "Env Project", loadedConfig.ProjectName)
	assert.Equal(t, "temp-dns", loadedConfig.DataSource.Dns)
	assert.Equal(t, 250, loadedConfig.Import.BatchSize)
	assert.Equal(t, 5, loadedConfig.Webhook.MaxAttempts)
}
