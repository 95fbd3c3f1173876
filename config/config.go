/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5001"

	// Invalid price policies for CSV ingestion.
	PricePolicyZero = "zero" // substitute 0.00 and keep the row
	PricePolicySkip = "skip" // drop the row like a row without sku
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"SKUFLOW_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"SKUFLOW_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"SKUFLOW_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"SKUFLOW_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"SKUFLOW_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"SKUFLOW_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"SKUFLOW_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"SKUFLOW_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"SKUFLOW_REDIS_SKIP_TLS_VERIFY"`
}

// QueueConfig names the asynq queues and the job level retry policy.
type QueueConfig struct {
	ImportQueue         string `json:"import_queue" envconfig:"SKUFLOW_QUEUE_IMPORT_QUEUE"`
	WebhookQueue        string `json:"webhook_queue" envconfig:"SKUFLOW_QUEUE_WEBHOOK_QUEUE"`
	Concurrency         int    `json:"concurrency" envconfig:"SKUFLOW_QUEUE_CONCURRENCY"`
	ImportMaxRetry      int    `json:"import_max_retry" envconfig:"SKUFLOW_QUEUE_IMPORT_MAX_RETRY"`
	ImportRetryDelaySec int    `json:"import_retry_delay_sec" envconfig:"SKUFLOW_QUEUE_IMPORT_RETRY_DELAY_SEC"`
	MonitoringPort      string `json:"monitoring_port" envconfig:"SKUFLOW_QUEUE_MONITORING_PORT"`
}

// ImportConfig controls how uploaded CSV files are stored and parsed.
type ImportConfig struct {
	UploadDir          string `json:"upload_dir" envconfig:"SKUFLOW_IMPORT_UPLOAD_DIR"`
	BatchSize          int    `json:"batch_size" envconfig:"SKUFLOW_IMPORT_BATCH_SIZE"`
	InvalidPricePolicy string `json:"invalid_price_policy" envconfig:"SKUFLOW_IMPORT_INVALID_PRICE_POLICY"`
}

// WebhookConfig controls outbound webhook delivery.
type WebhookConfig struct {
	TimeoutSec          int    `json:"timeout_sec" envconfig:"SKUFLOW_WEBHOOK_TIMEOUT_SEC"`
	MaxAttempts         int    `json:"max_attempts" envconfig:"SKUFLOW_WEBHOOK_MAX_ATTEMPTS"`
	RetryDelaySec       int    `json:"retry_delay_sec" envconfig:"SKUFLOW_WEBHOOK_RETRY_DELAY_SEC"`
	UserAgent           string `json:"user_agent" envconfig:"SKUFLOW_WEBHOOK_USER_AGENT"`
	RegistryCacheTTLSec int    `json:"registry_cache_ttl_sec" envconfig:"SKUFLOW_WEBHOOK_REGISTRY_CACHE_TTL_SEC"`
}

// RateLimitConfig limits requests per client. The upload limits apply to
// POST /upload only; when unset, uploads count against the general limits.
type RateLimitConfig struct {
	RequestsPerSecond       *float64 `json:"requests_per_second" envconfig:"SKUFLOW_RATE_LIMIT_RPS"`
	Burst                   *int     `json:"burst" envconfig:"SKUFLOW_RATE_LIMIT_BURST"`
	UploadRequestsPerSecond *float64 `json:"upload_requests_per_second" envconfig:"SKUFLOW_RATE_LIMIT_UPLOAD_RPS"`
	UploadBurst             *int     `json:"upload_burst" envconfig:"SKUFLOW_RATE_LIMIT_UPLOAD_BURST"`
	CleanupIntervalSec      *int     `json:"cleanup_interval_sec" envconfig:"SKUFLOW_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"SKUFLOW_SLACK_WEBHOOK_URL"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type Configuration struct {
	ProjectName     string           `json:"project_name" envconfig:"SKUFLOW_PROJECT_NAME"`
	EnableTelemetry bool             `json:"enable_telemetry" envconfig:"SKUFLOW_ENABLE_TELEMETRY"`
	Server          ServerConfig     `json:"server"`
	DataSource      DataSourceConfig `json:"data_source"`
	Redis           RedisConfig      `json:"redis"`
	Queue           QueueConfig      `json:"queue"`
	Import          ImportConfig     `json:"import"`
	Webhook         WebhookConfig    `json:"webhook"`
	Notification    Notification     `json:"notification"`
	RateLimit       RateLimitConfig  `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("skuflow", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called skuflow.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Skuflow"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	cnf.setQueueDefaults()
	cnf.setImportDefaults()
	cnf.setWebhookDefaults()

	switch cnf.Import.InvalidPricePolicy {
	case PricePolicyZero, PricePolicySkip:
	default:
		return fmt.Errorf("invalid price policy %q, expected %q or %q", cnf.Import.InvalidPricePolicy, PricePolicyZero, PricePolicySkip)
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.UploadRequestsPerSecond != nil && cnf.RateLimit.UploadBurst == nil {
		defaultBurst := max(1, int(*cnf.RateLimit.UploadRequestsPerSecond))
		cnf.RateLimit.UploadBurst = &defaultBurst
		log.Printf("Warning: Upload rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

func (cnf *Configuration) setQueueDefaults() {
	if cnf.Queue.ImportQueue == "" {
		cnf.Queue.ImportQueue = "imports"
	}
	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = "webhooks"
	}
	if cnf.Queue.Concurrency <= 0 {
		cnf.Queue.Concurrency = 4
	}
	if cnf.Queue.ImportMaxRetry <= 0 {
		cnf.Queue.ImportMaxRetry = 3
	}
	if cnf.Queue.ImportRetryDelaySec <= 0 {
		cnf.Queue.ImportRetryDelaySec = 10
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = "5004"
	}
}

func (cnf *Configuration) setImportDefaults() {
	if cnf.Import.UploadDir == "" {
		cnf.Import.UploadDir = os.TempDir() + "/skuflow-uploads"
	}
	if cnf.Import.BatchSize <= 0 {
		cnf.Import.BatchSize = 1000
	}
	cnf.Import.InvalidPricePolicy = strings.ToLower(strings.TrimSpace(cnf.Import.InvalidPricePolicy))
	if cnf.Import.InvalidPricePolicy == "" {
		cnf.Import.InvalidPricePolicy = PricePolicyZero
	}
}

func (cnf *Configuration) setWebhookDefaults() {
	if cnf.Webhook.TimeoutSec <= 0 {
		cnf.Webhook.TimeoutSec = 10
	}
	if cnf.Webhook.MaxAttempts <= 0 {
		cnf.Webhook.MaxAttempts = 3
	}
	if cnf.Webhook.RetryDelaySec <= 0 {
		cnf.Webhook.RetryDelaySec = 60
	}
	if cnf.Webhook.UserAgent == "" {
		cnf.Webhook.UserAgent = "AcmeProductManager/1.0"
	}
	if cnf.Webhook.RegistryCacheTTLSec <= 0 {
		cnf.Webhook.RegistryCacheTTLSec = 30
	}
}

// ImportRetryDelay is the fixed delay between attempts of a failed import job.
func (q QueueConfig) ImportRetryDelay() time.Duration {
	return time.Duration(q.ImportRetryDelaySec) * time.Second
}

func (w WebhookConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSec) * time.Second
}

func (w WebhookConfig) RetryDelay() time.Duration {
	return time.Duration(w.RetryDelaySec) * time.Second
}

func (w WebhookConfig) RegistryCacheTTL() time.Duration {
	return time.Duration(w.RegistryCacheTTLSec) * time.Second
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
