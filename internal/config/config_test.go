package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "mentor_db",
		},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			Exchange: ExchangeConfig{Name: "learning_jobs_exchange"},
			Queue:    QueueConfig{Name: "learning_jobs_queue"},
		},
		Events: EventsConfig{Exchange: "cache_events_exchange"},
		Models: ModelsConfig{
			Backends: []BackendConfig{
				{Name: "primary", Model: "gpt-4o-mini", APIKeyEnv: "PRIMARY_MODEL_API_KEY"},
			},
			MaxRetries:     3,
			RequestTimeout: time.Minute,
		},
		Cache: CacheConfig{CleanupInterval: time.Minute},
		Worker: WorkerConfig{
			Concurrency:       4,
			MaxJobs:           100,
			JobTimeout:        5 * time.Minute,
			HeartbeatInterval: 10 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "mentor_db", cfg.Database.Database)
				assert.Equal(t, "learning_jobs_exchange", cfg.RabbitMQ.Exchange.Name)
				assert.Equal(t, "learning_jobs_queue", cfg.RabbitMQ.Queue.Name)
				assert.Equal(t, "cache_events_exchange", cfg.Events.Exchange)
				assert.Equal(t, "mentor-api-service", cfg.App.Name)

				require.Len(t, cfg.Models.Backends, 2)
				assert.Equal(t, "primary", cfg.Models.Backends[0].Name)
				assert.Equal(t, "fallback", cfg.Models.Backends[1].Name)
				assert.Equal(t, 3, cfg.Models.MaxRetries)

				assert.Equal(t, time.Hour, cfg.Cache.ProfileTTL)
				assert.Equal(t, 5*time.Minute, cfg.Cache.RecommendationsTTL)
				assert.Equal(t, 5*time.Minute, cfg.Worker.JobTimeout)
			}
		})
	}
}

func TestValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "server port too low",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "server port too high",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "invalid server port",
		},
		{
			name:    "empty database host",
			mutate:  func(c *Config) { c.Database.Host = "" },
			wantErr: "database host is required",
		},
		{
			name:    "empty database name",
			mutate:  func(c *Config) { c.Database.Database = "" },
			wantErr: "database name is required",
		},
		{
			name:    "empty rabbitmq host",
			mutate:  func(c *Config) { c.RabbitMQ.Host = "" },
			wantErr: "rabbitmq host is required",
		},
		{
			name:    "empty exchange name",
			mutate:  func(c *Config) { c.RabbitMQ.Exchange.Name = "" },
			wantErr: "rabbitmq exchange name is required",
		},
		{
			name:    "empty queue name",
			mutate:  func(c *Config) { c.RabbitMQ.Queue.Name = "" },
			wantErr: "rabbitmq queue name is required",
		},
		{
			name:    "empty events exchange",
			mutate:  func(c *Config) { c.Events.Exchange = "" },
			wantErr: "events exchange name is required",
		},
		{
			name:    "zero cache cleanup interval",
			mutate:  func(c *Config) { c.Cache.CleanupInterval = 0 },
			wantErr: "cache cleanup_interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateWorkerConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Worker.Concurrency = 0 },
			wantErr: "worker concurrency",
		},
		{
			name:    "zero job timeout",
			mutate:  func(c *Config) { c.Worker.JobTimeout = 0 },
			wantErr: "worker job_timeout",
		},
		{
			name:    "no model backends",
			mutate:  func(c *Config) { c.Models.Backends = nil },
			wantErr: "at least one model backend is required",
		},
		{
			name:    "backend without name",
			mutate:  func(c *Config) { c.Models.Backends[0].Name = "" },
			wantErr: "name is required",
		},
		{
			name:    "backend without model",
			mutate:  func(c *Config) { c.Models.Backends[0].Model = "" },
			wantErr: "model is required",
		},
		{
			name:    "zero model retries",
			mutate:  func(c *Config) { c.Models.MaxRetries = 0 },
			wantErr: "models max_retries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateWorkerConfig()

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoad_ValidateIntegration(t *testing.T) {
	t.Run("load and validate valid config", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)

		require.NoError(t, cfg.ValidateAPIConfig())
		require.NoError(t, cfg.ValidateWorkerConfig())
	})

	t.Run("load config with invalid port", func(t *testing.T) {
		cfg, err := Load("testdata/invalid_port.yaml")
		require.NoError(t, err)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})

	t.Run("load config with missing database", func(t *testing.T) {
		cfg, err := Load("testdata/missing_database.yaml")
		require.NoError(t, err)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database name is required")
	})
}

func TestBackendAPIKey(t *testing.T) {
	t.Setenv("TEST_MODEL_API_KEY", "sk-test")

	b := BackendConfig{Name: "primary", APIKeyEnv: "TEST_MODEL_API_KEY"}
	assert.Equal(t, "sk-test", b.APIKey())

	b.APIKeyEnv = "TEST_MODEL_API_KEY_UNSET"
	assert.Equal(t, "", b.APIKey())
}
