// Package conf loads the operator configuration from an optional YAML file
// and the process environment.
package conf

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderAzureOpenAI = "azureopenai"
	ProviderOllama      = "ollama"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Azure subscription and service principal. When the principal is
// incomplete the ambient identity is used instead.
type AzureConfig struct {
	SubscriptionID string `yaml:"subscriptionId"`
	TenantID       string `yaml:"tenantId,omitempty"`
	ClientID       string `yaml:"clientId,omitempty"`
	ClientSecret   string `yaml:"-"`
}

// HasServicePrincipal reports whether all three principal values are set.
func (c AzureConfig) HasServicePrincipal() bool {
	return c.TenantID != "" && c.ClientID != "" && c.ClientSecret != ""
}

type LLMConfig struct {
	Provider string `yaml:"provider"`

	Endpoint   string `yaml:"endpoint,omitempty"`
	APIKey     string `yaml:"-"`
	Deployment string `yaml:"deployment,omitempty"`
	APIVersion string `yaml:"apiVersion,omitempty"`

	OllamaHost  string `yaml:"ollamaHost,omitempty"`
	OllamaModel string `yaml:"ollamaModel,omitempty"`

	Timeout time.Duration `yaml:"timeout,omitempty"`
}

type ProvisioningConfig struct {
	AdminUsername string        `yaml:"adminUsername"`
	AdminPassword string        `yaml:"-"`
	Timeout       time.Duration `yaml:"timeout"`
	PollFrequency time.Duration `yaml:"pollFrequency"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlitePath,omitempty"`
	PostgresDSN string `yaml:"-"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	Workers   int    `yaml:"workers"`
	QueueSize int    `yaml:"queueSize"`
}

type LoggingConfig struct {
	LevelStr string `yaml:"level"`
	Format   string `yaml:"format"`
}

type MonitoringConfig struct {
	// Labels added to every exported metric.
	Labels map[string]string `yaml:"labels,omitempty"`
}

type Config struct {
	Azure        AzureConfig        `yaml:"azure"`
	LLM          LLMConfig          `yaml:"llm"`
	Provisioning ProvisioningConfig `yaml:"provisioning"`
	Storage      StorageConfig      `yaml:"storage"`
	Server       ServerConfig       `yaml:"server"`
	Logging      LoggingConfig      `yaml:"logging"`
	Monitoring   MonitoringConfig   `yaml:"monitoring"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		LLM: LLMConfig{
			Provider:    ProviderAzureOpenAI,
			APIVersion:  "2024-06-01",
			OllamaHost:  "http://localhost:11434",
			OllamaModel: "llama3.1:8b",
			Timeout:     60 * time.Second,
		},
		Provisioning: ProvisioningConfig{
			AdminUsername: "azureuser",
			Timeout:       30 * time.Minute,
			PollFrequency: 10 * time.Second,
		},
		Storage: StorageConfig{
			Driver:     DriverSQLite,
			SQLitePath: "operator.db",
		},
		Server: ServerConfig{
			Addr:      ":8080",
			Workers:   4,
			QueueSize: 16,
		},
		Logging: LoggingConfig{
			LevelStr: "info",
			Format:   "text",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// OPERATOR_CONFIG, then environment variables.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("OPERATOR_CONFIG"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("conf: open %s: %w", path, err)
		}
		defer f.Close()
		if err := cfg.decodeYAML(f); err != nil {
			return Config{}, fmt.Errorf("conf: %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) decodeYAML(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Azure.SubscriptionID, "AZURE_SUBSCRIPTION_ID")
	setString(&c.Azure.TenantID, "AZURE_TENANT_ID")
	setString(&c.Azure.ClientID, "AZURE_CLIENT_ID")
	setString(&c.Azure.ClientSecret, "AZURE_CLIENT_SECRET")

	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.Endpoint, "AZURE_OPENAI_ENDPOINT")
	setString(&c.LLM.APIKey, "AZURE_OPENAI_API_KEY")
	setString(&c.LLM.Deployment, "AZURE_OPENAI_DEPLOYMENT_NAME")
	setString(&c.LLM.APIVersion, "AZURE_OPENAI_API_VERSION")
	setString(&c.LLM.OllamaHost, "OLLAMA_HOST")
	setString(&c.LLM.OllamaModel, "OLLAMA_MODEL")

	setString(&c.Provisioning.AdminUsername, "VM_ADMIN_USERNAME")
	setString(&c.Provisioning.AdminPassword, "VM_ADMIN_PASSWORD")

	setString(&c.Storage.Driver, "STORAGE_DRIVER")
	setString(&c.Storage.SQLitePath, "SQLITE_PATH")
	setString(&c.Storage.PostgresDSN, "POSTGRES_DSN")

	setString(&c.Server.Addr, "HTTP_ADDR")
	setString(&c.Logging.LevelStr, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")

	for key, dst := range map[string]*time.Duration{
		"LLM_TIMEOUT":       &c.LLM.Timeout,
		"PROVISION_TIMEOUT": &c.Provisioning.Timeout,
		"POLL_FREQUENCY":    &c.Provisioning.PollFrequency,
	} {
		if err := setDuration(dst, key); err != nil {
			return err
		}
	}
	for key, dst := range map[string]*int{
		"WORKERS":    &c.Server.Workers,
		"QUEUE_SIZE": &c.Server.QueueSize,
	} {
		if err := setInt(dst, key); err != nil {
			return err
		}
	}

	if raw := getenv("METRICS_LABELS", ""); raw != "" {
		labels, err := parseLabels(raw)
		if err != nil {
			return fmt.Errorf("conf: METRICS_LABELS: %w", err)
		}
		c.Monitoring.Labels = labels
	}
	return nil
}

// Validate reports the first missing or inconsistent setting.
func (c Config) Validate() error {
	if c.Azure.SubscriptionID == "" {
		return missing("AZURE_SUBSCRIPTION_ID")
	}
	switch c.LLM.Provider {
	case ProviderAzureOpenAI:
		if c.LLM.Endpoint == "" {
			return missing("AZURE_OPENAI_ENDPOINT")
		}
		if c.LLM.Deployment == "" {
			return missing("AZURE_OPENAI_DEPLOYMENT_NAME")
		}
		if c.LLM.APIKey == "" && !c.Azure.HasServicePrincipal() {
			return errors.New("conf: AZURE_OPENAI_API_KEY or a complete service principal is required")
		}
	case ProviderOllama:
	default:
		return fmt.Errorf("conf: unknown LLM_PROVIDER %q", c.LLM.Provider)
	}
	switch c.Storage.Driver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return missing("POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("conf: unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.Provisioning.Timeout <= 0 {
		return errors.New("conf: PROVISION_TIMEOUT must be positive")
	}
	// The ARM poller rejects frequencies below one second.
	if c.Provisioning.PollFrequency < time.Second {
		return errors.New("conf: POLL_FREQUENCY must be at least 1s")
	}
	return nil
}

func missing(key string) error {
	return fmt.Errorf("conf: missing environment variable %s", key)
}

// getenv returns the trimmed value of key, or defaultValue if it is empty.
func getenv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func setString(dst *string, key string) {
	*dst = getenv(key, *dst)
}

func setDuration(dst *time.Duration, key string) error {
	raw := getenv(key, "")
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("conf: %s: %w", key, err)
	}
	*dst = d
	return nil
}

func setInt(dst *int, key string) error {
	raw := getenv(key, "")
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fmt.Errorf("conf: %s must be a positive integer, got %q", key, raw)
	}
	*dst = n
	return nil
}

func parseLabels(raw string) (map[string]string, error) {
	labels := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid label %q", pair)
		}
		labels[k] = v
	}
	return labels, nil
}
