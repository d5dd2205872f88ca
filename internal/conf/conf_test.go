package conf

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPERATOR_CONFIG", "LLM_PROVIDER", "STORAGE_DRIVER", "POSTGRES_DSN", "HTTP_ADDR",
		"AZURE_TENANT_ID", "AZURE_CLIENT_ID", "AZURE_CLIENT_SECRET",
		"PROVISION_TIMEOUT", "POLL_FREQUENCY", "LLM_TIMEOUT", "WORKERS", "QUEUE_SIZE", "METRICS_LABELS",
		"VM_ADMIN_USERNAME", "SQLITE_PATH",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("AZURE_SUBSCRIPTION_ID", "sub-1")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://example.openai.azure.com/")
	t.Setenv("AZURE_OPENAI_DEPLOYMENT_NAME", " gpt-4o \n")
	t.Setenv("AZURE_OPENAI_API_KEY", "key")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.Deployment != "gpt-4o" {
		t.Errorf("expected trimmed deployment, got %q", cfg.LLM.Deployment)
	}
	if cfg.LLM.Provider != ProviderAzureOpenAI {
		t.Errorf("expected default provider %s, got %s", ProviderAzureOpenAI, cfg.LLM.Provider)
	}
	if cfg.Provisioning.Timeout != 30*time.Minute {
		t.Errorf("expected default provision timeout, got %s", cfg.Provisioning.Timeout)
	}
	if cfg.Storage.Driver != DriverSQLite || cfg.Storage.SQLitePath != "operator.db" {
		t.Errorf("unexpected storage defaults %+v", cfg.Storage)
	}
	if cfg.Provisioning.AdminUsername != "azureuser" {
		t.Errorf("unexpected admin username %q", cfg.Provisioning.AdminUsername)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PROVISION_TIMEOUT", "90s")
	t.Setenv("WORKERS", "8")
	t.Setenv("METRICS_LABELS", "env=test, region=eu")
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provisioning.Timeout != 90*time.Second {
		t.Errorf("expected 90s, got %s", cfg.Provisioning.Timeout)
	}
	if cfg.Server.Workers != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.Server.Workers)
	}
	if cfg.Monitoring.Labels["env"] != "test" || cfg.Monitoring.Labels["region"] != "eu" {
		t.Errorf("unexpected labels %v", cfg.Monitoring.Labels)
	}
	if cfg.Storage.Driver != DriverMemory {
		t.Errorf("expected memory driver, got %s", cfg.Storage.Driver)
	}
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	setBaseEnv(t)
	path := filepath.Join(t.TempDir(), "operator.yaml")
	content := `
llm:
  provider: ollama
  ollamaModel: mistral
provisioning:
  adminUsername: opsadmin
  timeout: 5m
  pollFrequency: 2s
server:
  addr: ":9090"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("OPERATOR_CONFIG", path)
	t.Setenv("HTTP_ADDR", ":7070")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.Provider != ProviderOllama || cfg.LLM.OllamaModel != "mistral" {
		t.Errorf("yaml llm settings not applied: %+v", cfg.LLM)
	}
	if cfg.Provisioning.AdminUsername != "opsadmin" || cfg.Provisioning.Timeout != 5*time.Minute {
		t.Errorf("yaml provisioning settings not applied: %+v", cfg.Provisioning)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("expected env to override yaml addr, got %s", cfg.Server.Addr)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing subscription",
			env:     map[string]string{"AZURE_SUBSCRIPTION_ID": ""},
			wantErr: "AZURE_SUBSCRIPTION_ID",
		},
		{
			name:    "no llm credentials",
			env:     map[string]string{"AZURE_OPENAI_API_KEY": ""},
			wantErr: "service principal",
		},
		{
			name:    "unknown provider",
			env:     map[string]string{"LLM_PROVIDER": "bard"},
			wantErr: "unknown LLM_PROVIDER",
		},
		{
			name:    "postgres without dsn",
			env:     map[string]string{"STORAGE_DRIVER": "postgres"},
			wantErr: "POSTGRES_DSN",
		},
		{
			name:    "bad duration",
			env:     map[string]string{"POLL_FREQUENCY": "soon"},
			wantErr: "POLL_FREQUENCY",
		},
		{
			name:    "bad worker count",
			env:     map[string]string{"WORKERS": "0"},
			wantErr: "WORKERS",
		},
		{
			name:    "bad labels",
			env:     map[string]string{"METRICS_LABELS": "novalue"},
			wantErr: "METRICS_LABELS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad_ServicePrincipalReplacesKey(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("AZURE_OPENAI_API_KEY", "")
	t.Setenv("AZURE_TENANT_ID", "tenant")
	t.Setenv("AZURE_CLIENT_ID", "client")
	t.Setenv("AZURE_CLIENT_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Azure.HasServicePrincipal() {
		t.Fatalf("expected service principal to be complete")
	}
}

func TestLoggingConfig(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := (LoggingConfig{LevelStr: tt.level}).Level(); got != tt.want {
			t.Errorf("level %q: want %v, got %v", tt.level, tt.want, got)
		}
	}

	var buf bytes.Buffer
	LoggingConfig{LevelStr: "info", Format: "json"}.NewLogger(&buf).Info("hello", "k", "v")
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Fatalf("expected json output, got %q", buf.String())
	}
}

func TestLoad_PollFrequencyFloor(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("POLL_FREQUENCY", "500ms")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "at least 1s") {
		t.Fatalf("expected poll frequency error, got %v", err)
	}
}
