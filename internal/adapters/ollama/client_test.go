package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/Yogeshviper/azure-ai-operator/internal/core/domain"
)

func TestClient_AnalyzeIntent(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		responseBody string
		want         domain.Intent
		wantErr      bool
		wantParseErr bool
	}{
		{
			name:         "Success",
			status:       http.StatusOK,
			responseBody: `{"message":{"role":"assistant","content":"{\"action\":\"create_vm\",\"name\":\"vm1\",\"resource_group\":\"rg1\",\"location\":\"eastus\",\"os_type\":\"windows\"}"}}`,
			want:         domain.CreateVirtualMachine{Name: "vm1", ResourceGroup: "rg1", Location: "eastus", OSType: "windows"},
		},
		{
			name:         "Server error",
			status:       http.StatusInternalServerError,
			responseBody: `{"error":"bad"}`,
			wantErr:      true,
		},
		{
			name:         "Error field",
			status:       http.StatusOK,
			responseBody: `{"error":"model not found"}`,
			wantErr:      true,
		},
		{
			name:         "Malformed intent",
			status:       http.StatusOK,
			responseBody: `{"message":{"role":"assistant","content":"I think you want a VM"}}`,
			wantErr:      true,
			wantParseErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			var gotRequest chatRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/chat" {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				if r.Method != http.MethodPost {
					w.WriteHeader(http.StatusMethodNotAllowed)
					return
				}
				if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.responseBody))
			}))
			defer srv.Close()

			client := NewClient(srv.URL+"/", "mistral", time.Second)
			intent, err := client.AnalyzeIntent(context.Background(), "test message")

			if (err != nil) != tt.wantErr {
				t.Fatalf("expected err=%v, got %v", tt.wantErr, err)
			}
			if tt.wantParseErr && !errors.Is(err, domain.ErrIntentParse) {
				t.Fatalf("expected parse error, got %v", err)
			}
			if tt.wantErr {
				return
			}
			if gotRequest.Model != "mistral" {
				t.Fatalf("expected model mistral, got %q", gotRequest.Model)
			}
			if gotRequest.Format != "json" {
				t.Fatalf("expected format json, got %q", gotRequest.Format)
			}
			if gotRequest.Options.Temperature != 0 {
				t.Fatalf("expected temperature 0, got %v", gotRequest.Options.Temperature)
			}
			if len(gotRequest.Messages) != 2 {
				t.Fatalf("expected 2 messages, got %d", len(gotRequest.Messages))
			}
			if gotRequest.Messages[0].Role != "system" || gotRequest.Messages[0].Content != domain.IntentInstructions {
				t.Fatalf("system prompt mismatch")
			}
			if gotRequest.Messages[1].Role != "user" || gotRequest.Messages[1].Content != "test message" {
				t.Fatalf("user message mismatch")
			}
			if !reflect.DeepEqual(intent, tt.want) {
				t.Fatalf("want %#v, got %#v", tt.want, intent)
			}
		})
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("", "", 0)
	if c.baseURL != defaultBaseURL || c.model != defaultModel {
		t.Fatalf("unexpected defaults %+v", c)
	}
}
