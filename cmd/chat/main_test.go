package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Yogeshviper/azure-ai-operator/internal/conf"
)

func newFakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /sessions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"session_id":"s-1","message":"Azure AI Operator ready. Describe what you want to create."}`))
	})
	mux.HandleFunc("POST /sessions/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(req.Message, "broken") {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"malformed intent","code":"INTENT_PARSE_ERROR"}`))
			return
		}
		_, _ = w.Write([]byte(`{"session_id":"` + r.PathValue("id") + `","message":"Resource Group demo-rg created"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestChat(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		interactive bool
		want        []string
		wantAbsent  string
	}{
		{
			name:       "piped input prints replies without prompt",
			input:      "create rg demo-rg in eastus\n\n",
			want:       []string{"Azure AI Operator ready.", "Resource Group demo-rg created"},
			wantAbsent: prompt,
		},
		{
			name:        "interactive input shows prompt",
			input:       "create rg demo-rg\n",
			interactive: true,
			want:        []string{prompt, "Resource Group demo-rg created"},
		},
		{
			name:  "api errors are printed and the loop continues",
			input: "broken\ncreate rg\n",
			want:  []string{"error: INTENT_PARSE_ERROR: malformed intent", "Resource Group demo-rg created"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeAPI(t)
			var out bytes.Buffer
			c := newChatClient(srv.URL, time.Second)

			if err := chat(context.Background(), c, strings.NewReader(tt.input), &out, tt.interactive); err != nil {
				t.Fatalf("chat: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out.String(), want) {
					t.Errorf("expected output to contain %q, got %q", want, out.String())
				}
			}
			if tt.wantAbsent != "" && strings.Contains(out.String(), tt.wantAbsent) {
				t.Errorf("output should not contain %q: %q", tt.wantAbsent, out.String())
			}
		})
	}
}

func TestWaitForBackend(t *testing.T) {
	srv := newFakeAPI(t)
	if err := waitForBackend(context.Background(), srv.URL, time.Second); err != nil {
		t.Fatalf("expected healthy backend: %v", err)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	if err := waitForBackend(context.Background(), down.URL, 100*time.Millisecond); err == nil {
		t.Fatalf("expected timeout for unhealthy backend")
	}
}

func TestDefaultMessageTimeout_CoversVMChain(t *testing.T) {
	const awaitedVMSteps = 4
	worstCase := awaitedVMSteps * conf.Defaults().Provisioning.Timeout
	if defaultMessageTimeout <= worstCase {
		t.Fatalf("default timeout %v does not cover a %v VM chain", defaultMessageTimeout, worstCase)
	}
	if got := newRootCmd().Flag("timeout").DefValue; got != defaultMessageTimeout.String() {
		t.Fatalf("unexpected --timeout default %q", got)
	}
}

func TestRootCmd_Flags(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://operator:9090")
	cmd := newRootCmd()
	if got := cmd.Flag("backend").DefValue; got != "http://operator:9090" {
		t.Fatalf("expected backend default from env, got %q", got)
	}
	if err := cmd.ParseFlags([]string{"--backend", "http://x:1", "--wait", "1s"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if got := cmd.Flag("backend").Value.String(); got != "http://x:1" {
		t.Fatalf("unexpected backend %q", got)
	}
}
