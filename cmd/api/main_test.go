package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func TestServe_ShutdownWithTurnInFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
	})}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var stopped atomic.Bool
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, srv, ln, 50*time.Millisecond, func() { stopped.Store(true) })
	}()

	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/sessions/s/messages")
		if err == nil {
			resp.Body.Close()
		}
	}()
	<-entered
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected a clean exit despite the in-flight request, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("serve did not return after the shutdown timeout")
	}
	if !stopped.Load() {
		t.Fatalf("signal handling was not released on the first signal")
	}
}

func TestServe_ListenerError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ln.Close()

	err = serve(context.Background(), &http.Server{}, ln, time.Second, func() {})
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		t.Fatalf("expected the serve error, got %v", err)
	}
}
