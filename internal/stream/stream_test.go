package stream

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestServerStreamsPublishedFrames(t *testing.T) {
	srv := New("127.0.0.1:0")
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	// Keep publishing a recognizable frame while the client connects.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		payload := []byte("\xff\xd8mock-jpeg-frame\xff\xd9")
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				srv.Publish(payload)
			}
		}
	}()

	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "multipart/x-mixed-replace") {
		t.Fatalf("Expected an MJPEG content type, got %q", ct)
	}

	// Read until the published frame shows up in a multipart chunk.
	var got []byte
	buf := make([]byte, 4096)
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		n, err := resp.Body.Read(buf)
		got = append(got, buf[:n]...)
		if bytes.Contains(got, []byte("mock-jpeg-frame")) {
			return
		}
		if err != nil {
			break
		}
	}
	t.Fatalf("Never received a published frame, read %d bytes", len(got))
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	srv := New("127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Expected a clean shutdown, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Server did not stop after cancellation")
	}
}
