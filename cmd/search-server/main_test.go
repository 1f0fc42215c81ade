package main

import (
	"bytes"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docsearch/internal/logging"
)

func TestShutdown_LogsTimeout(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
	})}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(ln)

	go http.Get("http://" + ln.Addr().String())
	<-started

	var buf bytes.Buffer
	shutdown(srv, 10*time.Millisecond, logging.New("info", "text", &buf))
	close(release)

	assert.Contains(t, buf.String(), "HTTP server shutdown error")
	assert.Contains(t, buf.String(), "context deadline exceeded")
}

func TestShutdown_Clean(t *testing.T) {
	srv := &http.Server{Handler: http.NotFoundHandler()}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(ln)

	var buf bytes.Buffer
	shutdown(srv, time.Second, logging.New("info", "text", &buf))

	assert.Contains(t, buf.String(), "Shutting down HTTP server")
	assert.NotContains(t, buf.String(), "shutdown error")
}
