package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, s *Server) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- s.Start("127.0.0.1:0") }()
	return done
}

func waitStopped(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}

func TestServerServesUntilShutdown(t *testing.T) {
	s := newTestEnv(t).server
	done := startServer(t, s)

	require.Eventually(t, func() bool { return s.Addr() != nil }, 2*time.Second, 5*time.Millisecond)
	resp, err := http.Get("http://" + s.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	waitStopped(t, done)
}

func TestShutdownBeforeStartStopsServer(t *testing.T) {
	s := newTestEnv(t).server
	require.NoError(t, s.Shutdown(context.Background()))

	done := startServer(t, s)
	waitStopped(t, done)
	require.Nil(t, s.Addr())
}

func TestShutdownRacingStart(t *testing.T) {
	for i := 0; i < 20; i++ {
		s := newTestEnv(t).server
		done := startServer(t, s)
		require.NoError(t, s.Shutdown(context.Background()))
		waitStopped(t, done)
	}
}
