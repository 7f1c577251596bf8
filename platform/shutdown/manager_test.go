package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type stubServer struct {
	block    chan struct{}
	stopped  bool
	graceful bool
}

func (s *stubServer) GracefulStop() {
	<-s.block
	s.graceful = true
}

func (s *stubServer) Stop() {
	s.stopped = true
	close(s.block)
}

type stubCloser struct{ err error }

func (c stubCloser) Close() error { return c.err }

func TestManager_ReverseOrder(t *testing.T) {
	m := New(time.Second, zap.NewNop())

	var order []string
	for _, name := range []string{"store", "cache", "http"} {
		name := name
		m.Add(name, func(ctx context.Context) error {
			order = append(order, name)
			if name == "cache" {
				return errors.New("close failed")
			}
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.WaitContext(ctx)

	require.Equal(t, []string{"http", "cache", "store"}, order)

	// повторный вызов ничего не делает
	m.Shutdown()
	require.Len(t, order, 3)
}

func TestShutdownGRPCServer_ForcedStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := &stubServer{block: make(chan struct{})}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := ShutdownGRPCServer(srv)(ctx)
	require.Error(t, err)
	require.True(t, srv.stopped)
}

func TestClose(t *testing.T) {
	require.NoError(t, Close(stubCloser{})(context.Background()))
	require.Error(t, Close(stubCloser{err: errors.New("boom")})(context.Background()))
}
