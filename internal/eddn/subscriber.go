package eddn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-zeromq/zmq4"
)

// DefaultEndpoint is the public relay.
const DefaultEndpoint = "tcp://eddn.edcd.io:9500"

// ErrReceiveTimeout is returned by Receive when no frame arrived within the timeout.
var ErrReceiveTimeout = errors.New("no frame received within timeout")

// Subscriber yields raw compressed frames from the feed.
type Subscriber interface {
	// Receive blocks until a frame arrives, the timeout elapses, or ctx is done.
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

type received struct {
	frame []byte
	err   error
}

// ZMQSubscriber subscribes to a relay over a ZeroMQ SUB socket.
type ZMQSubscriber struct {
	sock    zmq4.Socket
	frames  chan received
	done    chan struct{}
	timeout time.Duration
	logger  *slog.Logger
}

// DialZMQ connects a SUB socket to endpoint and subscribes to every topic.
func DialZMQ(ctx context.Context, endpoint string, timeout time.Duration, logger *slog.Logger) (*ZMQSubscriber, error) {
	sock := zmq4.NewSub(ctx, zmq4.WithAutomaticReconnect(true))
	if err := sock.Dial(endpoint); err != nil {
		_ = sock.Close()
		return nil, fmt.Errorf("dialing %s: %w", endpoint, err)
	}
	if err := sock.SetOption(zmq4.OptionSubscribe, ""); err != nil {
		_ = sock.Close()
		return nil, fmt.Errorf("subscribing: %w", err)
	}

	logger.Info("subscribed to relay", "endpoint", endpoint)

	s := &ZMQSubscriber{
		sock:    sock,
		frames:  make(chan received),
		done:    make(chan struct{}),
		timeout: timeout,
		logger:  logger,
	}
	go s.pump()
	return s, nil
}

func (s *ZMQSubscriber) pump() {
	const retryDelay = time.Second
	for {
		msg, err := s.sock.Recv()
		r := received{err: err}
		if err == nil {
			r.frame = msg.Bytes()
		}
		select {
		case s.frames <- r:
		case <-s.done:
			return
		}
		if err != nil {
			select {
			case <-time.After(retryDelay):
			case <-s.done:
				return
			}
		}
	}
}

// Receive returns the next frame or ErrReceiveTimeout.
func (s *ZMQSubscriber) Receive(ctx context.Context) ([]byte, error) {
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-s.frames:
		if r.err != nil {
			return nil, fmt.Errorf("receiving frame: %w", r.err)
		}
		return r.frame, nil
	case <-timer.C:
		return nil, ErrReceiveTimeout
	}
}

// Close stops the receive pump and closes the socket.
func (s *ZMQSubscriber) Close() error {
	close(s.done)
	return s.sock.Close()
}
