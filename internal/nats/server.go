// Package nats runs the embedded NATS server that backs form persistence.
package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/stepform/internal/logger"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

var log = logger.Default.Named("nats")

// StartEmbeddedNATS starts an in-process NATS server with JetStream enabled
// using dataDir for file storage. It listens on no network port.
func StartEmbeddedNATS(dataDir string) (*server.Server, error) {
	log.Debug("Starting embedded NATS server with data dir: %s", dataDir)

	opts := &server.Options{
		JetStream:  true,
		StoreDir:   dataDir,
		DontListen: true,
		NoSigs:     true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(4 * time.Second) {
		ns.Shutdown()
		return nil, errors.New("nats server failed to start within timeout")
	}

	log.Debug("NATS server ready for connections")
	return ns, nil
}

// ConnectInProcess creates an in-process connection to the embedded server.
func ConnectInProcess(ns *server.Server) (*nats.Conn, error) {
	conn, err := nats.Connect("", nats.InProcessServer(ns))
	if err != nil {
		return nil, fmt.Errorf("connecting to nats in-process: %w", err)
	}
	return conn, nil
}

// CreateJetStream creates a JetStream context from a NATS connection.
func CreateJetStream(nc *nats.Conn) (jetstream.JetStream, error) {
	return jetstream.New(nc)
}

// Shutdown drains the connection and stops the server, forcing both after
// a timeout so the CLI never hangs on exit.
func Shutdown(nc *nats.Conn, ns *server.Server) error {
	if nc != nil {
		drainDone := make(chan error, 1)
		go func() {
			drainDone <- nc.Drain()
		}()

		select {
		case err := <-drainDone:
			if err != nil {
				log.Warn("NATS drain failed, forcing close: %v", err)
				nc.Close()
			}
		case <-time.After(2 * time.Second):
			log.Warn("NATS drain timed out after 2s, forcing close")
			nc.Close()
		}
	}

	if ns != nil {
		ns.Shutdown()

		shutdownDone := make(chan struct{})
		go func() {
			ns.WaitForShutdown()
			close(shutdownDone)
		}()

		select {
		case <-shutdownDone:
			log.Debug("NATS server shut down cleanly")
		case <-time.After(5 * time.Second):
			return errors.New("nats server shutdown timed out")
		}
	}

	return nil
}

// Conn bundles the embedded server, its connection and the form stream.
type Conn struct {
	Server    *server.Server
	NC        *nats.Conn
	JetStream jetstream.JetStream
	Stream    jetstream.Stream
}

// Open starts the embedded server in dataDir and prepares the form stream.
func Open(ctx context.Context, dataDir string) (*Conn, error) {
	ns, err := StartEmbeddedNATS(dataDir)
	if err != nil {
		return nil, err
	}
	nc, err := ConnectInProcess(ns)
	if err != nil {
		_ = Shutdown(nil, ns)
		return nil, err
	}
	js, err := CreateJetStream(nc)
	if err != nil {
		_ = Shutdown(nc, ns)
		return nil, fmt.Errorf("creating jetstream: %w", err)
	}
	stream, err := SetupStream(ctx, js)
	if err != nil {
		_ = Shutdown(nc, ns)
		return nil, fmt.Errorf("setting up stream: %w", err)
	}
	return &Conn{Server: ns, NC: nc, JetStream: js, Stream: stream}, nil
}

// Close shuts the connection and server down.
func (c *Conn) Close() error {
	return Shutdown(c.NC, c.Server)
}
