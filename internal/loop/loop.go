// Package loop drives the bridge's single-threaded cooperative event loop:
// one goroutine, polling the control socket, then the peer socket, then the
// timer driver, every tick.
package loop

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loopback-bridge/bridge/internal/datagram"
	"github.com/loopback-bridge/bridge/internal/logging"
	"github.com/loopback-bridge/bridge/internal/session"
)

// TickInterval bounds how long one iteration of the loop may wait across
// both sockets before re-checking the timer driver and the exit flag. The
// control socket gets up to half this budget and the peer socket whatever
// remains, so the two reads together never wait longer than TickInterval.
const TickInterval = 250 * time.Millisecond

// Run drives sess until the controller or the remote peer requests exit, the
// process receives SIGINT/SIGTERM, or ctx is canceled. It installs its own
// signal handling in the manner of the teacher's Bridge.Run, so callers
// simply pass context.Background().
func Run(ctx context.Context, sess *session.Session, logger *logging.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal %v, shutting down", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	buf := make([]byte, session.RecvBufferSize)

	for ctx.Err() == nil && !sess.ExitRequested() {
		tickDeadline := time.Now().Add(TickInterval)

		if err := pollControl(sess, buf, time.Now().Add(TickInterval/2)); err != nil {
			logger.Error("control socket read failed, exiting: %v", err)
			return fmt.Errorf("loop: control socket: %w", err)
		}

		remaining := time.Until(tickDeadline)
		if remaining < 0 {
			remaining = 0
		}
		if err := pollPeer(sess, buf, remaining); err != nil {
			logger.Error("peer socket read failed, exiting: %v", err)
			return fmt.Errorf("loop: peer socket: %w", err)
		}

		sess.Tick(time.Now())
	}

	return nil
}

// pollControl attempts a single receive from the control socket, processing
// at most one datagram before returning. A non-timeout read error is fatal:
// it is returned to the caller so Run can unwind and report a non-zero exit.
func pollControl(sess *session.Session, buf []byte, deadline time.Time) error {
	conn := sess.ControlSocket()
	conn.SetReadDeadline(deadline)

	n, err := conn.Read(buf)
	if err != nil {
		if isTimeout(err) {
			return nil
		}
		return err
	}

	tag, payload, err := datagram.Decode(buf[:n])
	if err != nil {
		// Malformed datagram: dropped silently per the wire protocol's error
		// handling rules.
		return nil
	}
	sess.HandleControl(tag, payload)
	return nil
}

// pollPeer attempts a single receive from the peer socket, if one is bound,
// sleeping out the remaining tick budget otherwise so the tick cadence holds
// steady even before a mode has been selected. A non-timeout read error is
// fatal, mirroring pollControl.
func pollPeer(sess *session.Session, buf []byte, budget time.Duration) error {
	conn := sess.PeerSocket()
	if conn == nil {
		time.Sleep(budget)
		return nil
	}

	conn.SetReadDeadline(time.Now().Add(budget))
	n, from, err := conn.ReadFromUDP(buf)
	if err != nil {
		if isTimeout(err) {
			return nil
		}
		return err
	}

	tag, payload, err := datagram.Decode(buf[:n])
	if err != nil {
		return nil
	}
	sess.HandlePeer(tag, payload, from)
	return nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
