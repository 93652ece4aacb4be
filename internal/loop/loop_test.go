package loop

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/loopback-bridge/bridge/internal/datagram"
	"github.com/loopback-bridge/bridge/internal/events"
	"github.com/loopback-bridge/bridge/internal/logging"
	"github.com/loopback-bridge/bridge/internal/session"
	"github.com/loopback-bridge/bridge/test/testutil"
)

func TestPollControl_DecodesAndDispatches(t *testing.T) {
	controllerSock, err := net.ListenUDP("udp6", &net.UDPAddr{IP: net.IPv6loopback})
	if err != nil {
		t.Fatalf("failed to bind controller socket: %v", err)
	}
	defer controllerSock.Close()

	bridgeControlSock, err := net.ListenUDP("udp6", &net.UDPAddr{IP: net.IPv6loopback})
	if err != nil {
		t.Fatalf("failed to bind bridge control socket: %v", err)
	}
	defer bridgeControlSock.Close()

	logger := logging.NewLogger(logging.LevelError)
	controllerAddr := controllerSock.LocalAddr().(*net.UDPAddr)
	sess := session.New(bridgeControlSock, controllerAddr, logger, events.NopEmitter{})
	defer sess.Close()

	go func() {
		buf, _ := datagram.Encode(datagram.TagMkLocal, nil, session.RecvBufferSize)
		_, _ = controllerSock.WriteToUDP(buf, bridgeControlSock.LocalAddr().(*net.UDPAddr))
	}()

	buf := make([]byte, session.RecvBufferSize)
	if err := pollControl(sess, buf, time.Now().Add(2*time.Second)); err != nil {
		t.Fatalf("pollControl() error = %v", err)
	}

	ok := testutil.WaitFor(time.Second, sess.PeerSocketReady)
	if !ok {
		t.Fatal("expected peer socket to be ready after MKLOCAL- dispatch")
	}
}

func TestPollPeer_NoSocketSleepsOutBudget(t *testing.T) {
	controllerSock, err := net.ListenUDP("udp6", &net.UDPAddr{IP: net.IPv6loopback})
	if err != nil {
		t.Fatalf("failed to bind controller socket: %v", err)
	}
	defer controllerSock.Close()

	bridgeControlSock, err := net.ListenUDP("udp6", &net.UDPAddr{IP: net.IPv6loopback})
	if err != nil {
		t.Fatalf("failed to bind bridge control socket: %v", err)
	}
	defer bridgeControlSock.Close()

	logger := logging.NewLogger(logging.LevelError)
	controllerAddr := controllerSock.LocalAddr().(*net.UDPAddr)
	sess := session.New(bridgeControlSock, controllerAddr, logger, events.NopEmitter{})
	defer sess.Close()

	buf := make([]byte, session.RecvBufferSize)
	start := time.Now()
	if err := pollPeer(sess, buf, 20*time.Millisecond); err != nil {
		t.Fatalf("pollPeer() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("expected pollPeer to sleep out the budget, elapsed %v", elapsed)
	}
}

func TestPollControl_NonTimeoutErrorIsFatal(t *testing.T) {
	controllerSock, err := net.ListenUDP("udp6", &net.UDPAddr{IP: net.IPv6loopback})
	if err != nil {
		t.Fatalf("failed to bind controller socket: %v", err)
	}
	controllerAddr := controllerSock.LocalAddr().(*net.UDPAddr)
	controllerSock.Close()

	bridgeControlSock, err := net.ListenUDP("udp6", &net.UDPAddr{IP: net.IPv6loopback})
	if err != nil {
		t.Fatalf("failed to bind bridge control socket: %v", err)
	}

	logger := logging.NewLogger(logging.LevelError)
	sess := session.New(bridgeControlSock, controllerAddr, logger, events.NopEmitter{})
	defer sess.Close()

	bridgeControlSock.Close()

	buf := make([]byte, session.RecvBufferSize)
	if err := pollControl(sess, buf, time.Now().Add(2*time.Second)); err == nil {
		t.Fatal("expected a non-nil error reading from a closed control socket")
	}
}

func TestRun_ControlSocketErrorStopsLoopWithError(t *testing.T) {
	controllerSock, err := net.ListenUDP("udp6", &net.UDPAddr{IP: net.IPv6loopback})
	if err != nil {
		t.Fatalf("failed to bind controller socket: %v", err)
	}
	controllerAddr := controllerSock.LocalAddr().(*net.UDPAddr)
	controllerSock.Close()

	bridgeControlSock, err := net.ListenUDP("udp6", &net.UDPAddr{IP: net.IPv6loopback})
	if err != nil {
		t.Fatalf("failed to bind bridge control socket: %v", err)
	}
	bridgeControlSock.Close()

	logger := logging.NewLogger(logging.LevelError)
	sess := session.New(bridgeControlSock, controllerAddr, logger, events.NopEmitter{})
	defer sess.Close()

	done := make(chan error, 1)
	go func() { done <- Run(context.Background(), sess, logger) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected Run to return a non-nil error from a closed control socket")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after a fatal control socket error")
	}
}
