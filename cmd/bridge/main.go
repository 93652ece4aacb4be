// bridge is a local-host UDP relay that mediates a peer-to-peer chat and
// file-transfer session between a controller process and a remote peer.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"runtime"
	"strconv"

	"github.com/loopback-bridge/bridge/internal/datagram"
	"github.com/loopback-bridge/bridge/internal/events"
	"github.com/loopback-bridge/bridge/internal/logging"
	"github.com/loopback-bridge/bridge/internal/loop"
	"github.com/loopback-bridge/bridge/internal/session"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 1 && (args[0] == "version" || args[0] == "--version" || args[0] == "-v") {
		fmt.Printf("bridge %s (%s/%s)\n", Version, runtime.GOOS, runtime.GOARCH)
		return 0
	}

	port, err := parsePort(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Usage: bridge <controller_port>\n%v\n", err)
		return 1
	}

	logger := logging.NewLogger(logging.LevelInfo)
	if lvl, ok := os.LookupEnv("BRIDGE_LOG_LEVEL"); ok {
		if parsed, perr := logging.ParseLevel(lvl); perr == nil {
			logger.SetLevel(parsed)
		}
	}

	emitter := events.Emitter(events.NopEmitter{})
	if path, ok := os.LookupEnv("BRIDGE_EVENTS_OUTPUT"); ok && path != "" {
		w, werr := openEventsOutput(path)
		if werr != nil {
			fmt.Fprintf(os.Stderr, "failed to open events output: %v\n", werr)
			return 1
		}
		emitter = events.NewAsyncJSONLineWriter(w)
		defer emitter.Close()
	}

	controllerAddr := &net.UDPAddr{IP: net.IPv6loopback, Port: port}

	controlSock, err := net.ListenUDP("udp6", &net.UDPAddr{IP: net.IPv6loopback})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to bind control socket: %v\n", err)
		return 1
	}

	sess := session.New(controlSock, controllerAddr, logger, emitter)
	defer controlSock.Close()
	defer sess.Close()

	boundPort := controlSock.LocalAddr().(*net.UDPAddr).Port
	if err := sess.SendToController(datagram.TagCtlPort, []byte(strconv.Itoa(boundPort))); err != nil {
		fmt.Fprintf(os.Stderr, "failed to announce control port: %v\n", err)
		return 1
	}
	if err := sess.SendToController(datagram.TagInfo, []byte("bridge started")); err != nil {
		fmt.Fprintf(os.Stderr, "failed to send startup notice: %v\n", err)
		return 1
	}

	logger.Info("bridge listening for controller on port %d, controller expected at %s", boundPort, controllerAddr)

	if err := loop.Run(context.Background(), sess, logger); err != nil {
		fmt.Fprintf(os.Stderr, "event loop failed: %v\n", err)
		return 1
	}

	logger.Info("bridge stopped")
	return 0
}

// parsePort validates the single positional controller-port argument.
func parsePort(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected exactly one argument: controller_port")
	}
	port, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("controller_port must be a decimal number: %w", err)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("controller_port must be in 1..65535, got %d", port)
	}
	return port, nil
}

// openEventsOutput resolves stdout, stderr, or a file path for BRIDGE_EVENTS_OUTPUT.
func openEventsOutput(path string) (*os.File, error) {
	switch path {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	}
}
