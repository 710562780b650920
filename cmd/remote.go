package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytplay/internal/protocol"
	"github.com/desertthunder/ytplay/internal/shared"
)

// defaultRemoteWait bounds how long remote listens for the reply to its command.
const defaultRemoteWait = 5 * time.Second

// Remote connects to a running server, sends one command and prints every envelope until the reply arrives.
//
// Arguments come from --data as a JSON object or from key=value pairs, whose values are sent as strings.
func (r *Runner) Remote(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("%w: command name", shared.ErrMissingArgument)
	}

	command := args[0]
	arguments, err := parseRemoteArguments(cmd.String("data"), args[1:])
	if err != nil {
		return err
	}

	if err := r.loadConfig(cmd.String("config")); err != nil {
		return err
	}

	target := cmd.String("url")
	if target == "" {
		target = remoteURL(r.config.Server)
	}

	r.logger.Debug("dialing server", "url", target, "command", command)
	conn, _, err := r.dialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to connect to %s: %v", shared.ErrServiceUnavailable, target, err)
	}
	defer conn.Close()

	request := map[string]any{"command": command}
	if arguments != nil {
		request["arguments"] = arguments
	}
	if err := conn.WriteJSON(request); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}

	failure, err := r.awaitReply(conn, command, cmd.Duration("wait"), cmd.Bool("pretty"))

	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)

	if err != nil {
		return err
	}
	if failure != nil {
		return fmt.Errorf("%s failed: %w", command, failure)
	}
	return nil
}

// awaitReply prints envelopes until one answers command, the server closes the connection or wait elapses.
func (r *Runner) awaitReply(conn *websocket.Conn, command string, wait time.Duration, pretty bool) (*protocol.Error, error) {
	if wait <= 0 {
		wait = defaultRemoteWait
	}
	if err := conn.SetReadDeadline(time.Now().Add(wait)); err != nil {
		return nil, err
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			var ne net.Error
			switch {
			case errors.As(err, &ne) && ne.Timeout():
				return nil, fmt.Errorf("%w: no reply to %s within %s", shared.ErrTimeout, command, wait)
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				return nil, nil
			default:
				return nil, fmt.Errorf("failed to read reply: %w", err)
			}
		}

		if err := r.writeJSON(json.RawMessage(data), pretty); err != nil {
			return nil, err
		}

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			r.logger.Warn("undecodable envelope", "error", err)
			continue
		}
		if env.IsError() {
			return env.Err, nil
		}
		if env.Command == command || env.Command == "quit" {
			return nil, nil
		}
	}
}

// parseRemoteArguments builds the argument bag from a JSON object or key=value pairs.
func parseRemoteArguments(data string, pairs []string) (protocol.Arguments, error) {
	if data != "" && len(pairs) > 0 {
		return nil, fmt.Errorf("%w: use either --data or key=value pairs", shared.ErrInvalidArgument)
	}

	if data != "" {
		var args protocol.Arguments
		if err := json.Unmarshal([]byte(data), &args); err != nil || args == nil {
			return nil, fmt.Errorf("%w: --data must be a JSON object", shared.ErrInvalidArgument)
		}
		return args, nil
	}

	if len(pairs) == 0 {
		return nil, nil
	}

	args := protocol.Arguments{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: expected key=value, got %q", shared.ErrInvalidArgument, pair)
		}
		args[key] = value
	}
	return args, nil
}

// remoteURL is the websocket address of the configured server, reaching wildcard hosts over loopback.
func remoteURL(cfg shared.ServerConfig) string {
	host := cfg.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	path := cfg.Path
	if path == "" {
		path = "/"
	}
	u := url.URL{Scheme: "ws", Host: net.JoinHostPort(host, strconv.Itoa(cfg.Port)), Path: path}
	return u.String()
}
