package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// RosBridgeConfig configures a rosbridge websocket client.
type RosBridgeConfig struct {
	URL            string
	DataTopic      string
	ControlTopic   string
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// RosBridge subscribes to the data and control topics on a rosbridge
// server and reconnects with capped exponential backoff.
type RosBridge struct {
	cfg    RosBridgeConfig
	dialer *websocket.Dialer
	route  router
}

// rosOp is the rosbridge v2 envelope.
type rosOp struct {
	Op    string          `json:"op"`
	Topic string          `json:"topic"`
	Type  string          `json:"type,omitempty"`
	Msg   json.RawMessage `json:"msg,omitempty"`
}

// stringMsg is std_msgs/String.
type stringMsg struct {
	Data json.RawMessage `json:"data"`
}

const stringType = "std_msgs/String"

// NewRosBridge returns a client for cfg. log and obs may be nil.
func NewRosBridge(cfg RosBridgeConfig, h Handler, log *slog.Logger, obs Observer) *RosBridge {
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 60 * time.Second
	}
	return &RosBridge{
		cfg:    cfg,
		dialer: websocket.DefaultDialer,
		route:  newRouter("rosbridge", cfg.DataTopic, cfg.ControlTopic, h, log, obs),
	}
}

// Run connects and reads until ctx is cancelled. It returns nil on
// cancellation.
func (r *RosBridge) Run(ctx context.Context) error {
	backoff := r.cfg.InitialBackoff
	first := true
	for {
		if !first {
			r.route.obs.Reconnected(r.route.name)
		}
		first = false

		r.route.log.Info("connecting", "url", r.cfg.URL)
		conn, _, err := r.dialer.DialContext(ctx, r.cfg.URL, nil)
		if err == nil {
			backoff = r.cfg.InitialBackoff
			err = r.session(ctx, conn)
		}
		if ctx.Err() != nil {
			return nil
		}
		r.route.log.Warn("disconnected", "error", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > r.cfg.MaxBackoff {
			backoff = r.cfg.MaxBackoff
		}
	}
}

func (r *RosBridge) session(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for _, topic := range []string{r.cfg.DataTopic, r.cfg.ControlTopic} {
		if topic == "" {
			continue
		}
		if err := conn.WriteJSON(rosOp{Op: "subscribe", Topic: topic, Type: stringType}); err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}
	r.route.log.Info("subscribed", "data", r.cfg.DataTopic, "control", r.cfg.ControlTopic)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("reading: %w", err)
		}
		topic, payload, err := unwrap(message)
		if err != nil {
			r.route.log.Debug("frame_ignored", "error", err)
			continue
		}
		r.route.deliver(topic, payload)
	}
}

// unwrap extracts the topic and the std_msgs/String payload from a publish
// frame. A data field holding a JSON string is unquoted; any other JSON
// value is passed through as is.
func unwrap(frame []byte) (string, []byte, error) {
	var op rosOp
	if err := json.Unmarshal(frame, &op); err != nil {
		return "", nil, fmt.Errorf("decoding frame: %w", err)
	}
	if op.Op != "publish" {
		return "", nil, fmt.Errorf("unexpected op %q", op.Op)
	}
	var msg stringMsg
	if err := json.Unmarshal(op.Msg, &msg); err != nil {
		return "", nil, fmt.Errorf("decoding msg on %s: %w", op.Topic, err)
	}
	data := bytes.TrimSpace(msg.Data)
	if len(data) == 0 {
		return "", nil, errors.New("publish without data")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", nil, fmt.Errorf("decoding data on %s: %w", op.Topic, err)
		}
		return op.Topic, []byte(s), nil
	}
	return op.Topic, data, nil
}
