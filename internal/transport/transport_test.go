package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type fakeHandler struct {
	mu       sync.Mutex
	messages []string
	commands []string
	got      chan struct{}
}

func newFakeHandler() *fakeHandler {
	return &fakeHandler{got: make(chan struct{}, 16)}
}

func (f *fakeHandler) HandleMessage(data []byte) (bool, error) {
	f.mu.Lock()
	f.messages = append(f.messages, string(data))
	f.mu.Unlock()
	f.got <- struct{}{}
	return true, nil
}

func (f *fakeHandler) HandleCommand(data []byte) error {
	f.mu.Lock()
	f.commands = append(f.commands, string(data))
	f.mu.Unlock()
	f.got <- struct{}{}
	return errors.New("ignored")
}

func (f *fakeHandler) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.got:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out after %d of %d deliveries", i, n)
		}
	}
}

type countingObserver struct {
	mu         sync.Mutex
	messages   map[string]int
	reconnects int
}

func (o *countingObserver) MessageReceived(_, topic string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.messages == nil {
		o.messages = map[string]int{}
	}
	o.messages[topic]++
}

func (o *countingObserver) Reconnected(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reconnects++
}

func publishFrame(t *testing.T, topic, data string) []byte {
	t.Helper()
	msg, err := json.Marshal(stringMsg{Data: mustQuote(t, data)})
	if err != nil {
		t.Fatal(err)
	}
	frame, err := json.Marshal(rosOp{Op: "publish", Topic: topic, Msg: msg})
	if err != nil {
		t.Fatal(err)
	}
	return frame
}

func mustQuote(t *testing.T, s string) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestUnwrap(t *testing.T) {
	tests := []struct {
		name      string
		frame     string
		wantTopic string
		wantData  string
		wantErr   bool
	}{
		{"string data", `{"op":"publish","topic":"/evaluated_designs","msg":{"data":"{\"counter\":1}"}}`,
			"/evaluated_designs", `{"counter":1}`, false},
		{"object data", `{"op":"publish","topic":"/tuio_control","msg":{"data":{"metric":"age"}}}`,
			"/tuio_control", `{"metric":"age"}`, false},
		{"status op", `{"op":"status","level":"error"}`, "", "", true},
		{"no data", `{"op":"publish","topic":"/x","msg":{}}`, "", "", true},
		{"garbage", `not json`, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topic, data, err := unwrap([]byte(tt.frame))
			if (err != nil) != tt.wantErr {
				t.Fatalf("unwrap err = %v, wantErr %v", err, tt.wantErr)
			}
			if topic != tt.wantTopic || string(data) != tt.wantData {
				t.Errorf("unwrap = %q, %q; want %q, %q", topic, data, tt.wantTopic, tt.wantData)
			}
		})
	}
}

func TestRouterDeliver(t *testing.T) {
	h := newFakeHandler()
	obs := &countingObserver{}
	r := newRouter("test", "data", "control", h, nil, obs)

	r.deliver("data", []byte("a"))
	r.deliver("control", []byte("age"))
	r.deliver("other", []byte("x"))

	if len(h.messages) != 1 || h.messages[0] != "a" {
		t.Errorf("messages = %v, want [a]", h.messages)
	}
	if len(h.commands) != 1 || h.commands[0] != "age" {
		t.Errorf("commands = %v, want [age]", h.commands)
	}
	if obs.messages["other"] != 0 {
		t.Errorf("ignored topic was counted")
	}
}

// rosbridgeServer accepts websocket connections, checks the subscribe ops
// and runs serve for each connection.
func rosbridgeServer(t *testing.T, serve func(n int, conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	var mu sync.Mutex
	conns := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for i := 0; i < 2; i++ {
			var op rosOp
			if err := conn.ReadJSON(&op); err != nil {
				return
			}
			if op.Op != "subscribe" || op.Type != stringType {
				t.Errorf("op = %+v, want std_msgs/String subscribe", op)
			}
		}
		mu.Lock()
		n := conns
		conns++
		mu.Unlock()
		serve(n, conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestRosBridgeDelivers(t *testing.T) {
	srv := rosbridgeServer(t, func(_ int, conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, publishFrame(t, "/evaluated_designs", `{"counter":1}`))
		conn.WriteMessage(websocket.TextMessage, publishFrame(t, "/tuio_control", "age"))
		// hold the connection until the client goes away
		conn.ReadMessage()
	})

	h := newFakeHandler()
	obs := &countingObserver{}
	rb := NewRosBridge(RosBridgeConfig{
		URL:          wsURL(srv),
		DataTopic:    "/evaluated_designs",
		ControlTopic: "/tuio_control",
	}, h, nil, obs)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rb.Run(ctx) }()

	h.wait(t, 2)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v, want nil on cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.messages) != 1 || h.messages[0] != `{"counter":1}` {
		t.Errorf("messages = %v", h.messages)
	}
	if len(h.commands) != 1 || h.commands[0] != "age" {
		t.Errorf("commands = %v", h.commands)
	}
}

func TestRosBridgeReconnects(t *testing.T) {
	srv := rosbridgeServer(t, func(n int, conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, publishFrame(t, "/evaluated_designs", `{"counter":`+string(rune('1'+n))+`}`))
		if n > 0 {
			conn.ReadMessage()
		}
		// first connection drops right away
	})

	h := newFakeHandler()
	obs := &countingObserver{}
	rb := NewRosBridge(RosBridgeConfig{
		URL:            wsURL(srv),
		DataTopic:      "/evaluated_designs",
		ControlTopic:   "/tuio_control",
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
	}, h, nil, obs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rb.Run(ctx)

	h.wait(t, 2)
	obs.mu.Lock()
	reconnects := obs.reconnects
	obs.mu.Unlock()
	if reconnects < 1 {
		t.Errorf("reconnects = %d, want at least 1", reconnects)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.messages[0] != `{"counter":1}` || h.messages[1] != `{"counter":2}` {
		t.Errorf("messages = %v", h.messages)
	}
}

func TestRosBridgeStopsWhileDialFails(t *testing.T) {
	rb := NewRosBridge(RosBridgeConfig{
		URL:            "ws://127.0.0.1:1",
		DataTopic:      "/evaluated_designs",
		InitialBackoff: time.Hour,
	}, newFakeHandler(), nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := rb.Run(ctx); err != nil {
		t.Errorf("Run = %v, want nil after cancel", err)
	}
}

func TestRedisSubscriberUnreachable(t *testing.T) {
	client := OpenRedis("127.0.0.1:1", "", 0)
	defer client.Close()
	s := NewRedisSubscriber(client, "designs", "control", newFakeHandler(), nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Run(ctx); err == nil {
		t.Error("Run against a closed port = nil, want error")
	}
}

func TestRedisSubscriberChannels(t *testing.T) {
	client := OpenRedis("127.0.0.1:1", "", 0)
	defer client.Close()
	if s := NewRedisSubscriber(client, "designs", "", newFakeHandler(), nil, nil); len(s.channels) != 1 {
		t.Errorf("channels = %v, want only the data channel", s.channels)
	}
}
