package websocket

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentdirect/pkg/interfaces"
	"rentdirect/pkg/types"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

func socketURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func fastConfig() ClientConfig {
	cfg := DefaultClientConfig()
	cfg.ReconnectDelay = 10 * time.Millisecond
	cfg.ReconnectMaxDelay = 50 * time.Millisecond
	cfg.Connection.WriteTimeout = time.Second
	return cfg
}

// echoServer answers message:send with message:new carrying the same data.
func echoServer(t *testing.T, token string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token || r.URL.Query().Get("token") != token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var f Frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			if f.Event == types.EventMessageSend {
				reply := Frame{Event: types.EventMessageNew, Data: f.Data, Timestamp: time.Now()}
				if err := conn.WriteJSON(reply); err != nil {
					return
				}
			}
		}
	}))
}

type received struct {
	event string
	data  json.RawMessage
}

func TestTransport_ConnectRequiresToken(t *testing.T) {
	tr := NewTransport("ws://127.0.0.1:1/ws", fastConfig(), nil)
	_, err := tr.Connect("", interfaces.TransportHandler{})
	assert.ErrorIs(t, err, interfaces.ErrMissingToken)
}

func TestClient_EmitAndReceive(t *testing.T) {
	srv := echoServer(t, "tok1")
	defer srv.Close()

	connected := make(chan struct{}, 1)
	events := make(chan received, 1)
	tr := NewTransport(socketURL(srv), fastConfig(), nil)
	tc, err := tr.Connect("tok1", interfaces.TransportHandler{
		OnConnect: func() { connected <- struct{}{} },
		OnEvent:   func(event string, data json.RawMessage) { events <- received{event, data} },
	})
	require.NoError(t, err)
	client := tc.(*Client)
	defer func() {
		client.Close()
		client.Wait()
	}()

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not connect")
	}
	assert.Equal(t, StateConnected, client.State())

	require.NoError(t, client.Emit(types.EventMessageSend, types.SendMessagePayload{ConversationID: "c1", Content: "hi"}))

	select {
	case got := <-events:
		assert.Equal(t, types.EventMessageNew, got.event)
		var payload types.SendMessagePayload
		require.NoError(t, json.Unmarshal(got.data, &payload))
		assert.Equal(t, "c1", payload.ConversationID)
		assert.Equal(t, "hi", payload.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("no echo received")
	}
}

func TestClient_UnauthorizedIsPermanent(t *testing.T) {
	srv := echoServer(t, "good")
	defer srv.Close()

	closed := make(chan error, 1)
	tr := NewTransport(socketURL(srv), fastConfig(), nil)
	tc, err := tr.Connect("bad", interfaces.TransportHandler{
		OnConnect: func() { t.Error("unexpected connect") },
		OnClosed:  func(err error) { closed <- err },
	})
	require.NoError(t, err)
	client := tc.(*Client)

	select {
	case err := <-closed:
		assert.ErrorIs(t, err, ErrUnauthorized)
		var te *TransportError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, "dial", te.Op)
	case <-time.After(2 * time.Second):
		t.Fatal("expected permanent close")
	}
	client.Wait()
	assert.Equal(t, StateClosed, client.State())
}

func TestClient_ReconnectsAfterDrop(t *testing.T) {
	var accepted atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if accepted.Add(1) == 1 {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	var connects, disconnects atomic.Int32
	reconnected := make(chan struct{}, 1)
	tr := NewTransport(socketURL(srv), fastConfig(), nil)
	tc, err := tr.Connect("tok", interfaces.TransportHandler{
		OnConnect: func() {
			if connects.Add(1) == 2 {
				reconnected <- struct{}{}
			}
		},
		OnDisconnect: func(error) { disconnects.Add(1) },
	})
	require.NoError(t, err)
	client := tc.(*Client)
	defer func() {
		client.Close()
		client.Wait()
	}()

	select {
	case <-reconnected:
	case <-time.After(3 * time.Second):
		t.Fatal("client did not reconnect")
	}
	assert.Equal(t, int32(1), disconnects.Load())
}

func TestClient_ServerNormalCloseIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	closed := make(chan error, 1)
	tr := NewTransport(socketURL(srv), fastConfig(), nil)
	tc, err := tr.Connect("tok", interfaces.TransportHandler{
		OnClosed: func(err error) { closed <- err },
	})
	require.NoError(t, err)
	client := tc.(*Client)

	select {
	case err := <-closed:
		assert.ErrorIs(t, err, ErrServerClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("expected permanent close")
	}
	client.Wait()
}

func TestClient_CloseStopsEverything(t *testing.T) {
	srv := echoServer(t, "tok")
	defer srv.Close()

	connected := make(chan struct{}, 1)
	var afterClose atomic.Int32
	var closing atomic.Bool
	tr := NewTransport(socketURL(srv), fastConfig(), nil)
	tc, err := tr.Connect("tok", interfaces.TransportHandler{
		OnConnect: func() { connected <- struct{}{} },
		OnDisconnect: func(error) {
			if closing.Load() {
				afterClose.Add(1)
			}
		},
		OnClosed: func(error) { afterClose.Add(1) },
	})
	require.NoError(t, err)
	client := tc.(*Client)

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not connect")
	}

	closing.Store(true)
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
	client.Wait()

	assert.Equal(t, int32(0), afterClose.Load())
	assert.ErrorIs(t, client.Emit(types.EventTypingStart, "c1"), ErrConnectionClosed)
}

func TestClient_EmitWithoutSocket(t *testing.T) {
	c := newClient(NewDialer("ws://127.0.0.1:1", time.Second), "tok", interfaces.TransportHandler{}, fastConfig(), nil)
	assert.ErrorIs(t, c.Emit(types.EventJoinConversation, "c1"), interfaces.ErrNotConnected)
}

func TestClient_Backoff(t *testing.T) {
	c := &Client{cfg: ClientConfig{ReconnectDelay: time.Second, ReconnectMaxDelay: 30 * time.Second}}
	assert.Equal(t, time.Second, c.backoff(1))
	assert.Equal(t, 2*time.Second, c.backoff(2))
	assert.Equal(t, 4*time.Second, c.backoff(3))
	assert.Equal(t, 30*time.Second, c.backoff(6))
	assert.Equal(t, 30*time.Second, c.backoff(20))
}

func TestClient_RetryHonoursLimits(t *testing.T) {
	c := newClient(nil, "tok", interfaces.TransportHandler{}, ClientConfig{Reconnect: false}, nil)
	assert.False(t, c.retry(1))

	c = newClient(nil, "tok", interfaces.TransportHandler{}, ClientConfig{
		Reconnect:            true,
		ReconnectDelay:       time.Millisecond,
		MaxReconnectAttempts: 2,
	}, nil)
	assert.True(t, c.retry(2))
	assert.False(t, c.retry(3))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "unknown", State(42).String())
}
