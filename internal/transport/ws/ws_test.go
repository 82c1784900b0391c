package ws_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyang/prompt-workshop/internal/domain/event"
	"github.com/alanyang/prompt-workshop/internal/transport/ws"
)

func TestHub_BroadcastReachesClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := ws.NewHub()
	r := gin.New()
	hub.Register(r.Group("/ws"))
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(event.New(event.TypeCardSaved, "abc"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got event.Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, event.TypeCardSaved, got.Type)
	assert.Equal(t, "abc", got.EntityID)
}

func TestHub_ClientDisconnectIsRemoved(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := ws.NewHub()
	r := gin.New()
	hub.Register(r.Group("/ws"))
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 5*time.Millisecond)
}
