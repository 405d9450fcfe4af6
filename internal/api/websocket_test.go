package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bluetracehq/bluetrace/internal/extraction"
)

// wsURL rewrites an httptest server URL into a ws:// endpoint.
func wsURL(ts string, path string) string {
	return "ws" + strings.TrimPrefix(ts, "http") + path
}

func fetchTicket(t *testing.T, tsURL, token string) string {
	t.Helper()

	resp := doJSON(t, http.MethodPost, tsURL+"/api/v1/auth/ws-ticket", token, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ws-ticket status = %d, want 200", resp.StatusCode)
	}

	var out struct {
		Ticket string `json:"ticket"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding ticket response: %v", err)
	}
	return out.Ticket
}

func TestWebSocketScanEvents(t *testing.T) {
	srv, ts := newTestServer(t, &fakeScanService{})
	token := signupOperator(t, ts, "field.tech1")
	ticket := fetchTicket(t, ts.URL, token)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts.URL, "/api/v1/ws?ticket="+ticket), nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer conn.Close()

	// Subscribe to scan events.
	sub := WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "msg-1",
		Payload: WSSubscribePayload{Channels: []string{ChannelScanEvents}},
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("writing subscribe: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second)) //nolint:errcheck // test deadline

	var ack WSMessage
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("reading subscribe ack: %v", err)
	}
	if ack.Type != WSTypeResponse || ack.ID != "msg-1" {
		t.Fatalf("ack = (%q, %q), want (response, msg-1)", ack.Type, ack.ID)
	}

	srv.hub.Announce(extraction.ScanEvent{
		Type:       "scan_started",
		Handle:     "scan-aaaa1111",
		OperatorID: "usr-11111111",
		Mode:       "isolated",
	})

	var event WSMessage
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("reading broadcast event: %v", err)
	}
	if event.Type != WSTypeEvent || event.EventType != ChannelScanEvents {
		t.Errorf("event = (%q, %q), want (event, %s)", event.Type, event.EventType, ChannelScanEvents)
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		t.Fatalf("re-encoding payload: %v", err)
	}
	var scanEvent extraction.ScanEvent
	if err := json.Unmarshal(payload, &scanEvent); err != nil {
		t.Fatalf("decoding scan event: %v", err)
	}
	if scanEvent.Handle != "scan-aaaa1111" || scanEvent.Type != "scan_started" {
		t.Errorf("scan event = %+v", scanEvent)
	}
}

func TestWebSocketRejectsBadTickets(t *testing.T) {
	t.Run("missing ticket", func(t *testing.T) {
		_, ts := newTestServer(t, &fakeScanService{})

		_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts.URL, "/api/v1/ws"), nil)
		if err == nil {
			t.Fatal("dial succeeded without a ticket")
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("handshake response = %v, want 401", resp)
		}
	})

	t.Run("ticket is single-use", func(t *testing.T) {
		_, ts := newTestServer(t, &fakeScanService{})
		token := signupOperator(t, ts, "field.tech1")
		ticket := fetchTicket(t, ts.URL, token)

		conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts.URL, "/api/v1/ws?ticket="+ticket), nil)
		if err != nil {
			t.Fatalf("first dial failed: %v", err)
		}
		defer conn.Close()

		_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts.URL, "/api/v1/ws?ticket="+ticket), nil)
		if err == nil {
			t.Fatal("second dial succeeded with a consumed ticket")
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("handshake response = %v, want 401", resp)
		}
	})
}
