package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"drc_online/internal/models"
	"drc_online/internal/service"

	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, s *service.Service) (*websocket.Conn, func()) {
	t.Helper()
	r := newTestRouter(s)
	srv := httptest.NewServer(r)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial failed: %v", err)
	}
	cleanup := func() {
		_ = conn.Close()
		srv.Close()
	}
	return conn, cleanup
}

func readEnvelope(t *testing.T, conn *websocket.Conn) wsEnvelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env wsEnvelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read envelope failed: %v", err)
	}
	return env
}

// readUntil skips frames until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) wsEnvelope {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		env := readEnvelope(t, conn)
		if env.Type == typ {
			return env
		}
	}
	t.Fatalf("no %q frame received", typ)
	return wsEnvelope{}
}

func wsService(sweep *mockSweep) *service.Service {
	return &service.Service{
		Authorization: &mockAuth{parseID: 1},
		Sweep:         sweep,
		Bus:           service.NewBus(),
	}
}

func TestWebSocket_GreetsWithStatus(t *testing.T) {
	sweep := &mockSweep{status: models.ConnectionStatus{Connected: true, Port: "SIM"}}
	s := wsService(sweep)
	defer s.Bus.Close()

	conn, cleanup := dialWS(t, s)
	defer cleanup()

	env := readEnvelope(t, conn)
	if env.Type != service.EventStatus {
		t.Fatalf("first frame must be status, got %q", env.Type)
	}
	var st models.ConnectionStatus
	if err := json.Unmarshal(env.Data, &st); err != nil || st.Port != "SIM" {
		t.Fatalf("status payload mismatch: %s", env.Data)
	}
}

func TestWebSocket_CommandRoundTrip(t *testing.T) {
	sweep := &mockSweep{
		cfg:   models.SweepConfig{Port: "SIM", Points: 101},
		ports: []models.PortInfo{{Port: "COM4", Description: "NanoVNA"}},
	}
	s := wsService(sweep)
	defer s.Bus.Close()

	conn, cleanup := dialWS(t, s)
	defer cleanup()
	readEnvelope(t, conn) // greeting

	if err := conn.WriteJSON(wsEnvelope{Type: "get_config"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	env := readUntil(t, conn, "config")
	var cfg models.SweepConfig
	if err := json.Unmarshal(env.Data, &cfg); err != nil || cfg.Points != 101 {
		t.Fatalf("config payload mismatch: %s", env.Data)
	}

	if err := conn.WriteJSON(wsEnvelope{Type: "scan_ports"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	env = readUntil(t, conn, "ports_list")
	if !strings.Contains(string(env.Data), "COM4") {
		t.Fatalf("ports payload mismatch: %s", env.Data)
	}
}

func TestWebSocket_UnknownCommand(t *testing.T) {
	s := wsService(&mockSweep{})
	defer s.Bus.Close()

	conn, cleanup := dialWS(t, s)
	defer cleanup()
	readEnvelope(t, conn) // greeting

	if err := conn.WriteJSON(wsEnvelope{Type: "fly_to_the_moon"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	env := readUntil(t, conn, "error")
	if env.Error == "" {
		t.Fatalf("unknown command must carry an error message")
	}
}

func TestWebSocket_BusEventsForwarded(t *testing.T) {
	s := wsService(&mockSweep{})
	defer s.Bus.Close()

	conn, cleanup := dialWS(t, s)
	defer cleanup()
	readEnvelope(t, conn) // greeting

	// Give the connection a moment to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)
	s.Bus.Publish(service.EventSweepData, service.SweepData{SweepCount: 9})

	env := readUntil(t, conn, service.EventSweepData)
	var data service.SweepData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.SweepCount != 9 {
		t.Fatalf("sweep_data payload mismatch: %s", env.Data)
	}
}

func TestWebSocket_StartSweepCommand(t *testing.T) {
	sweep := &mockSweep{status: models.ConnectionStatus{Connected: true}}
	s := wsService(sweep)
	defer s.Bus.Close()

	conn, cleanup := dialWS(t, s)
	defer cleanup()
	readEnvelope(t, conn) // greeting

	if err := conn.WriteJSON(wsEnvelope{Type: "start_sweep"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	env := readUntil(t, conn, service.EventStatus)
	if env.Error != "" {
		t.Fatalf("start should succeed: %q", env.Error)
	}
	if sweep.startCalled != 1 {
		t.Fatalf("start_sweep not delegated")
	}
}
