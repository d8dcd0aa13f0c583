package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"drc_online/internal/models"
	"drc_online/internal/regression"
	"drc_online/internal/repository"
	"drc_online/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 16 // 64 KB; training datasets ride this channel

	outboundBuffer = 64
)

// Envelope used for WebSocket messages in both directions.
type wsEnvelope struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Upgrader for HTTP -> WebSocket.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origins for production
}

// wsConnect serves one dashboard client: commands in, events out. Bus events
// and command replies share a single writer goroutine.
func (h *Handler) wsConnect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	events, unsubscribe := h.services.Bus.Subscribe()
	defer unsubscribe()

	outbound := make(chan wsEnvelope, outboundBuffer)
	done := make(chan struct{})
	go h.readCommands(c.Request.Context(), conn, outbound, done)

	// Greet with the current connection status so a fresh client can render.
	h.enqueue(outbound, envelope(service.EventStatus, h.services.Sweep.Status()))

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := h.write(conn, envelope(ev.Name, ev.Data)); err != nil {
				return
			}
		case env := <-outbound:
			if err := h.write(conn, env); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, env wsEnvelope) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(env); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed", "type", env.Type, "err", err)
		}
		return err
	}
	return nil
}

// enqueue drops the envelope when the outbound buffer is full; a dead client
// must not stall command dispatch.
func (h *Handler) enqueue(outbound chan<- wsEnvelope, env wsEnvelope) {
	select {
	case outbound <- env:
	default:
	}
}

// readCommands is the per-connection reader: it parses inbound envelopes and
// dispatches them until the connection drops.
func (h *Handler) readCommands(ctx context.Context, conn *websocket.Conn, outbound chan<- wsEnvelope, done chan<- struct{}) {
	defer close(done)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}

		var cmd wsEnvelope
		if err := json.Unmarshal(raw, &cmd); err != nil {
			h.enqueue(outbound, errEnvelope("error", "malformed command: "+err.Error()))
			continue
		}
		h.enqueue(outbound, h.dispatch(ctx, cmd))
	}
}

// dispatch routes one inbound command to its service and shapes the reply.
func (h *Handler) dispatch(ctx context.Context, cmd wsEnvelope) wsEnvelope {
	switch cmd.Type {
	case "start_sweep":
		return h.cmdStartSweep(ctx)
	case "stop_sweep":
		return h.cmdStopSweep()
	case "scan_ports":
		return envelope("ports_list", gin.H{"ports": h.services.Sweep.ScanPorts()})
	case "get_config":
		return envelope("config", h.services.Sweep.Config())
	case "update_config":
		return h.cmdUpdateConfig(cmd.Data)
	case "save_measurement":
		return h.cmdSaveMeasurement(ctx, cmd.Data)
	case "analyze_measurements":
		return h.cmdAnalyze(cmd.Data)
	case "train_model":
		return h.cmdTrainModel(ctx, cmd.Data)
	case "activate_model":
		return h.cmdModelMutation(ctx, cmd.Data, h.services.Models.Activate)
	case "deactivate_model":
		return h.cmdModelMutation(ctx, cmd.Data, h.services.Models.Deactivate)
	case "delete_model":
		return h.cmdModelMutation(ctx, cmd.Data, h.services.Models.Delete)
	case "get_models":
		return h.cmdGetModels(ctx)
	case "save_calibration":
		return h.cmdSaveCalibration(ctx, cmd.Data)
	case "get_calibration":
		return h.cmdGetCalibration(ctx, cmd.Data)
	case "calculate_drc":
		return h.cmdCalculateDrc(ctx, cmd.Data)
	case "query_historical":
		return h.cmdQueryHistorical(ctx, cmd.Data)
	default:
		return errEnvelope("error", "unknown command: "+cmd.Type)
	}
}

func (h *Handler) cmdStartSweep(ctx context.Context) wsEnvelope {
	if err := h.services.Sweep.Start(ctx); err != nil {
		return errEnvelope(service.EventStatus, err.Error())
	}
	return envelope(service.EventStatus, h.services.Sweep.Status())
}

func (h *Handler) cmdStopSweep() wsEnvelope {
	if err := h.services.Sweep.Stop(); err != nil {
		return errEnvelope(service.EventStatus, err.Error())
	}
	return envelope(service.EventStatus, h.services.Sweep.Status())
}

func (h *Handler) cmdUpdateConfig(data json.RawMessage) wsEnvelope {
	var cfg models.SweepConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return errEnvelope("config", "bad config payload: "+err.Error())
	}
	if err := h.services.Sweep.UpdateConfig(cfg); err != nil {
		return errEnvelope("config", err.Error())
	}
	return envelope("config", h.services.Sweep.Config())
}

func (h *Handler) cmdSaveMeasurement(ctx context.Context, data json.RawMessage) wsEnvelope {
	var meta models.BatchMeta
	if len(data) > 0 {
		if err := json.Unmarshal(data, &meta); err != nil {
			return errEnvelope("save_result", "bad save payload: "+err.Error())
		}
	}
	res, err := h.services.Measurements.Save(ctx, meta)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_save_failed", "err", err)
		}
		return envelope("save_result", res)
	}
	if res.DrcPercent != nil {
		return envelope("drc_save_result", res)
	}
	return envelope("save_result", res)
}

func (h *Handler) cmdAnalyze(data json.RawMessage) wsEnvelope {
	var req analyzeRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			return errEnvelope("analysis_result", "bad analyze payload: "+err.Error())
		}
	}
	return envelope("analysis_result", h.services.Analysis.Analyze(req.ThresholdDB, req.MinDuration))
}

func (h *Handler) cmdTrainModel(ctx context.Context, data json.RawMessage) wsEnvelope {
	var req trainRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errEnvelope("model_train_result", "bad train payload: "+err.Error())
	}
	if req.Type == "" {
		req.Type = models.ModelLinear
	}
	m, err := h.services.Models.Train(ctx, req.Name, req.Type, req.Dataset, req.Notes)
	if err != nil {
		return errEnvelope("model_train_result", err.Error())
	}
	return envelope("model_train_result", m)
}

type modelRef struct {
	Name string `json:"name"`
}

func (h *Handler) cmdModelMutation(ctx context.Context, data json.RawMessage, op func(ctx context.Context, name string) error) wsEnvelope {
	var ref modelRef
	if err := json.Unmarshal(data, &ref); err != nil || ref.Name == "" {
		return errEnvelope("model_changed", "model name required")
	}
	if err := op(ctx, ref.Name); err != nil {
		if errors.Is(err, repository.ErrModelNotFound) {
			return errEnvelope("model_changed", "model not found: "+ref.Name)
		}
		return errEnvelope("model_changed", err.Error())
	}
	return envelope("model_changed", gin.H{"name": ref.Name})
}

func (h *Handler) cmdGetModels(ctx context.Context) wsEnvelope {
	list, err := h.services.Models.List(ctx)
	if err != nil {
		return errEnvelope("models_list", err.Error())
	}
	return envelope("models_list", gin.H{"models": list})
}

func (h *Handler) cmdSaveCalibration(ctx context.Context, data json.RawMessage) wsEnvelope {
	var req calibrationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errEnvelope("drc_save_result", "bad calibration payload: "+err.Error())
	}
	cal, err := h.services.Drc.SaveCalibration(ctx, req.BatchID, req.S21LowDB, req.Drc1Percent, req.S21HighDB, req.Drc2Percent)
	if err != nil {
		var verr *regression.ValidationError
		if errors.As(err, &verr) {
			return errEnvelope("drc_save_result", verr.Error())
		}
		return errEnvelope("drc_save_result", err.Error())
	}
	return envelope("drc_save_result", cal)
}

func (h *Handler) cmdGetCalibration(ctx context.Context, data json.RawMessage) wsEnvelope {
	var ref struct {
		BatchID string `json:"batch_id"`
	}
	if len(data) > 0 {
		_ = json.Unmarshal(data, &ref)
	}
	cal, err := h.services.Drc.Calibration(ctx, ref.BatchID)
	if err != nil {
		return errEnvelope("drc_result", err.Error())
	}
	if cal == nil {
		return errEnvelope("drc_result", "no calibration found")
	}
	return envelope("drc_result", cal)
}

func (h *Handler) cmdCalculateDrc(ctx context.Context, data json.RawMessage) wsEnvelope {
	var req calculateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errEnvelope("drc_result", "bad calculate payload: "+err.Error())
	}
	res, err := h.services.Drc.Calculate(ctx, req.S21RMS)
	if err != nil {
		return errEnvelope("drc_result", err.Error())
	}
	return envelope("drc_result", res)
}

func (h *Handler) cmdQueryHistorical(ctx context.Context, data json.RawMessage) wsEnvelope {
	var req struct {
		From  string `json:"from,omitempty"`
		To    string `json:"to,omitempty"`
		Limit int    `json:"limit,omitempty"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			return errEnvelope("historical_result", "bad query payload: "+err.Error())
		}
	}
	from, err := parseOptionalTime(req.From)
	if err != nil {
		return errEnvelope("historical_result", "invalid from time")
	}
	to, err := parseOptionalTime(req.To)
	if err != nil {
		return errEnvelope("historical_result", "invalid to time")
	}
	rows, err := h.services.Measurements.Query(ctx, from, to, req.Limit)
	if err != nil {
		return errEnvelope("historical_result", err.Error())
	}
	return envelope("historical_result", gin.H{"rows": rows, "count": len(rows)})
}

func parseOptionalTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(queryTimeLayout, s)
}

// envelope marshals a payload into an outbound frame; marshal failures turn
// into error frames rather than dropped messages.
func envelope(typ string, data any) wsEnvelope {
	raw, err := json.Marshal(data)
	if err != nil {
		return errEnvelope(typ, "encode payload: "+err.Error())
	}
	return wsEnvelope{Type: typ, Data: raw}
}

func errEnvelope(typ, msg string) wsEnvelope {
	return wsEnvelope{Type: typ, Error: msg}
}
