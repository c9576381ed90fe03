// Package regdebug serves a WebSocket console for poking LSM9DS1 register
// fields by name. Every request is one JSON object with an "action"; every
// answer is one JSON object with a "type".
//
// Actions:
//   - get_map: list every field
//   - read: one field by name
//   - read_all: every field, optionally limited to one core ("ag" or "mag")
//   - write: set one field; other bits in the register are preserved
//   - settings: the named operating settings
//   - sample: one converted sample, through the telemetry service
package regdebug

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"lsm9ds1-go/bus"
	"lsm9ds1-go/drivers/lsm9ds1"
	"lsm9ds1-go/errcode"
	"lsm9ds1-go/services/config"
	"lsm9ds1-go/types"
	"lsm9ds1-go/x/timex"
)

const sampleTimeout = 2 * time.Second

// Request is the union of every action's parameters.
type Request struct {
	Action string `json:"action"`
	Field  string `json:"field,omitempty"`
	Dev    string `json:"dev,omitempty"`
	Value  *uint8 `json:"value,omitempty"`
}

type FieldInfo struct {
	Name  string `json:"name"`
	Dev   string `json:"dev"`
	Reg   string `json:"reg"`
	Shift uint8  `json:"shift"`
	Width uint8  `json:"width"`
	Max   uint8  `json:"max"`
}

type Response struct {
	Type     string            `json:"type"` // "field_map", "field_data", "settings", "sample", "error"
	Field    string            `json:"field,omitempty"`
	Value    *uint8            `json:"value,omitempty"`
	Values   map[string]uint8  `json:"values,omitempty"`
	Fields   []FieldInfo       `json:"fields,omitempty"`
	Settings map[string]string `json:"settings,omitempty"`
	Sample   *types.IMUValue   `json:"sample,omitempty"`
	Code     errcode.Code      `json:"code,omitempty"`
	Message  string            `json:"message,omitempty"`
	TS       int64             `json:"ts_ms"`
}

// Handler is an http.Handler. The device is shared with the telemetry
// service, so every access holds mu.
type Handler struct {
	dev  *lsm9ds1.Device
	mu   sync.Locker
	conn *bus.Connection

	upgrader websocket.Upgrader
}

// New returns a handler for dev. conn may be nil, which disables "sample".
func New(dev *lsm9ds1.Device, mu sync.Locker, conn *bus.Connection) *Handler {
	return &Handler{
		dev:  dev,
		mu:   mu,
		conn: conn,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithField("svc", "regdebug").Warnln("websocket upgrade:", err)
		return
	}
	defer ws.Close()
	l := log.WithFields(log.Fields{"svc": "regdebug", "peer": r.RemoteAddr})
	l.Debugln("session open")

	if err := ws.WriteJSON(h.fieldMap()); err != nil {
		return
	}
	for {
		var req Request
		if err := ws.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.Warnln("websocket:", err)
			}
			return
		}
		resp := h.Handle(r.Context(), req)
		resp.TS = timex.NowMs()
		if err := ws.WriteJSON(resp); err != nil {
			l.Warnln("write:", err)
			return
		}
	}
}

// Handle answers one request. It is the whole protocol minus the socket.
func (h *Handler) Handle(ctx context.Context, req Request) Response {
	switch req.Action {
	case "get_map":
		return h.fieldMap()
	case "read":
		return h.read(req)
	case "read_all":
		return h.readAll(req)
	case "write":
		return h.write(req)
	case "settings":
		return h.settings()
	case "sample":
		return h.sample(ctx)
	case "":
		return errorResponse(errcode.InvalidPayload, "missing action")
	default:
		return errorResponse(errcode.UnknownAction, req.Action)
	}
}

func (h *Handler) fieldMap() Response {
	fs := lsm9ds1.Fields()
	out := make([]FieldInfo, len(fs))
	for i, f := range fs {
		out[i] = FieldInfo{
			Name:  f.Name,
			Dev:   f.Dev.String(),
			Reg:   fmt.Sprintf("0x%02X", f.Reg),
			Shift: f.Shift,
			Width: f.Width,
			Max:   f.Max(),
		}
	}
	return Response{Type: "field_map", Fields: out}
}

func (h *Handler) read(req Request) Response {
	f, ok := lsm9ds1.FieldByName(req.Field)
	if !ok {
		return errorResponse(errcode.UnknownField, req.Field)
	}
	h.mu.Lock()
	v, err := h.dev.Field(f)
	h.mu.Unlock()
	if err != nil {
		return driverError("read", err)
	}
	return Response{Type: "field_data", Field: f.Name, Value: &v}
}

func (h *Handler) readAll(req Request) Response {
	vals := make(map[string]uint8)
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, f := range lsm9ds1.Fields() {
		if req.Dev != "" && f.Dev.String() != req.Dev {
			continue
		}
		v, err := h.dev.Field(f)
		if err != nil {
			return driverError("read_all", err)
		}
		vals[f.Name] = v
	}
	if len(vals) == 0 {
		return errorResponse(errcode.InvalidParams, "no fields for dev "+req.Dev)
	}
	return Response{Type: "field_data", Values: vals}
}

func (h *Handler) write(req Request) Response {
	f, ok := lsm9ds1.FieldByName(req.Field)
	if !ok {
		return errorResponse(errcode.UnknownField, req.Field)
	}
	if req.Value == nil {
		return errorResponse(errcode.InvalidParams, "missing value")
	}
	if *req.Value > f.Max() {
		return errorResponse(errcode.OutOfRange, fmt.Sprintf("%s takes 0..%d", f.Name, f.Max()))
	}
	h.mu.Lock()
	err := h.dev.SetField(f, *req.Value)
	var v uint8
	if err == nil {
		v, err = h.dev.Field(f)
	}
	h.mu.Unlock()
	if err != nil {
		return driverError("write", err)
	}
	return Response{Type: "field_data", Field: f.Name, Value: &v, Message: "written"}
}

func (h *Handler) settings() Response {
	h.mu.Lock()
	s, err := h.dev.Settings()
	h.mu.Unlock()
	if err != nil {
		return driverError("settings", err)
	}
	return Response{Type: "settings", Settings: config.SensorOptFrom(s).Map()}
}

func (h *Handler) sample(ctx context.Context) Response {
	if h.conn == nil {
		return errorResponse(errcode.NotReady, "no telemetry service")
	}
	ctx, cancel := context.WithTimeout(ctx, sampleTimeout)
	defer cancel()
	reply, err := h.conn.RequestWait(ctx, h.conn.NewMessage(bus.T(types.TopicSampleGet), nil, false))
	if err != nil {
		return driverError("sample", err)
	}
	switch p := reply.Payload.(type) {
	case types.IMUValue:
		return Response{Type: "sample", Sample: &p}
	case types.ErrorReply:
		return errorResponse(errcode.Code(p.Error), "sample failed")
	default:
		return errorResponse(errcode.Error, fmt.Sprintf("unexpected reply %T", p))
	}
}

func errorResponse(c errcode.Code, msg string) Response {
	return Response{Type: "error", Code: c, Message: msg}
}

func driverError(op string, err error) Response {
	e := &errcode.E{C: errcode.MapDriverErr(err), Op: op, Msg: err.Error(), Err: err}
	return errorResponse(errcode.Of(e), e.Error())
}
