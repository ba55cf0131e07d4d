// Package command decodes inbound MQTT command messages into animation and
// OTA directives. Malformed payloads degrade to defaults instead of
// failing the command; unknown commands are logged and dropped.
package command

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/ledring/internal/animation"
	"github.com/sweeney/ledring/internal/ota"
)

// Defaults applied by the reset command.
const (
	defaultInterval   = 30 * time.Millisecond
	defaultBrightness = 50
)

// Publisher is the outbound side needed for OTA command responses.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Router dispatches command messages against the engine and OTA manager.
type Router struct {
	ring *animation.Engine
	ota  *ota.Manager
	pub  Publisher
	base string
	now  func() time.Time
	log  zerolog.Logger
}

// NewRouter creates a router for the given base topic.
func NewRouter(ring *animation.Engine, otaMgr *ota.Manager, pub Publisher, base string, now func() time.Time, log zerolog.Logger) *Router {
	return &Router{ring: ring, ota: otaMgr, pub: pub, base: base, now: now, log: log}
}

// params is the structured payload grammar. Every key is optional; a
// payload that is not a JSON object is treated as a bare color token.
type params struct {
	Color      any      `json:"color"`
	Speed      *float64 `json:"speed"` // milliseconds between frames
	Brightness *float64 `json:"brightness"`
	Direction  any      `json:"direction"`
	Colors     []any    `json:"colors"`
	Min        *int     `json:"min"`
	Max        *int     `json:"max"`
	Step       *int     `json:"step"`
}

// Route applies one inbound message. It never returns an error: every
// failure mode either degrades to a default or is logged and dropped.
func (r *Router) Route(topic string, payload []byte) {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		r.log.Warn().Str("topic", topic).Msg("short command topic, dropping")
		return
	}
	group := parts[len(parts)-2]
	cmd := parts[len(parts)-1]

	switch group {
	case "ring":
		r.routeRing(cmd, payload)
	case "ota":
		r.routeOTA(cmd)
	default:
		// <base>/command and our own <base>/button/# echoes land here.
		r.log.Debug().Str("topic", topic).Msg("no handler for topic")
	}
}

func (r *Router) routeRing(cmd string, payload []byte) {
	p := r.parsePayload(payload)

	switch cmd {
	case "chase":
		r.ring.SetChaseColor(r.resolveColor(p.Color, animation.DefaultColor))
		r.ring.SetMode(animation.ModeChase)
	case "static":
		r.ring.SetSolidColor(r.resolveColor(p.Color, animation.Color{R: 255, G: 255, B: 255}))
		r.ring.SetMode(animation.ModeSolid)
	case "flash":
		r.ring.SetFlashColor(r.resolveColor(p.Color, animation.DefaultColor))
		r.ring.SetMode(animation.ModeFlash)
	case "comet":
		r.ring.SetCometColor(r.resolveColor(p.Color, animation.Color{G: 150, B: 255}))
		r.ring.SetMode(animation.ModeComet)
	case "spinner":
		r.ring.SetSpinnerColors(r.spinnerColors(p))
		r.ring.SetMode(animation.ModeSpinner)
	case "rainbow":
		r.ring.SetMode(animation.ModeRainbow)
	case "pulse":
		if p.Color != nil {
			r.ring.SetPulseColor(r.resolveColor(p.Color, animation.Color{G: 150, B: 255}))
		}
		if p.Min != nil || p.Max != nil {
			curMin, curMax := r.ring.PulseRange()
			min, max := int(curMin), int(curMax)
			if p.Min != nil {
				min = *p.Min
			}
			if p.Max != nil {
				max = *p.Max
			}
			r.ring.SetPulseRange(min, max)
		}
		if p.Step != nil {
			r.ring.SetPulseStep(*p.Step)
		}
		r.ring.SetMode(animation.ModePulse)
	case "reset":
		// Fixed default state; the payload is deliberately ignored.
		green, _ := animation.ParseColor("green")
		r.ring.SetChaseColor(green)
		r.ring.SetMode(animation.ModeChase)
		r.ring.SetUpdateInterval(defaultInterval)
		r.ring.SetBrightness(defaultBrightness)
		r.ring.SetDirection(animation.Clockwise)
		return
	default:
		r.log.Warn().Str("command", cmd).Msg("unknown ring command, dropping")
		return
	}

	r.applyCommon(p)
}

// applyCommon applies the optional speed/brightness/direction keys shared
// by every ring command except reset.
func (r *Router) applyCommon(p params) {
	if p.Speed != nil {
		r.ring.SetUpdateInterval(time.Duration(*p.Speed) * time.Millisecond)
	}
	if p.Brightness != nil {
		b := *p.Brightness
		if b < 0 {
			b = 0
		}
		if b > 255 {
			b = 255
		}
		r.ring.SetBrightness(uint8(b))
	}
	if p.Direction != nil {
		d, err := animation.ParseDirection(p.Direction)
		switch {
		case err == nil:
			r.ring.SetDirection(d)
		case errors.Is(err, animation.ErrReverse):
			r.ring.Reverse()
		default:
			r.log.Warn().Err(err).Msg("bad direction in command, ignoring")
		}
	}
}

func (r *Router) routeOTA(cmd string) {
	type errResp struct {
		Error string `json:"error"`
	}
	var resp any

	switch cmd {
	case "check":
		info, err := r.ota.Check()
		if err != nil {
			resp = errResp{Error: err.Error()}
		} else {
			resp = info
		}
	case "update":
		info, err := r.ota.Check()
		switch {
		case err != nil:
			resp = errResp{Error: err.Error()}
		case !info.Available:
			resp = info
		default:
			if err := r.ota.Apply(info); err != nil {
				resp = errResp{Error: err.Error()}
			} else {
				resp = info
			}
		}
	case "status":
		resp = r.ota.Status(r.now())
	default:
		r.log.Warn().Str("command", cmd).Msg("unknown ota command, dropping")
		return
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		r.log.Warn().Err(err).Msg("marshal ota response")
		return
	}
	topic := r.base + "/ota/" + cmd + "/response"
	if err := r.pub.Publish(topic, payload); err != nil {
		r.log.Warn().Err(err).Str("topic", topic).Msg("publish ota response")
	}
}

// parsePayload decodes a structured JSON object, falling back to treating
// the whole payload as a bare color token.
func (r *Router) parsePayload(payload []byte) params {
	var p params
	trimmed := strings.TrimSpace(string(payload))
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal(payload, &p); err == nil {
			return p
		}
		r.log.Warn().Str("payload", trimmed).Msg("malformed command payload, using defaults")
		return params{}
	}
	if token := strings.Trim(trimmed, `"`); token != "" {
		p.Color = token
	}
	return p
}

// resolveColor turns a payload color value — a named color or an explicit
// [r,g,b] triple — into a Color. Anything unrecognized falls back to the
// command's default with a warning.
func (r *Router) resolveColor(v any, fallback animation.Color) animation.Color {
	switch c := v.(type) {
	case nil:
		return fallback
	case string:
		if col, ok := animation.ParseColor(c); ok {
			return col
		}
		r.log.Warn().Str("color", c).Msg("unknown color, using red")
		return animation.DefaultColor
	case []any:
		if col, ok := tripleToColor(c); ok {
			return col
		}
		r.log.Warn().Msg("invalid color triple, using red")
		return animation.DefaultColor
	default:
		r.log.Warn().Msg("invalid color format, using red")
		return animation.DefaultColor
	}
}

// spinnerColors builds the arm colors: an explicit list wins, otherwise a
// single color is replicated across the three default arms.
func (r *Router) spinnerColors(p params) []animation.Color {
	if len(p.Colors) > 0 {
		out := make([]animation.Color, 0, len(p.Colors))
		for _, v := range p.Colors {
			out = append(out, r.resolveColor(v, animation.DefaultColor))
		}
		return out
	}
	c := r.resolveColor(p.Color, animation.DefaultColor)
	return []animation.Color{c, c, c}
}

func tripleToColor(v []any) (animation.Color, bool) {
	if len(v) != 3 {
		return animation.Color{}, false
	}
	var ch [3]uint8
	for i, raw := range v {
		f, ok := raw.(float64)
		if !ok || f < 0 || f > 255 {
			return animation.Color{}, false
		}
		ch[i] = uint8(f)
	}
	return animation.Color{R: ch[0], G: ch[1], B: ch[2]}, true
}
