package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"gregoryjjb/avrpins/fd650"
	"gregoryjjb/avrpins/gpio"
	"gregoryjjb/avrpins/shiftreg"
)

/////////////////////
// Response helpers

func RespondInternalServiceError(w http.ResponseWriter, err error) {
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte(err.Error()))
}

func RespondNotFoundError(w http.ResponseWriter, body string) {
	w.WriteHeader(http.StatusNotFound)
	if body == "" {
		body = "Not found"
	}
	RespondText(w, body)
}

func RespondBadRequest(w http.ResponseWriter, message string) {
	w.WriteHeader(http.StatusBadRequest)
	RespondText(w, message)
}

func RespondText(w http.ResponseWriter, body string) {
	w.Write([]byte(body))
}

func RespondJSON(w http.ResponseWriter, body any) {
	w.Header().Add("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		RespondInternalServiceError(w, err)
	}
}

// RespondError maps harness and driver errors to status codes.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownLine), errors.Is(err, ErrUnknownRegister):
		RespondNotFoundError(w, err.Error())
	case errors.Is(err, ErrInvalidOp),
		errors.Is(err, fd650.ErrBrightness),
		errors.Is(err, fd650.ErrPosition),
		errors.Is(err, fd650.ErrUnsupportedRune):
		RespondBadRequest(w, err.Error())
	case errors.Is(err, gpio.ErrNotSupported), errors.Is(err, shiftreg.ErrNoEnable):
		w.WriteHeader(http.StatusNotImplemented)
		RespondText(w, err.Error())
	case errors.Is(err, fd650.ErrNoAck):
		w.WriteHeader(http.StatusConflict)
		RespondText(w, err.Error())
	default:
		RespondInternalServiceError(w, err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		RespondBadRequest(w, fmt.Sprintf("invalid body: %s", err))
		return false
	}
	return true
}

type BuildInfo struct {
	Version    string `json:"version"`
	BuildTime  string `json:"build_time"`
	CommitHash string `json:"commit_hash"`
}

type lineInfo struct {
	Name      string   `json:"name"`
	Port      string   `json:"port"`
	Mask      uint8    `json:"mask"`
	Pins      []string `json:"pins"`
	Registers []string `json:"registers"`
}

func newLineInfo(l gpio.Line) lineInfo {
	info := lineInfo{
		Name: l.Name,
		Port: l.Port.String(),
		Mask: uint8(l.Mask),
		Pins: l.Pins(),
	}
	for _, class := range gpio.RegisterClasses {
		info.Registers = append(info.Registers, class.Name(l.Port))
	}
	return info
}

// NewRouter builds the harness HTTP API.
func NewRouter(buildInfo BuildInfo, h *Harness) chi.Router {
	r := chi.NewRouter()
	r.Use(LoggerMiddleware(&log.Logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
			RespondJSON(w, buildInfo)
		})

		r.Get("/lines", func(w http.ResponseWriter, r *http.Request) {
			var out []lineInfo
			for _, l := range h.Lines() {
				out = append(out, newLineInfo(l))
			}
			RespondJSON(w, out)
		})

		r.Get("/lines/{name}", func(w http.ResponseWriter, r *http.Request) {
			name := chi.URLParam(r, "name")
			v, err := h.Read(name)
			if err != nil {
				RespondError(w, err)
				return
			}
			RespondJSON(w, map[string]any{"name": name, "value": v, "high": v != 0})
		})

		r.Post("/lines/{name}/{op}", func(w http.ResponseWriter, r *http.Request) {
			if err := h.Apply(chi.URLParam(r, "name"), Op(chi.URLParam(r, "op"))); err != nil {
				RespondError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Get("/registers", func(w http.ResponseWriter, r *http.Request) {
			regs, err := h.Registers()
			if err != nil {
				RespondError(w, err)
				return
			}
			RespondJSON(w, regs)
		})

		r.Put("/registers/{name}", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Value *uint8 `json:"value"`
			}
			if !decodeBody(w, r, &body) {
				return
			}
			if body.Value == nil {
				RespondBadRequest(w, "value required")
				return
			}
			if err := h.SetRegister(chi.URLParam(r, "name"), *body.Value); err != nil {
				RespondError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Get("/trace", func(w http.ResponseWriter, r *http.Request) {
			RespondJSON(w, h.Trace())
		})

		r.Post("/shift", func(w http.ResponseWriter, r *http.Request) {
			// []byte would decode from base64, so take plain numbers.
			var body struct {
				Bytes []int `json:"bytes"`
			}
			if !decodeBody(w, r, &body) {
				return
			}
			if len(body.Bytes) == 0 {
				RespondBadRequest(w, "bytes required")
				return
			}
			bs := make([]byte, len(body.Bytes))
			for i, v := range body.Bytes {
				if v < 0 || v > 0xFF {
					RespondBadRequest(w, fmt.Sprintf("byte %d out of range: %d", i, v))
					return
				}
				bs[i] = byte(v)
			}
			if err := h.Shift(bs); err != nil {
				RespondError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Post("/enable", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				On bool `json:"on"`
			}
			if !decodeBody(w, r, &body) {
				return
			}
			if err := h.Enable(body.On); err != nil {
				RespondError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Post("/display", func(w http.ResponseWriter, r *http.Request) {
			body := struct {
				Text       string `json:"text"`
				Brightness int    `json:"brightness"`
			}{Brightness: 8}
			if !decodeBody(w, r, &body) {
				return
			}
			if err := h.Display(body.Text, body.Brightness); err != nil {
				RespondError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Delete("/display", func(w http.ResponseWriter, r *http.Request) {
			if err := h.DisplayOff(); err != nil {
				RespondError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Get("/ws", createWebsocketHandler(h))
	})

	return r
}

func StartServer(config *Config, buildInfo BuildInfo, h *Harness) error {
	address := fmt.Sprintf("%s:%s", config.Host(), config.Port())
	log.Info().Str("listen", address).Msg("launching server")
	return http.ListenAndServe(address, NewRouter(buildInfo, h))
}
