package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/mattn/go-colorable"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	colorBlack = iota + 30
	colorRed
	colorGreen
	colorYellow
	colorBlue
	colorMagenta
	colorCyan
	colorWhite

	colorBold     = 1
	colorDarkGray = 90
)

func colorize(s interface{}, c int, disabled bool) string {
	if disabled {
		return fmt.Sprintf("%s", s)
	}
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", c, s)
}

// syncWriter serializes writes so log lines from the HTTP handlers and the
// event stream never interleave.
type syncWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (sw syncWriter) Write(p []byte) (int, error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.w.Write(p)
}

func formatLevel(noColor bool) zerolog.Formatter {
	return func(i interface{}) string {
		ll, ok := i.(string)
		if !ok {
			if i == nil {
				return "| " + colorize("???  ", colorBold, noColor) + " |"
			}
			return "| " + strings.ToUpper(fmt.Sprintf("%-5s", i))[0:5] + " |"
		}

		var l string
		switch ll {
		case zerolog.LevelTraceValue:
			l = colorize("TRACE", colorMagenta, noColor)
		case zerolog.LevelDebugValue:
			l = colorize("DEBUG", colorYellow, noColor)
		case zerolog.LevelInfoValue:
			l = colorize("INFO ", colorGreen, noColor)
		case zerolog.LevelWarnValue:
			l = colorize("WARN ", colorRed, noColor)
		case zerolog.LevelErrorValue, zerolog.LevelFatalValue, zerolog.LevelPanicValue:
			l = colorize(colorize(strings.ToUpper(ll), colorRed, noColor), colorBold, noColor)
		default:
			l = colorize(ll, colorBold, noColor)
		}
		return fmt.Sprintf("| %s |", l)
	}
}

// InitializeLogger points the global zerolog logger at a colored console
// writer on stdout. Colors are dropped when NO_COLOR is set.
func InitializeLogger(level zerolog.Level) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(level)

	noColor := os.Getenv("NO_COLOR") != ""
	output := zerolog.ConsoleWriter{
		Out:         syncWriter{mu: &sync.Mutex{}, w: colorable.NewColorable(os.Stdout)},
		TimeFormat:  time.RFC3339,
		NoColor:     noColor,
		FormatLevel: formatLevel(noColor),
	}

	log.Logger = log.Output(output)
}

// LoggerMiddleware logs one access line per request and turns handler
// panics into 500s.
func LoggerMiddleware(logger *zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			start := time.Now()
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error().
						Interface("recover_info", rec).
						Bytes("debug_stack", debug.Stack()).
						Msg("HTTP endpoint panic")

					http.Error(ww, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}

				logger.Info().
					Str("type", "access").
					Str("method", r.Method).
					Str("url", r.URL.Path).
					Str("remote_ip", r.RemoteAddr).
					Int("status", ww.Status()).
					Int("bytes_out", ww.BytesWritten()).
					Float64("latency_ms", float64(time.Since(start).Nanoseconds())/1e6).
					Msg("HTTP request")
			}()

			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}
