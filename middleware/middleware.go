// Package middleware provides concrete Middleware implementations
// (logging, panic recovery, CORS) in the shape of fiber's recover/cors/
// logger middlewares the teacher's receiver stacked onto its app, reworked
// against zzz.Context instead of fiber.Ctx.
package middleware

import (
	"fmt"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"webhooks.cc/zzz"
	"webhooks.cc/zzz/response"
)

// Logger logs one line per request: method, path, status, latency. Method
// is colorized when log's output is a TTY, mirroring the teacher's terminal-
// aware CLI output without pulling in its TUI stack.
func Logger(log *logrus.Logger) zzz.Middleware {
	colorize := isatty.IsTerminal(fileDescriptor(log))
	return func(next zzz.Next) zzz.Next {
		return func(c *zzz.Context) response.Respond {
			start := time.Now()
			respond := next(c)
			latency := time.Since(start)

			method := c.Request().Method.String()
			if colorize {
				method = colorMethod(method)
			}
			log.WithFields(logrus.Fields{
				"method":  method,
				"path":    c.Request().Path,
				"status":  int(respond.Status),
				"latency": latency,
				"remote":  c.RemoteAddr().String(),
			}).Info("request")
			return respond
		}
	}
}

func colorMethod(method string) string {
	const (
		reset  = "\033[0m"
		green  = "\033[32m"
		yellow = "\033[33m"
		blue   = "\033[34m"
		red    = "\033[31m"
	)
	switch method {
	case "GET":
		return green + method + reset
	case "POST", "PUT", "PATCH":
		return yellow + method + reset
	case "DELETE":
		return red + method + reset
	default:
		return blue + method + reset
	}
}

func fileDescriptor(log *logrus.Logger) uintptr {
	type fdGetter interface{ Fd() uintptr }
	if f, ok := log.Out.(fdGetter); ok {
		return f.Fd()
	}
	return ^uintptr(0)
}

// Recover turns a downstream panic into a 500 response instead of letting
// it unwind past this middleware. The connection engine already recovers
// at the connection boundary (spec.md §7); this lets a route opt into a
// narrower recovery scope, e.g. to keep one bad handler from aborting
// sibling middlewares' own bookkeeping.
func Recover() zzz.Middleware {
	return func(next zzz.Next) zzz.Next {
		return func(c *zzz.Context) (respond response.Respond) {
			defer func() {
				if r := recover(); r != nil {
					respond = response.Respond{
						Status: response.StatusInternalServerError,
						Mime:   "text/plain",
						Body:   []byte(fmt.Sprintf("internal error: %v", r)),
					}
				}
			}()
			return next(c)
		}
	}
}

// CORSConfig configures CORS.
type CORSConfig struct {
	AllowOrigin  string // "*" for any origin
	AllowMethods string
	AllowHeaders string
}

// CORS attaches Access-Control-* headers to every response, and short-
// circuits OPTIONS preflight requests with a bare 204.
func CORS(cfg CORSConfig) zzz.Middleware {
	if cfg.AllowOrigin == "" {
		cfg.AllowOrigin = "*"
	}
	return func(next zzz.Next) zzz.Next {
		return func(c *zzz.Context) response.Respond {
			if c.Request().Method.String() == "OPTIONS" {
				return response.Respond{Status: response.StatusNoContent}.
					Header("Access-Control-Allow-Origin", cfg.AllowOrigin).
					Header("Access-Control-Allow-Methods", cfg.AllowMethods).
					Header("Access-Control-Allow-Headers", cfg.AllowHeaders)
			}
			respond := next(c)
			return respond.Header("Access-Control-Allow-Origin", cfg.AllowOrigin)
		}
	}
}
