// Command zzzserver runs a zzz-based HTTP server: a small demo router
// wired with the logging and recovery middlewares and an SSE broadcast
// endpoint, driven by the same config/flags surface the whk CLI uses for
// its own commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"webhooks.cc/zzz"
	"webhooks.cc/zzz/broadcast"
	"webhooks.cc/zzz/config"
	"webhooks.cc/zzz/middleware"
	"webhooks.cc/zzz/response"
	"webhooks.cc/zzz/sse"
)

var version = "dev"

// sseKeepaliveInterval matches the idle-timeout headroom the teacher's own
// reverse proxies are configured with, so a quiet /events subscriber never
// gets dropped mid-stream.
const sseKeepaliveInterval = 15 * time.Second

func main() {
	var addr string

	root := &cobra.Command{
		Use:     "zzzserver",
		Short:   "run a zzz HTTP server",
		Version: version,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "start the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr)
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(addr string) error {
	log := logrus.StandardLogger()
	if os.Getenv("ZZZ_DEBUG") != "" {
		log.SetLevel(logrus.DebugLevel)
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn}); err != nil {
			log.WithError(err).Warn("sentry init failed, continuing without crash reporting")
		}
		defer sentry.Flush(2 * time.Second)
	}

	cfg, err := config.Load(viper.New())
	if err != nil {
		return err
	}

	s := zzz.New(cfg, zzz.WithLogger(log), zzz.WithSentry())

	ticks := broadcast.NewTopic[string](16)
	go publishTicks(ticks)

	if err := s.Use("/", middleware.Recover()); err != nil {
		return err
	}
	if err := s.Use("/", middleware.Logger(log)); err != nil {
		return err
	}

	if err := s.Get("/", func(c *zzz.Context) response.Respond {
		return response.Respond{Status: response.StatusOK, Mime: "text/html", Body: []byte("Hello, World!")}
	}); err != nil {
		return err
	}

	if err := s.Get("/hi/%s", func(c *zzz.Context) response.Respond {
		name := c.Captures().At(0).Str
		greeting := "Hello"
		if v, ok := c.Query("greeting"); ok {
			greeting = v
		}
		body := c.Arena().AllocFrom([]byte(greeting + ", " + name + "!"))
		return response.Respond{Status: response.StatusOK, Mime: "text/plain", Body: body}
	}); err != nil {
		return err
	}

	if err := s.Get("/events", func(c *zzz.Context) response.Respond {
		return serveEvents(c, ticks, log)
	}); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	return s.ListenAndServe(ctx, addr)
}

// publishTicks is a stand-in for whatever domain event a real deployment
// would broadcast; it exists so /events has something to stream.
func publishTicks(ticks *broadcast.Topic[string]) {
	var n int64
	for range time.Tick(time.Second) {
		n++
		ticks.Publish(strconv.FormatInt(n, 10))
	}
}

func serveEvents(c *zzz.Context, ticks *broadcast.Topic[string], log *logrus.Logger) response.Respond {
	stream, err := c.ToSSE(context.Background())
	if err != nil {
		return response.Respond{Status: response.StatusInternalServerError}
	}

	sub := ticks.Subscribe()
	stopKeepalive := stream.StartKeepalive(context.Background(), sseKeepaliveInterval)
	go func() {
		defer stream.Close()
		defer stopKeepalive()
		defer sub.Unsubscribe()
		for {
			n, ok := <-sub.C
			if !ok {
				return
			}
			if err := stream.Send(context.Background(), sse.Event{Name: "tick", ID: n, Data: n}); err != nil {
				log.WithField("id", c.RequestID()).WithError(err).Debug("sse subscriber disconnected")
				return
			}
		}
	}()

	return response.Respond{}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()
	return ctx, cancel
}
