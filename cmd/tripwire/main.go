package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/tripwire/internal/api"
	"github.com/banshee-data/tripwire/internal/config"
	"github.com/banshee-data/tripwire/internal/link"
	"github.com/banshee-data/tripwire/internal/machine"
	"github.com/banshee-data/tripwire/internal/monitoring"
	"github.com/banshee-data/tripwire/internal/serialmux"
	"github.com/banshee-data/tripwire/internal/version"
)

var (
	configPath     = flag.String("config", "", "Path to a JSON config file")
	listen         = flag.String("listen", config.DefaultListen, "HTTP listen address")
	port           = flag.String("port", os.Getenv("TRIPWIRE_SERIAL_PORT"), "Serial port of the controller, e.g. /dev/ttyACM0 or COM8 (env TRIPWIRE_SERIAL_PORT)")
	baud           = flag.Int("baud", config.DefaultBaudRate, "Serial baud rate")
	readTimeout    = flag.Duration("read-timeout", config.DefaultReadTimeout, "Serial read timeout")
	pollInterval   = flag.Duration("poll-interval", config.DefaultPollInterval, "Pause between serial line reads")
	settle         = flag.Duration("settle", config.DefaultSettleDelay, "Wait after opening the port while the controller resets (0 disables)")
	reopenInterval = flag.Duration("reopen-interval", config.DefaultReopenInterval, "Reopen the serial port this long after it fails (0 disables)")
	devMode        = flag.Bool("dev", false, "Replay a fixture file instead of reading the serial port")
	fixture        = flag.String("fixture", "fixtures.txt", "Fixture file replayed in dev mode")
	disableSerial  = flag.Bool("disable-serial", false, "Serve the default state without opening the serial port")
	listPorts      = flag.Bool("list-ports", false, "List serial ports and exit")
	verbose        = flag.Bool("verbose", false, "Log raw serial lines and every request")
	showVersion    = flag.Bool("version", false, "Print version and exit")
)

// devLineInterval paces fixture replay like a person at the keypad.
const devLineInterval = 500 * time.Millisecond

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *listPorts {
		ports, err := serialmux.ListPorts()
		if err != nil {
			log.Fatalf("failed to list serial ports: %v", err)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	var cfg *config.Config
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	s := resolveSettings(cfg, explicitFlags(flag.CommandLine))
	if s.Listen == "" {
		log.Fatal("Listen address is required")
	}
	if !*devMode && !*disableSerial && s.SerialPort == "" {
		log.Fatal("Serial port is required (use --port, --dev or --disable-serial)")
	}
	monitoring.SetVerbose(s.Verbose)
	monitoring.Logf("starting %s", version.String())

	bridge := machine.NewBridge(machine.BridgeConfig{PollInterval: s.PollInterval})
	tap := serialmux.NewTap()
	defer tap.Close()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ingestion routine; its failure never takes the HTTP server down
	switch {
	case *disableSerial:
		bridge.SetLink(machine.LinkDisabled)
		monitoring.Logf("serial disabled, serving default state")
	case *devMode:
		src, err := serialmux.LoadFixture(s.Fixture, devLineInterval)
		if err != nil {
			log.Fatalf("failed to open fixtures file: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := bridge.Run(ctx, src); err != nil && !errors.Is(err, context.Canceled) {
				monitoring.Logf("fixture replay stopped: %v", err)
			}
			monitoring.Logf("ingestion routine terminated")
		}()
	default:
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := link.Supervise(ctx, bridge, s.linkConfig(tap))
			if err != nil && !errors.Is(err, context.Canceled) {
				monitoring.Logf("serial ingestion stopped, state is frozen: %v", err)
			}
			monitoring.Logf("ingestion routine terminated")
		}()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		apiServer := api.NewServer(bridge)
		mux := apiServer.ServeMux()
		apiServer.AttachAdminRoutes(mux)
		tap.AttachAdminRoutes(mux)

		server := &http.Server{
			Addr:              s.Listen,
			Handler:           apiServer.Handler(mux),
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			monitoring.Logf("serving status on %s", s.Listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
