// Command submux-broker runs a small in-memory pub/sub broker speaking the
// submux wire protocol. It is meant for local experiments with submux-cli.
//
// Usage:
//
//	submux-broker [flags]
//
// Flags:
//
//	-config string        Configuration file path
//	-address string       Listen address (overrides config)
//	-log-level string     Log level: debug, info, warn, error
//	-protocol-log string  Write protocol events to this file
//	-drop-acks string     Comma-separated command kinds to leave unacknowledged
//
// Examples:
//
//	# Exercise client-side unsubscribe timeouts
//	submux-broker -drop-acks unsubscribe,punsubscribe -log-level debug
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/submux/submux-go/internal/testbroker"
	"github.com/submux/submux-go/pkg/config"
	"github.com/submux/submux-go/pkg/log"
	"github.com/submux/submux-go/pkg/pubsub"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Configuration file path")
		address     = flag.String("address", "", "Listen address (overrides config)")
		logLevel    = flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
		protocolLog = flag.String("protocol-log", "", "Write protocol events to this file (overrides config)")
		dropAcks    = flag.String("drop-acks", "", "Comma-separated command kinds to leave unacknowledged")
	)
	flag.Parse()

	if err := run(*configFile, *address, *logLevel, *protocolLog, *dropAcks); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile, address, logLevel, protocolLog, dropAcks string) error {
	cfg := config.Default()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return err
		}
	}
	if address != "" {
		cfg.Address = address
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if protocolLog != "" {
		cfg.ProtocolLog = protocolLog
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var protocolLoggers []log.Logger
	if level <= slog.LevelDebug {
		protocolLoggers = append(protocolLoggers, log.NewSlogAdapter(logger))
	}
	if cfg.ProtocolLog != "" {
		fl, err := log.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			return fmt.Errorf("open protocol log: %w", err)
		}
		defer fl.Close()
		protocolLoggers = append(protocolLoggers, fl)
	}

	bcfg := testbroker.Config{Address: cfg.Address, Logger: logger}
	if len(protocolLoggers) > 0 {
		bcfg.ProtocolLogger = log.NewMultiLogger(protocolLoggers...)
	}

	b := testbroker.New(bcfg)
	for _, name := range strings.Split(dropAcks, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		kind, err := parseKind(name)
		if err != nil {
			return err
		}
		b.DropAcks(kind, true)
		logger.Info("dropping acknowledgements", "kind", kind)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("start broker: %w", err)
	}
	logger.Info("broker listening", "address", b.Addr())

	<-ctx.Done()
	logger.Info("shutting down", "connections", b.ConnectionCount())
	return b.Stop()
}

func parseKind(s string) (pubsub.Kind, error) {
	for k := pubsub.Subscribe; k <= pubsub.PUnsubscribe; k++ {
		if strings.EqualFold(k.String(), s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown command kind %q", s)
}
