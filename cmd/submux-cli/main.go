// Command submux-cli is an interactive pub/sub client that multiplexes its
// subscriptions over a pool of connections.
//
// Usage:
//
//	submux-cli [flags]
//
// Flags:
//
//	-config string        Configuration file path
//	-address string       Broker address (overrides config)
//	-codec string         Payload codec: raw, string, cbor (default "string")
//	-log-level string     Log level: debug, info, warn, error
//	-protocol-log string  Write protocol events to this file
//
// Examples:
//
//	# Connect to a local submux-broker and record the session
//	submux-cli -address 127.0.0.1:6380 -protocol-log client.slog
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/submux/submux-go/cmd/submux-cli/interactive"
	"github.com/submux/submux-go/pkg/config"
	"github.com/submux/submux-go/pkg/log"
	"github.com/submux/submux-go/pkg/service"
	"github.com/submux/submux-go/pkg/wire"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Configuration file path")
		address     = flag.String("address", "", "Broker address (overrides config)")
		codecName   = flag.String("codec", "string", "Payload codec: raw, string, cbor")
		logLevel    = flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
		protocolLog = flag.String("protocol-log", "", "Write protocol events to this file (overrides config)")
	)
	flag.Parse()

	if err := run(*configFile, *address, *codecName, *logLevel, *protocolLog); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile, address, codecName, logLevel, protocolLog string) error {
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

	codec, err := wire.CodecByName(codecName)
	if err != nil {
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

	ccfg := cfg.ConnConfig()
	ccfg.Logger = logger
	pcfg := cfg.PoolConfig()
	pcfg.Logger = logger
	if len(protocolLoggers) > 0 {
		plog := log.NewMultiLogger(protocolLoggers...)
		ccfg.ProtocolLogger = plog
		pcfg.Entry.ProtocolLogger = plog
	}
	pcfg.Connect = service.DialConnector(cfg.Address, ccfg)

	pool, err := service.NewPool(pcfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("submux client for %s (codec %s)\n", cfg.Address, codec.Name())
	return interactive.NewShell(pool, codec, cfg.RequestTimeout*2, os.Stdout).Run(ctx)
}
