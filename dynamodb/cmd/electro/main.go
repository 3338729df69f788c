// electro queries and mutates DynamoDB entities described by a schema file.
//
// # Installation
//
//	go install github.com/acksell/electro/dynamodb/cmd/electro@latest
//
// # Quick Start
//
// Register a schema, then query its access patterns:
//
//	electro add ./employee.yaml --local
//	electro query employee coworkers gw dev
//	electro scan employee employee -f salary,gt,100
//
// Generate type definitions:
//
//	electro typedef ./employee.yaml -o employee.d.ts
//
// Serve every registered instance over HTTP:
//
//	electro serve 8080
//
// Configuration (optional) is read from electro.yaml, found by walking up
// from the working directory, and from ELECTRO_ environment variables:
//
//	registry: ~/.electro/registry.yaml
//	dataDir: ~/.electro/data   # local stores; "" keeps them in memory
//	log:
//	  level: info
//	aws:
//	  region: us-east-1
//	serve:
//	  port: 8080
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/acksell/electro/dynamodb/cli"
	"github.com/acksell/electro/dynamodb/config"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "electro: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.New(cfg, logger, os.Stdout, os.Stderr).Execute(ctx, os.Args[1:]); err != nil {
		stop()
		os.Exit(1)
	}
}
