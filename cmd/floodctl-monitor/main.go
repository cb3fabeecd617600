package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/lcalzada-xor/floodctl/internal/adapters/monitorclient"
	"github.com/lcalzada-xor/floodctl/internal/adapters/pubsub"
	"github.com/lcalzada-xor/floodctl/internal/core/domain"
	grpcclient "github.com/lcalzada-xor/floodctl/internal/core/services/grpc"
)

func main() {
	serverAddr := flag.String("server", "localhost:9000", "Controller gRPC address")
	id := flag.String("id", "", "Monitor identity (required)")
	pubsubURL := flag.String("pubsub", "tcp://127.0.0.1:9100", "Controller verdict publisher URL (empty to ignore verdicts)")
	feedPath := flag.String("feed", "-", "JSON-lines report feed, - for stdin")
	wait := flag.Bool("wait", false, "Keep following verdicts after the feed ends")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *id == "" {
		slog.Error("Missing -id")
		os.Exit(2)
	}

	// 1. Connect to the controller
	conn, err := grpc.NewClient(*serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		slog.Error("Could not connect", "server", *serverAddr, "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	// 2. Verdict subscription
	var source monitorclient.NotificationSource
	if *pubsubURL != "" {
		sub, err := pubsub.NewSubscriber(*pubsubURL, domain.MonitorID(*id), logger)
		if err != nil {
			slog.Error("Could not subscribe to verdicts", "url", *pubsubURL, "error", err)
			os.Exit(1)
		}
		defer sub.Close()
		source = sub
	}

	agent := monitorclient.NewAgent(domain.MonitorID(*id), grpcclient.NewClient(conn), source, logger)

	var feed io.Reader = os.Stdin
	if *feedPath != "-" {
		f, err := os.Open(*feedPath)
		if err != nil {
			slog.Error("Could not open feed", "path", *feedPath, "error", err)
			os.Exit(1)
		}
		defer f.Close()
		feed = f
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	listenDone := make(chan struct{})
	go func() {
		defer close(listenDone)
		if err := agent.Listen(ctx); err != nil {
			slog.Error("Verdict listener stopped", "error", err)
		}
	}()

	slog.Info("Monitor started", "monitor", *id, "server", *serverAddr)

	// 3. Stream reports to the controller
	if err := agent.Forward(ctx, feed); err != nil && ctx.Err() == nil {
		slog.Error("Report feed failed", "error", err)
	}

	if !*wait {
		cancel()
	}
	<-listenDone

	slog.Info("Monitor stopped", "blocklist", agent.Blocklist().Snapshot().Strings())
}
