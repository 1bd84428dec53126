package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	channelmonitor "yt-monitor/agents/channel-monitor"
	"yt-monitor/shared/config"
	"yt-monitor/shared/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create context that responds to signals
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	agent := channelmonitor.NewMonitorAgent(cfg)
	s := scheduler.New(cfg, agent)

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--once":
			fmt.Println("Running once...")
			if err := agent.Initialize(); err != nil {
				log.Fatalf("Failed to initialize agent: %v", err)
			}
			if err := s.RunOnce(ctx); err != nil {
				log.Fatalf("Failed to run: %v", err)
			}
			return
		case "--check":
			fmt.Println("Running component self-test...")
			if err := agent.Initialize(); err != nil {
				log.Fatalf("Failed to initialize agent: %v", err)
			}
			if err := agent.SelfTest(ctx); err != nil {
				log.Fatalf("Self-test failed: %v", err)
			}
			fmt.Println("All components OK")
			return
		default:
			log.Fatalf("Unknown flag %q (supported: --once, --check)", os.Args[1])
		}
	}

	fmt.Println("Starting scheduler...")
	if err := s.Start(ctx); err != nil {
		log.Fatalf("Scheduler failed: %v", err)
	}
}
