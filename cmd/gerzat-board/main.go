package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	gerzat "github.com/nickdesi/BusTrainGerzat-sub000"
	"github.com/nickdesi/BusTrainGerzat-sub000/config"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to the YAML configuration file")
	oneshot := flag.Bool("oneshot", false, "print one reconciled board as JSON and exit")
	flag.Parse()

	gerzat.InitLogging()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	app, err := gerzat.NewApp(cfg)
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	log.Printf("[main] schedule loaded, %d entries", app.Schedule.Len())

	if *oneshot {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		b := app.FullBoard(ctx)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(b); err != nil {
			log.Fatalf("encode: %v", err)
		}
		return
	}

	srv := gerzat.NewServer(app)
	srv.Start()
	srv.HandleGracefulShutdown()
}
