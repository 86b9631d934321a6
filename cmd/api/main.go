// Command api serves the pipeline admin HTTP API.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/newsforge/pipeline/internal/app"
	"github.com/newsforge/pipeline/internal/logger"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yml", "path to config file")
	flag.Parse()

	// .env is optional; environment variables win over the config file.
	_ = godotenv.Load()

	a, err := app.New(app.Options{
		ConfigPath: *configPath,
		Version:    version,
	})
	if err != nil {
		log.Fatalf("failed to start api: %v", err)
	}
	defer a.Close()

	if err := a.RunAPI(context.Background()); err != nil {
		a.Logger().Error("api exited with error", logger.Error(err))
		a.Close()
		os.Exit(1)
	}
}
