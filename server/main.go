package main

import (
	"encoding/json"
	"flag"
	"io"
	"net/http"
	"os"

	"github.com/burntcarrot/rtdoc/config"
	"github.com/burntcarrot/rtdoc/snapshotstore"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

func main() {
	// Parse flags.
	configPath := flag.String("config", "", "Path to a YAML configuration file")
	addr := flag.String("addr", "", "Server's network address (overrides the config file)")
	dbPath := flag.String("db", "", "Path to the snapshot database (overrides the config file)")
	verbose := flag.Bool("verbose", false, "Print every relayed message")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		color.Red("Config error, exiting: %s", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Server.Database = *dbPath
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Log.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	store, err := snapshotstore.Open(cfg.Server.Database)
	if err != nil {
		color.Red("Snapshot store error, exiting: %s", err)
		os.Exit(1)
	}
	defer store.Close()

	srv := NewServer(store, logrus.NewEntry(logger))
	srv.verbose = *verbose

	// Start the server.
	color.Yellow("Starting server on %s", cfg.Server.Addr)
	if err := http.ListenAndServe(cfg.Server.Addr, srv.Handler()); err != nil {
		color.Red("Error starting server, exiting: %s", err)
		os.Exit(1)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	return json.NewEncoder(w).Encode(v)
}
