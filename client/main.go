package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/burntcarrot/rtdoc/commons"
	"github.com/burntcarrot/rtdoc/config"
	"github.com/burntcarrot/rtdoc/transport"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

var (
	// Global logger.
	logger = logrus.New()

	// Flags passed to the client.
	flags Flags
)

func main() {
	// Parse flags.
	flags = parseFlags()

	cfg, err := config.Load(flags.Config)
	if err != nil {
		color.Red("Config error, exiting: %s", err)
		os.Exit(1)
	}
	cfg.Client = flags.apply(cfg.Client)
	if flags.Debug {
		cfg.Log.Debug = true
	}

	// Read username, unless it was configured.
	if cfg.Client.Username == "" {
		s := bufio.NewScanner(os.Stdin)
		fmt.Print(color.YellowString("Enter your name: "))
		s.Scan()
		cfg.Client.Username = strings.TrimSpace(s.Text())
	}

	if err := cfg.Client.Validate(); err != nil {
		color.Red("Config error, exiting: %s", err)
		os.Exit(1)
	}

	// Set up logging.
	logFile, debugLogFile, err := setupLogger(logger, cfg.Log)
	if err != nil {
		color.Red("Logger error, exiting: %s", err)
		os.Exit(1)
	}
	defer closeLogFiles(logFile, debugLogFile)

	entry := logger.WithFields(logrus.Fields{"doc": cfg.Client.Document, "user": cfg.Client.Username})

	// Get WebSocket connection.
	conn, err := transport.Dial(cfg.Client.Server, cfg.Client.Secure, cfg.Client.Document, cfg.Client.HandshakeTimeout)
	if err != nil {
		color.Red("Connection error, exiting: %s", err)
		os.Exit(1)
	}
	defer conn.Close()

	// Send joining message.
	if err := conn.WriteJSON(commons.Message{Type: commons.JoinMessage, Username: cfg.Client.Username, DocID: cfg.Client.Document}); err != nil {
		color.Red("Connection error, exiting: %s", err)
		os.Exit(1)
	}

	// The server answers with the document's snapshot.
	msgChan := transport.ReadMessages(conn, entry)
	snapshot, ok := <-msgChan
	if !ok || snapshot.Type != commons.SnapshotMessage {
		color.Red("Server closed before sending the document, exiting")
		os.Exit(1)
	}

	sink := transport.NewSink(conn, cfg.Client.Document, cfg.Client.Username, entry)
	s, err := newSession(cfg.Client.Document, cfg.Client.Username, snapshot.Snapshot, cfg.Client.Undo, sink, entry)
	if err != nil {
		color.Red("Failed to load document, exiting: %s", err)
		os.Exit(1)
	}
	defer s.Close()

	// Start the UI.
	if err := UI(s, msgChan); err != nil {
		entry.WithError(err).Error("UI exited with an error")
		color.Red("UI error, exiting: %s", err)
		os.Exit(1)
	}

	if err := sink.Err(); err != nil {
		color.Yellow("Some operations couldn't be sent: %s", err)
	}
}
