package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/burntcarrot/rtdoc/config"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/writer"
)

// Flags represents the command-line flags that are passed to rtdoc's client.
// Flags that are set override the configuration file.
type Flags struct {
	Config   string
	Server   string
	Secure   bool
	Document string
	Username string
	NoUndo   bool
	Debug    bool
}

// parseFlags parses command-line flags.
func parseFlags() Flags {
	configPath := flag.String("config", "", "Path to a YAML configuration file")
	serverAddr := flag.String("server", "", "The network address of the server")
	useSecureConn := flag.Bool("secure", false, "Enable a secure WebSocket connection (wss://)")
	doc := flag.String("doc", "", "The document to open")
	username := flag.String("name", "", "The name shown to other users")
	noUndo := flag.Bool("no-undo", false, "Disable undo and redo")
	enableDebug := flag.Bool("debug", false, "Enable debugging mode to show more verbose logs")

	flag.Parse()

	return Flags{
		Config:   *configPath,
		Server:   *serverAddr,
		Secure:   *useSecureConn,
		Document: *doc,
		Username: *username,
		NoUndo:   *noUndo,
		Debug:    *enableDebug,
	}
}

// apply overrides cfg with the flags that were set.
func (f Flags) apply(cfg config.ClientConfig) config.ClientConfig {
	if f.Server != "" {
		cfg.Server = f.Server
	}
	if f.Secure {
		cfg.Secure = true
	}
	if f.Document != "" {
		cfg.Document = f.Document
	}
	if f.Username != "" {
		cfg.Username = f.Username
	}
	if f.NoUndo {
		cfg.Undo.Enabled = false
	}
	return cfg
}

// ensureDirExists ensures that a directory exists, and if it isn't present, it tries to create a new one.
func ensureDirExists(path string) (bool, error) {
	// Check if the directory exists
	if _, err := os.Stat(path); err == nil {
		return true, nil
	}

	// Create the directory
	err := os.Mkdir(path, 0700)
	if err != nil {
		return false, err
	}

	return true, nil
}

// logDir returns the directory log files are written to.
func logDir(cfg config.LogConfig) (string, error) {
	if cfg.Dir != "" {
		return cfg.Dir, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", nil
	}
	return filepath.Join(homeDir, ".rtdoc"), nil
}

// setupLogger initializes the client's logger (logrus).
// Warnings and errors go to rtdoc.log, everything else to rtdoc-debug.log.
func setupLogger(logger *logrus.Logger, cfg config.LogConfig) (*os.File, *os.File, error) {
	// define log file paths, based on the log directory.
	logPath := "rtdoc.log"
	debugLogPath := "rtdoc-debug.log"

	dir, err := logDir(cfg)
	if err != nil {
		return nil, nil, err
	}

	if dir != "" {
		if _, err := ensureDirExists(dir); err != nil {
			return nil, nil, err
		}
		logPath = filepath.Join(dir, logPath)
		debugLogPath = filepath.Join(dir, debugLogPath)
	}

	// Open the log file and create if it does not exist.
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) // skipcq: GSC-G302
	if err != nil {
		return nil, nil, err
	}

	// Create a separate log file for verbose logs.
	debugLogFile, err := os.OpenFile(debugLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) // skipcq: GSC-G302
	if err != nil {
		logFile.Close()
		return nil, nil, err
	}

	logger.SetOutput(io.Discard)
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	logger.AddHook(&writer.Hook{
		Writer: logFile,
		LogLevels: []logrus.Level{
			logrus.WarnLevel,
			logrus.ErrorLevel,
			logrus.FatalLevel,
			logrus.PanicLevel,
		},
	})
	logger.AddHook(&writer.Hook{
		Writer: debugLogFile,
		LogLevels: []logrus.Level{
			logrus.TraceLevel,
			logrus.DebugLevel,
			logrus.InfoLevel,
		},
	})

	return logFile, debugLogFile, nil
}

// closeLogFiles closes the log files created by the client.
// closeLogFiles is meant to be used for defer calls.
func closeLogFiles(logFile, debugLogFile *os.File) {
	if err := logFile.Close(); err != nil {
		fmt.Printf("Failed to close log file: %s", err)
		return
	}

	if err := debugLogFile.Close(); err != nil {
		fmt.Printf("Failed to close debug log file: %s", err)
		return
	}
}
