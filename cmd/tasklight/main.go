package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Set by the release build via -ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	configPath := flag.String("config", "", "config file (default is $HOME/.config/tasklight/config.yml)")
	showVersion := flag.Bool("version", false, "print version information")
	flag.Parse()

	if *showVersion {
		printVersion()
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tasklight:", err)
		os.Exit(1)
	}
	if err := runServer(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "tasklight:", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("tasklight %s\n", version)
	fmt.Printf("  commit: %s\n", commit)
	fmt.Printf("  built:  %s (%s)\n", buildTime, goVersion)
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("resolve home directory: %w", err)
	}
	dataDir := filepath.Join(home, ".local", "share", "tasklight")

	v := newConfigViper(dataDir)
	if configPath == "" {
		configPath = filepath.Join(home, ".config", "tasklight", "config.yml")
	}
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	for _, p := range []*string{&cfg.DBPath, &cfg.JournalPath, &cfg.BackupLocalDir} {
		*p = expandHome(*p, home)
	}
	resolveAddrs(&cfg)
	return cfg, validateConfig(cfg)
}

// newConfigViper carries the full key set with defaults. Every key can
// be overridden from the config file or a TASKLIGHT_ env var.
func newConfigViper(dataDir string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("TASKLIGHT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	defaults := map[string]any{
		"processor":               "",
		"tcp-enabled":             true,
		"tcp-port":                defaultTCPPort,
		"otlp-enabled":            true,
		"otlp-port":               defaultOTLPPort,
		"api-enabled":             true,
		"api-port":                defaultAPIPort,
		"mux-buffer-size":         defaultMuxBufferSize,
		"db-path":                 filepath.Join(dataDir, "tasklight.duckdb"),
		"query-timeout":           defaultQueryTimeout,
		"max-concurrent-queries":  defaultMaxConcurrentReads,
		"insert-batch-size":       defaultInsertBatchSize,
		"insert-flush-interval":   defaultInsertFlushInterval,
		"insert-flush-queue-size": defaultInsertFlushQueue,
		"journal-enabled":         true,
		"journal-path":            filepath.Join(dataDir, "ingest.journal"),
		"log-retention":           defaultLogRetention,
		"backup-enabled":          false,
		"backup-interval":         defaultBackupInterval,
		"backup-local-dir":        filepath.Join(dataDir, "backups"),
		"backup-keep-last":        defaultBackupKeepLast,
		"backup-s3-use-ssl":       true,
	}
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	return v
}

// resolveAddrs fills the listen addresses that were not set explicitly.
func resolveAddrs(cfg *appConfig) {
	if cfg.Host == "" {
		cfg.Host = defaultBindHost
	}
	addr := func(explicit string, port int) string {
		if explicit != "" {
			return explicit
		}
		return net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	}
	cfg.TCPAddr = addr(cfg.TCPAddr, cfg.TCPPort)
	cfg.OTLPAddr = addr(cfg.OTLPAddr, cfg.OTLPPort)
	cfg.APIAddr = addr(cfg.APIAddr, cfg.APIPort)
}

func validateConfig(cfg appConfig) error {
	ports := []struct {
		key  string
		port int
	}{
		{"tcp-port", cfg.TCPPort},
		{"otlp-port", cfg.OTLPPort},
		{"api-port", cfg.APIPort},
	}
	for _, p := range ports {
		if p.port <= 0 || p.port > 65535 {
			return fmt.Errorf("%s out of range: %d", p.key, p.port)
		}
	}
	if cfg.BackupEnabled {
		if cfg.BackupInterval <= 0 {
			return fmt.Errorf("backup-interval must be positive, got %s", cfg.BackupInterval)
		}
		if cfg.BackupKeepLast <= 0 {
			return fmt.Errorf("backup-keep-last must be positive, got %d", cfg.BackupKeepLast)
		}
		if cfg.BackupBucketURL != "" && (cfg.BackupS3AccessKey == "" || cfg.BackupS3SecretKey == "") {
			return errors.New("backup-bucket-url needs backup-s3-access-key and backup-s3-secret-key")
		}
	}
	return nil
}

func expandHome(path, home string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
