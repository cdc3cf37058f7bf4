package main

import (
	"time"

	"github.com/tasklight/tasklight/internal/model"
)

const (
	defaultBindHost            = "127.0.0.1"
	defaultAPIPort             = 8844
	defaultTCPPort             = 8845
	defaultOTLPPort            = 4317
	defaultMuxBufferSize       = 50_000
	defaultQueryTimeout        = model.DefaultQueryTimeout
	defaultMaxConcurrentReads  = 8
	defaultInsertBatchSize     = 2000
	defaultInsertFlushInterval = 100 * time.Millisecond
	defaultInsertFlushQueue    = 64
	defaultLogRetention        = 30 // days; zero turns cleanup off
	defaultBackupInterval      = 6 * time.Hour
	defaultBackupKeepLast      = 5
)

// appConfig is the service runtime configuration. It is package-private
// to keep defaults and shape local to the entrypoint; the TUI binary
// reads its own keys from the same config file.
type appConfig struct {
	Host                string        `mapstructure:"host"`
	Processor           string        `mapstructure:"processor"`
	TCPEnabled          bool          `mapstructure:"tcp-enabled"`
	TCPPort             int           `mapstructure:"tcp-port"`
	TCPAddr             string        `mapstructure:"tcp-addr"`
	OTLPEnabled         bool          `mapstructure:"otlp-enabled"`
	OTLPPort            int           `mapstructure:"otlp-port"`
	OTLPAddr            string        `mapstructure:"otlp-addr"`
	APIEnabled          bool          `mapstructure:"api-enabled"`
	APIPort             int           `mapstructure:"api-port"`
	APIAddr             string        `mapstructure:"api-addr"`
	MuxBufferSize       int           `mapstructure:"mux-buffer-size"`
	DBPath              string        `mapstructure:"db-path"`
	QueryTimeout        time.Duration `mapstructure:"query-timeout"`
	MaxConcurrentReads  int           `mapstructure:"max-concurrent-queries"`
	InsertBatchSize     int           `mapstructure:"insert-batch-size"`
	InsertFlushInterval time.Duration `mapstructure:"insert-flush-interval"`
	InsertFlushQueue    int           `mapstructure:"insert-flush-queue-size"`
	JournalEnabled      bool          `mapstructure:"journal-enabled"`
	JournalPath         string        `mapstructure:"journal-path"`
	LogRetention        int           `mapstructure:"log-retention"`
	BackupEnabled       bool          `mapstructure:"backup-enabled"`
	BackupInterval      time.Duration `mapstructure:"backup-interval"`
	BackupLocalDir      string        `mapstructure:"backup-local-dir"`
	BackupKeepLast      int           `mapstructure:"backup-keep-last"`
	BackupBucketURL     string        `mapstructure:"backup-bucket-url"`
	BackupS3Endpoint    string        `mapstructure:"backup-s3-endpoint"`
	BackupS3Region      string        `mapstructure:"backup-s3-region"`
	BackupS3AccessKey   string        `mapstructure:"backup-s3-access-key"`
	BackupS3SecretKey   string        `mapstructure:"backup-s3-secret-key"`
	BackupS3Token       string        `mapstructure:"backup-s3-session-token"`
	BackupS3UseSSL      bool          `mapstructure:"backup-s3-use-ssl"`
	ConfigPath          string        `mapstructure:"-"` // filled in after load
}
