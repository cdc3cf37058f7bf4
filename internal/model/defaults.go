package model

import "time"

// Shared defaults used by both the server and TUI binaries.
const (
	DefaultFetchLimit    = 5000
	DefaultLiveBuffer    = 1000
	DefaultQueryTimeout  = 10 * time.Second
	DefaultSkin          = "default"
	DefaultTask          = "default"
	DefaultLevel         = "INFO"
	DefaultHTTPAddr      = "127.0.0.1:8844"
	DefaultTCPAddr       = "127.0.0.1:8845"
	DefaultOTLPAddr      = "127.0.0.1:4317"
	DefaultServerBaseURL = "http://127.0.0.1:8844"
)
