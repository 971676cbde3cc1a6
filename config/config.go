// Package config enumerates the tunables of the zzz connection engine and
// loads them from ZZZ_-prefixed environment variables via viper. No
// command-line flags are bound to these options.
package config

import "time"

// Security selects the transport the server binds to. TLS handshake
// mechanics live outside the core (see transport.Transport); the core only
// carries the value. Nothing in it reads the field, and ListenAndServe
// always binds plain TCP.
type Security string

const (
	SecurityPlaintext Security = "plaintext"
	SecurityTLS       Security = "tls"
)

// Config is the full set of recognized options from spec.md §6, with the
// defaults from its table.
type Config struct {
	// BacklogCount is the listen backlog passed to the transport.
	BacklogCount int

	// StackSize is advisory; Go goroutines grow their own stacks, but the
	// option is kept so operators porting a config file from the original
	// zzz don't hit an unknown-key error.
	StackSize int

	// ConnectionCountMax bounds the provision pool. Nil means unbounded.
	ConnectionCountMax *int

	ConnectionArenaBytesRetain int
	ListRecvBytesRetain        int
	ListRecvBytesMax           int
	SocketBufferBytes          int

	HeaderCountMax  int
	CaptureCountMax int
	QueryCountMax   int

	RequestBytesMax    int
	RequestURIBytesMax int

	Security Security
}

// Default returns the configuration with every default from spec.md §6.
func Default() Config {
	max := 1024
	return Config{
		BacklogCount:               512,
		StackSize:                  1 << 20, // 1 MiB
		ConnectionCountMax:         &max,
		ConnectionArenaBytesRetain: 1 << 10, // 1 KiB
		ListRecvBytesRetain:        1 << 10, // 1 KiB
		ListRecvBytesMax:           2 << 20, // 2 MiB
		SocketBufferBytes:          1 << 10, // 1 KiB
		HeaderCountMax:             32,
		CaptureCountMax:            8,
		QueryCountMax:              8,
		RequestBytesMax:            2 << 20, // 2 MiB
		RequestURIBytesMax:         2 << 10, // 2 KiB
		Security:                   SecurityPlaintext,
	}
}

// Unbounded marks the provision pool as having no admission limit.
func (c *Config) Unbounded() {
	c.ConnectionCountMax = nil
}

// AcceptDeadlineJitter is not part of the recognized option set. Nothing in
// this module reads it; the accept loop blocks in Accept and does not poll.
var AcceptDeadlineJitter = 50 * time.Millisecond
