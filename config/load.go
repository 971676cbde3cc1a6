package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Load reads the recognized option set from environment variables prefixed
// ZZZ_ (e.g. ZZZ_BACKLOG_COUNT) and from any config file registered on v,
// overlaying them onto Default().
func Load(v *viper.Viper) (Config, error) {
	cfg := Default()

	v.SetEnvPrefix("zzz")
	v.AutomaticEnv()

	bindInt(v, "backlog_count", cfg.BacklogCount)
	bindInt(v, "stack_size", cfg.StackSize)
	bindInt(v, "connection_count_max", *cfg.ConnectionCountMax)
	bindInt(v, "connection_arena_bytes_retain", cfg.ConnectionArenaBytesRetain)
	bindInt(v, "list_recv_bytes_retain", cfg.ListRecvBytesRetain)
	bindInt(v, "list_recv_bytes_max", cfg.ListRecvBytesMax)
	bindInt(v, "socket_buffer_bytes", cfg.SocketBufferBytes)
	bindInt(v, "header_count_max", cfg.HeaderCountMax)
	bindInt(v, "capture_count_max", cfg.CaptureCountMax)
	bindInt(v, "query_count_max", cfg.QueryCountMax)
	bindInt(v, "request_bytes_max", cfg.RequestBytesMax)
	bindInt(v, "request_uri_bytes_max", cfg.RequestURIBytesMax)
	v.SetDefault("security", string(cfg.Security))

	cfg.BacklogCount = v.GetInt("backlog_count")
	cfg.StackSize = v.GetInt("stack_size")
	cfg.ConnectionArenaBytesRetain = v.GetInt("connection_arena_bytes_retain")
	cfg.ListRecvBytesRetain = v.GetInt("list_recv_bytes_retain")
	cfg.ListRecvBytesMax = v.GetInt("list_recv_bytes_max")
	cfg.SocketBufferBytes = v.GetInt("socket_buffer_bytes")
	cfg.HeaderCountMax = v.GetInt("header_count_max")
	cfg.CaptureCountMax = v.GetInt("capture_count_max")
	cfg.QueryCountMax = v.GetInt("query_count_max")
	cfg.RequestBytesMax = v.GetInt("request_bytes_max")
	cfg.RequestURIBytesMax = v.GetInt("request_uri_bytes_max")

	if max := v.GetInt("connection_count_max"); max > 0 {
		m := max
		cfg.ConnectionCountMax = &m
	} else {
		cfg.ConnectionCountMax = nil
	}

	switch sec := Security(v.GetString("security")); sec {
	case SecurityPlaintext, SecurityTLS:
		cfg.Security = sec
	default:
		return cfg, fmt.Errorf("config: unrecognized security option %q", sec)
	}

	return cfg, nil
}

func bindInt(v *viper.Viper, key string, def int) {
	v.SetDefault(key, def)
}
