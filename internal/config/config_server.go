package config

import "os"

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{Addr: ":8080"}
}

func (s *ServerConfig) applyEnv() {
	if v := os.Getenv("ARCHESTRA_ADDR"); v != "" {
		s.Addr = v
	}
}
