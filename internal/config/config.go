package config

import (
	"os"
	"strconv"
)

// WLD holds the tunables for the world lifecycle daemon, bound from
// cobra flags with an environment-variable fallback the way warren's CLI
// does (no viper: warren's own command tree manages without it).
type WLD struct {
	ListenAddr string
	ListenPort int
	ConfigRoot string
	LogLevel   string
	LogJSON    bool
}

// PAS holds the tunables for the port allocation service.
type PAS struct {
	SocketPath string
	LogLevel   string
	LogJSON    bool
}

// EnvString returns the environment variable named key, or fallback if
// unset or empty.
func EnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// EnvInt returns the environment variable named key parsed as an int, or
// fallback if unset, empty, or unparseable.
func EnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// EnvBool returns the environment variable named key parsed as a bool,
// or fallback if unset, empty, or unparseable.
func EnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
