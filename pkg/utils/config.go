package utils

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type ServerConfig struct {
	Addr string

	// Civil time zone the engine schedules against. A constant offset,
	// not an IANA zone: daylight saving is deliberately out of contract.
	TZOffsetMin int
	TZName      string
}

// LoadServerConfig reads PRESSHUB_* env vars, after loading .env when present.
func LoadServerConfig() ServerConfig {
	// missing .env is fine; env vars win anyway
	_ = godotenv.Load()

	addr := os.Getenv("PRESSHUB_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	name := os.Getenv("PRESSHUB_TZ_NAME")
	if name == "" {
		name = "ICT"
	}

	offset := 420 // UTC+7
	if raw := os.Getenv("PRESSHUB_TZ_OFFSET_MIN"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			offset = n
		}
	}

	return ServerConfig{
		Addr:        addr,
		TZOffsetMin: offset,
		TZName:      name,
	}
}
