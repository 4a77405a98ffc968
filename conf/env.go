package conf

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

func getEnvOrPanic(name string) string {
	value := os.Getenv(name)
	if value == "" {
		panic(fmt.Sprintf("environment variable %s is not set", name))
	}
	return value
}

func getEnvIntOrDefault(name string, def int) int {
	value := os.Getenv(name)
	if value == "" {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		panic(fmt.Sprintf("environment variable %s is not an integer: %v", name, err))
	}
	return n
}

func getEnvDurationOrDefault(name string, def time.Duration) time.Duration {
	value := os.Getenv(name)
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		panic(fmt.Sprintf("environment variable %s is not a duration: %v", name, err))
	}
	return d
}

func GetJwtKeyFromEnv() []byte {
	return []byte(getEnvOrPanic("JWT_KEY"))
}

func GetS3BucketFromEnv() string {
	return getEnvOrPanic("S3_BUCKET")
}

func GetMatchSqsUrlFromEnv() string {
	return getEnvOrPanic("MATCH_SQS_URL")
}

func GetCallbackBaseUrlFromEnv() string {
	return getEnvOrPanic("CALLBACK_BASE_URL")
}

// GetBaseDirFromEnv is the root under which per-room and per-code
// staging directories are created.
func GetBaseDirFromEnv() string {
	return getEnvOrPanic("MATCH_BASE_DIR")
}

func GetImageMapPathFromEnv() string {
	return getEnvOrPanic("CONTEST_IMAGES_TOML")
}

func GetSlotCapFromEnv() int {
	return getEnvIntOrDefault("MATCH_SLOT_CAP", 6)
}

func GetPortBaseFromEnv() int {
	return getEnvIntOrDefault("STREAM_PORT_BASE", 8888)
}

func GetPortCountFromEnv() int {
	return getEnvIntOrDefault("STREAM_PORT_COUNT", 10)
}

func GetTickIntervalFromEnv() time.Duration {
	return getEnvDurationOrDefault("QUEUE_TICK_INTERVAL", 30*time.Second)
}

func GetCompileTimeoutFromEnv() time.Duration {
	return getEnvDurationOrDefault("COMPILE_TIMEOUT", 10*time.Minute)
}
