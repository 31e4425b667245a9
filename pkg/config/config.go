package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP Configuration
	HTTPAddr string

	// MQTT Configuration
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	// Change-notification topics
	MQTTTopicTelemetry string
	MQTTTopicWorkLog   string

	// ClickHouse Configuration
	ClickHouseAddr string
	ClickHouseDB   string
	ClickHouseUser string
	ClickHousePass string

	// Monitor groups
	HardSlaveIDs []int
	SoftSlaveIDs []int

	SeriesCap      int
	HardQueryLimit int
	SoftQueryLimit int

	HardOnlineThreshold time.Duration
	SoftOnlineThreshold time.Duration

	DefaultTimeRange string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		// HTTP Configuration
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		// MQTT Configuration
		MQTTBroker:   getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "rectifier-monitor"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),

		// Change-notification topics
		MQTTTopicTelemetry: getEnv("MQTT_TOPIC_TELEMETRY", "rectifier/telemetry"),
		MQTTTopicWorkLog:   getEnv("MQTT_TOPIC_WORKLOG", "worklog/events"),

		// ClickHouse Configuration
		ClickHouseAddr: getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:   getEnv("CLICKHOUSE_DB", "rectifier"),
		ClickHouseUser: getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePass: getEnv("CLICKHOUSE_PASS", ""),

		// Monitor groups. Hard units are slaves 2 and 1 (in display order),
		// soft units are slaves 3 and 4.
		HardSlaveIDs: getEnvInts("HARD_SLAVE_IDS", []int{2, 1}),
		SoftSlaveIDs: getEnvInts("SOFT_SLAVE_IDS", []int{3, 4}),

		SeriesCap:      getEnvInt("SERIES_CAP", 1000),
		HardQueryLimit: getEnvInt("HARD_QUERY_LIMIT", 1000),
		SoftQueryLimit: getEnvInt("SOFT_QUERY_LIMIT", 2000),

		HardOnlineThreshold: getEnvDuration("HARD_ONLINE_THRESHOLD", 60*time.Second),
		SoftOnlineThreshold: getEnvDuration("SOFT_ONLINE_THRESHOLD", 120*time.Second),

		DefaultTimeRange: getEnv("DEFAULT_TIME_RANGE", "30m"),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as int, using default: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvInts(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	ints := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			log.Printf("Warning: failed to parse %s as int list, using default: %v", key, err)
			return defaultValue
		}
		ints = append(ints, n)
	}
	return ints
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as duration, using default: %v", key, err)
		return defaultValue
	}
	return d
}
