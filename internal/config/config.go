package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port             string
	ConsulAddress    string
	ServiceName      string
	ServiceID        string
	ServiceAddress   string
	RabbitMQUser     string
	RabbitMQPassword string
	RabbitMQPort     string
	JWTSecret        string
	JWTExpired       int64
	AdminEmails      []string
	NotificationOn   bool
}

func init() {
	ServiceConfig = New()
}

var ServiceConfig *Config

func New() *Config {
	jwtExpiredStr := getEnv("TOKEN_EXPIRY_TIME", "24")
	jwtExpired, _ := strconv.Atoi(jwtExpiredStr)

	notificationOn, _ := strconv.ParseBool(getEnv("ACCESS_NOTIFICATION_ENABLED", "true"))

	return &Config{
		Port:             getEnv("PORT", "9140"),
		RabbitMQUser:     getEnv("RABBITMQ_USER", ""),
		RabbitMQPassword: getEnv("RABBITMQ_PASSWORD", ""),
		RabbitMQPort:     getEnv("RABBITMQ_PORT", ""),
		ConsulAddress:    "consul-server:" + getEnv("CONSUL_PORT", "8500"),
		ServiceName:      getEnv("ACCESS_SERVICE_NAME", "access-service"),
		ServiceID:        getEnv("ACCESS_SERVICE_NAME", "access-service") + "-" + getEnv("ACCESS_HOSTNAME", "1"),
		ServiceAddress:   getEnv("ACCESS_SERVICE_ADDRESS", "access-service"),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTExpired:       int64(jwtExpired),
		AdminEmails:      splitList(getEnv("ACCESS_ADMIN_EMAILS", "")),
		NotificationOn:   notificationOn,
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Error Retriving ENV: %s not exist", key)
	return fallback
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
