package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type FusionServerConfig struct {
	HTTPAddr         string
	DBDSN            string
	MQTTBrokerURL    string
	MQTTClientID     string
	MQTTUsername     string
	MQTTPassword     string
	MQTTTopicPrefix  string
	Window           time.Duration
	StoreTimeout     time.Duration
	EnhancerTimeout  time.Duration
	EnhancerProvider string
	EnhancerModel    string
	OpenAIBaseURL    string
	OpenAIAPIKey     string
	AnthropicBaseURL string
	AnthropicAPIKey  string
	RulesPath        string
}

func LoadFusionServerConfig() (FusionServerConfig, error) {
	cfg := FusionServerConfig{
		HTTPAddr:         getenvDefault("FUSION_HTTP_ADDR", ":9020"),
		DBDSN:            os.Getenv("DB_DSN"),
		MQTTBrokerURL:    getenvDefault("MQTT_BROKER_URL", "tcp://localhost:1883"),
		MQTTClientID:     getenvDefault("FUSION_MQTT_CLIENT_ID", "fusion-server"),
		MQTTUsername:     os.Getenv("MQTT_USERNAME"),
		MQTTPassword:     os.Getenv("MQTT_PASSWORD"),
		MQTTTopicPrefix:  getenvDefault("MQTT_TOPIC_PREFIX", "emofuse"),
		Window:           time.Duration(getenvIntDefault("FUSION_WINDOW_SECONDS", 300)) * time.Second,
		StoreTimeout:     time.Duration(getenvIntDefault("STORE_TIMEOUT_SECONDS", 3)) * time.Second,
		EnhancerTimeout:  time.Duration(getenvIntDefault("ENHANCER_TIMEOUT_SECONDS", 5)) * time.Second,
		EnhancerProvider: getenvDefault("ENHANCER_PROVIDER", "disabled"),
		EnhancerModel:    getenvDefault("ENHANCER_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:    getenvDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		AnthropicBaseURL: getenvDefault("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		RulesPath:        os.Getenv("FUSION_RULES_PATH"),
	}

	if cfg.DBDSN == "" {
		return FusionServerConfig{}, fmt.Errorf("DB_DSN is required")
	}
	if cfg.EnhancerProvider == "openai" && cfg.OpenAIAPIKey == "" {
		return FusionServerConfig{}, fmt.Errorf("OPENAI_API_KEY is required when ENHANCER_PROVIDER=openai")
	}
	if cfg.EnhancerProvider == "claude" && cfg.AnthropicAPIKey == "" {
		return FusionServerConfig{}, fmt.Errorf("ANTHROPIC_API_KEY is required when ENHANCER_PROVIDER=claude")
	}

	return cfg, nil
}

func getenvDefault(key, val string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return val
}

func getenvIntDefault(key string, val int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return val
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return val
	}
	return n
}
