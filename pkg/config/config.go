package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the gateway service
type Config struct {
	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Hyperledger Fabric configuration
	Fabric FabricConfig `mapstructure:"fabric"`

	// Monitoring configuration
	Monitoring MonitoringConfig `mapstructure:"monitoring"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
}

// FabricConfig holds the connection profile for the Fabric gateway peer
type FabricConfig struct {
	MSPID         string `mapstructure:"msp_id"`
	CertPath      string `mapstructure:"cert_path"`
	KeyPath       string `mapstructure:"key_path"`
	TLSCertPath   string `mapstructure:"tls_cert_path"`
	PeerEndpoint  string `mapstructure:"peer_endpoint"`
	GatewayPeer   string `mapstructure:"gateway_peer"`
	ChannelName   string `mapstructure:"channel_name"`
	ChaincodeName string `mapstructure:"chaincode_name"`
}

// MonitoringConfig holds monitoring configuration
type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
	HealthPath  string `mapstructure:"health_path"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/medledger")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideWithEnv(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.idle_timeout", 120)

	// Fabric defaults
	viper.SetDefault("fabric.msp_id", "Org1MSP")
	viper.SetDefault("fabric.peer_endpoint", "localhost:7051")
	viper.SetDefault("fabric.gateway_peer", "peer0.org1.example.com")
	viper.SetDefault("fabric.channel_name", "healthchannel")
	viper.SetDefault("fabric.chaincode_name", "ehr")

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")
	viper.SetDefault("monitoring.health_path", "/health")

	// Logging defaults
	viper.SetDefault("log_level", "info")
}

// overrideWithEnv overrides configuration with environment variables
func overrideWithEnv(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if endpoint := os.Getenv("FABRIC_PEER_ENDPOINT"); endpoint != "" {
		config.Fabric.PeerEndpoint = endpoint
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.LogLevel = logLevel
	}
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Fabric.MSPID == "" {
		return fmt.Errorf("fabric MSP ID is required")
	}

	if config.Fabric.PeerEndpoint == "" {
		return fmt.Errorf("fabric peer endpoint is required")
	}

	if config.Fabric.ChannelName == "" {
		return fmt.Errorf("fabric channel name is required")
	}

	if config.Fabric.ChaincodeName == "" {
		return fmt.Errorf("fabric chaincode name is required")
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	return nil
}
