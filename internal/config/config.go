package config

import (
	"github.com/spf13/viper"
)

// The service runs with its connection settings injected as environment
// variables (pod env in EKS, .env via the shell locally). AWS credentials and
// the queue URL are handled the same way.

type Config struct {
	DBHost                  string `mapstructure:"DB_HOST"`
	DBPort                  string `mapstructure:"DB_PORT"`
	DBUser                  string `mapstructure:"DB_USER"`
	DBPassword              string `mapstructure:"DB_PASSWORD"`
	DBName                  string `mapstructure:"DB_NAME"`
	ServerPort              string `mapstructure:"SERVER_PORT"`
	AWSRegion               string `mapstructure:"AWS_REGION"`
	DispatchSQSQueueURL     string `mapstructure:"DISPATCH_SQS_QUEUE_URL"`
	AWSEndpoint             string `mapstructure:"AWS_ENDPOINT"`
	DeviceBridgeURL         string `mapstructure:"DEVICE_BRIDGE_URL"`
	DeviceAckTimeoutSeconds int    `mapstructure:"DEVICE_ACK_TIMEOUT_SECONDS"`
	IsLocalDev              bool   `mapstructure:"IS_LOCAL_DEV"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (config Config, err error) {
	viper.SetDefault("DB_HOST", "db")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "devicesync_db")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("AWS_REGION", "us-east-1") // Default region for AWS services
	viper.SetDefault("DISPATCH_SQS_QUEUE_URL", "http://localstack:4566/000000000000/device-dispatch-queue")
	viper.SetDefault("AWS_ENDPOINT", "http://localstack:4566")
	viper.SetDefault("DEVICE_BRIDGE_URL", "http://localhost:8081")
	viper.SetDefault("DEVICE_ACK_TIMEOUT_SECONDS", 15)
	viper.SetDefault("IS_LOCAL_DEV", false)

	// Read in environment variables that match the keys.
	viper.AutomaticEnv()

	err = viper.Unmarshal(&config)
	return
}
