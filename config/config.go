// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package config

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/rapidaai/meet/pkg/configs"
)

// Application config structure
type AppConfig struct {
	Name     string `mapstructure:"service_name" validate:"required"`
	Version  string `mapstructure:"version" validate:"required"`
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required"`

	// AuthSecret verifies the bearer token minted by the web front-end.
	// A missing secret is a fatal misconfiguration.
	AuthSecret string `mapstructure:"auth_secret" validate:"required"`

	// WebRTC listen/announce addressing and the UDP port range handed to
	// the media workers.
	ListenIp    string `mapstructure:"listen_ip" validate:"required"`
	AnnouncedIp string `mapstructure:"announced_ip"`
	RtcMinPort  int    `mapstructure:"rtc_min_port" validate:"required"`
	RtcMaxPort  int    `mapstructure:"rtc_max_port" validate:"required"`

	// NumWorkers overrides the default pool size of max(1, cores/2).
	NumWorkers int `mapstructure:"num_workers"`

	TurnSecret    string `mapstructure:"turn_secret"`
	TurnServerUrl string `mapstructure:"turn_server_url"`
	StunServerUrl string `mapstructure:"stun_server_url" validate:"required"`

	CorsOrigins []string `mapstructure:"cors_origins"`

	SendgridApiKey string `mapstructure:"sendgrid_api_key"`
	SmtpFromEmail  string `mapstructure:"smtp_from_email"`
	SmtpFromName   string `mapstructure:"smtp_from_name"`

	PostgresConfig configs.PostgresConfig `mapstructure:"postgres" validate:"required"`
	RedisConfig    configs.RedisConfig    `mapstructure:"redis"`
}

// reading config and intializing configs for application
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	path := os.Getenv("ENV_PATH")
	if path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	setDefault(vConfig)
	if err := vConfig.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("Reading from env varaibles.")
	}

	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	// setting all default values
	// keeping watch on https://github.com/spf13/viper/issues/188

	v.SetDefault("SERVICE_NAME", "meeting-api")
	v.SetDefault("VERSION", "0.0.1")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 9090)
	v.SetDefault("LOG_LEVEL", "debug")

	v.SetDefault("AUTH_SECRET", "")
	v.SetDefault("LISTEN_IP", "0.0.0.0")
	v.SetDefault("ANNOUNCED_IP", "")
	v.SetDefault("RTC_MIN_PORT", 40000)
	v.SetDefault("RTC_MAX_PORT", 49999)
	v.SetDefault("NUM_WORKERS", 0)

	v.SetDefault("TURN_SECRET", "")
	v.SetDefault("TURN_SERVER_URL", "")
	v.SetDefault("STUN_SERVER_URL", "stun:stun.l.google.com:19302")
	v.SetDefault("CORS_ORIGINS", []string{"*"})

	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("SMTP_FROM_EMAIL", "no-reply@rapida.ai")
	v.SetDefault("SMTP_FROM_NAME", "Rapida Meet")

	v.SetDefault("POSTGRES__HOST", "localhost")
	v.SetDefault("POSTGRES__PORT", 5432)
	v.SetDefault("POSTGRES__DB_NAME", "<>")
	v.SetDefault("POSTGRES__AUTH__USER", "<>")
	v.SetDefault("POSTGRES__AUTH__PASSWORD", "<>")
	v.SetDefault("POSTGRES__MAX_OPEN_CONNECTION", 10)
	v.SetDefault("POSTGRES__MAX_IDEAL_CONNECTION", 10)
	v.SetDefault("POSTGRES__SSL_MODE", "disable")

	v.SetDefault("REDIS__HOST", "")
	v.SetDefault("REDIS__PORT", 6379)
	v.SetDefault("REDIS__PASSWORD", "")
	v.SetDefault("REDIS__DB", 0)
}

// Getting application config from viper
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var config AppConfig
	err := v.Unmarshal(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	// valdating the app config
	validate := validator.New()
	err = validate.Struct(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &config, nil
}
