package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/flagx"
	"github.com/dmitrijs2005/gatekeeper/internal/timex"
)

// JsonConfig mirrors Config for file input. Durations accept "15m" style
// strings. Absent fields keep the current value.
type JsonConfig struct {
	EndpointAddrGRPC             string          `json:"endpoint_addr_grpc"`
	DatabaseDSN                  string          `json:"database_dsn"`
	SecretKey                    string          `json:"secret_key"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	OtpValidityDuration          *timex.Duration `json:"otp_validity_duration"`
	OtpMaxAttempts               *int            `json:"otp_max_attempts"`
	OtpLength                    *int            `json:"otp_length"`
	RedisAddr                    *string         `json:"redis_addr"`
	NotificationQueue            string          `json:"notification_queue"`
	NotificationTimeout          *timex.Duration `json:"notification_timeout"`
	AdminBootstrap               *bool           `json:"admin_bootstrap"`
	AdminUsername                string          `json:"admin_username"`
	AdminEmail                   string          `json:"admin_email"`
	AdminPassword                string          `json:"admin_password"`
	AdminFirstName               string          `json:"admin_first_name"`
	AdminLastName                string          `json:"admin_last_name"`
	LogLevel                     string          `json:"log_level"`
	LogFormat                    string          `json:"log_format"`
}

// parseJson overlays the JSON file named by -c/-config onto config.
// Nothing happens when neither flag is given; an unreadable or malformed
// file panics.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.OtpValidityDuration, c.OtpValidityDuration)
	if c.OtpMaxAttempts != nil {
		config.OtpMaxAttempts = *c.OtpMaxAttempts
	}
	if c.OtpLength != nil {
		config.OtpLength = *c.OtpLength
	}
	if c.RedisAddr != nil {
		config.RedisAddr = *c.RedisAddr
	}
	setString(&config.NotificationQueue, c.NotificationQueue)
	setDuration(&config.NotificationTimeout, c.NotificationTimeout)
	if c.AdminBootstrap != nil {
		config.AdminBootstrap = *c.AdminBootstrap
	}
	setString(&config.AdminUsername, c.AdminUsername)
	setString(&config.AdminEmail, c.AdminEmail)
	setString(&config.AdminPassword, c.AdminPassword)
	setString(&config.AdminFirstName, c.AdminFirstName)
	setString(&config.AdminLastName, c.AdminLastName)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
