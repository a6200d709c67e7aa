package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/flagx"
)

// parseFlags overlays the short command-line flags:
//
//	-a string   gRPC bind address
//	-d string   database DSN ("memory" for the in-process store)
//	-s string   base64 signing key
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-o int      one-time code validity, minutes
//	-m int      one-time code attempt ceiling
//	-q string   Redis address for the notification queue
//	-l string   log level
//
// Other arguments are filtered out first, so flags owned by other
// components do not make parsing fail.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-t", "-r", "-o", "-m", "-q", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "base64 signing key")

	accessTTL := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTTL := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")
	otpTTL := fs.Int("o", int(config.OtpValidityDuration.Minutes()), "one-time code validity (in minutes)")

	fs.IntVar(&config.OtpMaxAttempts, "m", config.OtpMaxAttempts, "one-time code attempt ceiling")
	fs.StringVar(&config.RedisAddr, "q", config.RedisAddr, "redis address for notifications")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Minute flags only override when given; otherwise sub-minute values from
	// JSON or env would be truncated.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTTL) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshTTL) * time.Minute
		case "o":
			config.OtpValidityDuration = time.Duration(*otpTTL) * time.Minute
		}
	})
}
