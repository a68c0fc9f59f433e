package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/teamflow/internal/flagx"
)

// parseFlags overlays selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-l string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-r string   Redis address for the stats cache
//	-z string   time zone for period boundaries (IANA name)
//	-x float    tax rate, percent
//	-b string   S3 archive bucket
//	-g string   S3 region
//	-e string   S3 base endpoint
//
// Only these flags are extracted from os.Args (flagx.FilterArgs), so the
// binary can share its command line with other parsers. Malformed values
// panic.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-l", "-d", "-s", "-t", "-r", "-z", "-x", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run gRPC server")
	fs.StringVar(&config.EndpointAddrHTTP, "l", config.EndpointAddrHTTP, "address and port to run HTTP server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address for stats cache")
	fs.StringVar(&config.TimeZone, "z", config.TimeZone, "time zone for period boundaries")
	fs.Float64Var(&config.TaxRatePercent, "x", config.TaxRatePercent, "tax rate, percent")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 archive bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
}
