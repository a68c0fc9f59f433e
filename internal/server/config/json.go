package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/teamflow/internal/flagx"
	"github.com/dmitrijs2005/teamflow/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept both
// "5m" strings and integer nanoseconds. Pointer fields distinguish "absent"
// from zero values so a partial file only overrides what it names.
type JsonConfig struct {
	EndpointAddrGRPC            *string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP            *string         `json:"endpoint_addr_http"`
	DatabaseDSN                 *string         `json:"database_dsn"`
	SecretKey                   *string         `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	LogLevel                    *string         `json:"log_level"`
	LogFormat                   *string         `json:"log_format"`
	TimeZone                    *string         `json:"time_zone"`
	StatsCacheTTL               *timex.Duration `json:"stats_cache_ttl"`
	RedisAddr                   *string         `json:"redis_addr"`
	ElapsedTolerance            *timex.Duration `json:"elapsed_tolerance"`
	LogActivityUpdates          *bool           `json:"log_activity_updates"`
	AutoOvertime                *bool           `json:"auto_overtime"`
	RegularHoursLimit           *float64        `json:"regular_hours_limit"`
	OvertimeMultiplier          *float64        `json:"overtime_multiplier"`
	TaxRatePercent              *float64        `json:"tax_rate"`
	AutoCleanupEntries          *bool           `json:"auto_cleanup_entries"`
	CleanupDays                 *int            `json:"cleanup_days"`
	RetentionCron               *string         `json:"retention_cron"`
	S3RootUser                  *string         `json:"s3_root_user"`
	S3RootPassword              *string         `json:"s3_root_password"`
	S3Bucket                    *string         `json:"s3_bucket"`
	S3Region                    *string         `json:"s3_region"`
	S3BaseEndpoint              *string         `json:"s3_base_endpoint"`
}

// parseJson loads the file named by -c / -config into config. Nothing
// happens when neither flag is given; unreadable or invalid files panic.
func parseJson(config *Config) {
	path := flagx.ConfigFilePath(os.Args[1:])
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

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.TimeZone, c.TimeZone)
	if c.StatsCacheTTL != nil {
		config.StatsCacheTTL = c.StatsCacheTTL.Duration
	}
	setString(&config.RedisAddr, c.RedisAddr)
	if c.ElapsedTolerance != nil {
		config.ElapsedTolerance = c.ElapsedTolerance.Duration
	}
	if c.LogActivityUpdates != nil {
		config.LogActivityUpdates = *c.LogActivityUpdates
	}
	if c.AutoOvertime != nil {
		config.AutoOvertime = *c.AutoOvertime
	}
	if c.RegularHoursLimit != nil {
		config.RegularHoursLimit = *c.RegularHoursLimit
	}
	if c.OvertimeMultiplier != nil {
		config.OvertimeMultiplier = *c.OvertimeMultiplier
	}
	if c.TaxRatePercent != nil {
		config.TaxRatePercent = *c.TaxRatePercent
	}
	if c.AutoCleanupEntries != nil {
		config.AutoCleanupEntries = *c.AutoCleanupEntries
	}
	if c.CleanupDays != nil {
		config.CleanupDays = *c.CleanupDays
	}
	setString(&config.RetentionCron, c.RetentionCron)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
