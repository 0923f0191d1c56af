package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/threads/internal/flagx"
	"github.com/dmitrijs2005/threads/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations accept "360h" style
// strings as well as nanoseconds.
type JsonConfig struct {
	EndpointAddrHTTP  string         `json:"endpoint_addr_http"`
	DatabaseDSN       string         `json:"database_dsn"`
	SecretKey         string         `json:"secret_key"`
	SessionTTL        timex.Duration `json:"session_ttl"`
	CookieSecure      *bool          `json:"cookie_secure"`
	BodyLimit         int64          `json:"body_limit"`
	S3RootUser        string         `json:"s3_root_user"`
	S3RootPassword    string         `json:"s3_root_password"`
	S3Bucket          string         `json:"s3_bucket"`
	S3Region          string         `json:"s3_region"`
	S3BaseEndpoint    string         `json:"s3_base_endpoint"`
	S3PublicURL       string         `json:"s3_public_url"`
	KeepAliveURL      string         `json:"keepalive_url"`
	KeepAliveSchedule string         `json:"keepalive_schedule"`
}

// parseJson loads the file named by -c/-config, if any, and copies every
// field it sets onto config. A file that cannot be read or parsed panics.
func parseJson(config *Config) {
	path := flagx.ConfigFileFlag()
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

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.SessionTTL.Duration > 0 {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}
	if c.BodyLimit > 0 {
		config.BodyLimit = c.BodyLimit
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3PublicURL, c.S3PublicURL)
	setString(&config.KeepAliveURL, c.KeepAliveURL)
	setString(&config.KeepAliveSchedule, c.KeepAliveSchedule)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
