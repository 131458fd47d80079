package config

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/datahub/internal/flagx"
	"github.com/dmitrijs2005/datahub/internal/timex"
	"github.com/pelletier/go-toml/v2"
)

// TomlConfig mirrors the sections of the secrets file. It is an intermediate
// DTO; only non-zero values are copied into Config so that a partial file
// keeps the defaults for everything it does not mention.
//
//	[app]
//	document_key = "..."
//	cookie_sign_key = "..."
//	users_object_key = "users.yaml.enc"
//
//	[login]
//	window = "15m"
type TomlConfig struct {
	Server struct {
		Addr string `toml:"addr"`
	} `toml:"server"`

	Log struct {
		Level   string `toml:"level"`
		Backend string `toml:"backend"`
	} `toml:"log"`

	App struct {
		DocumentKey        string `toml:"document_key"`
		CookieSignKey      string `toml:"cookie_sign_key"`
		SessionSecret      string `toml:"session_secret"`
		UsersObjectKey     string `toml:"users_object_key"`
		LogConfigObjectKey string `toml:"log_config_object_key"`
		ReportTimezone     string `toml:"report_timezone"`
	} `toml:"app"`

	Session struct {
		IdleTimeout timex.Duration `toml:"idle_timeout"`
		RememberFor timex.Duration `toml:"remember_for"`
		Secure      bool           `toml:"secure_cookies"`
	} `toml:"session"`

	Login struct {
		MaxAttempts int            `toml:"max_attempts"`
		Window      timex.Duration `toml:"window"`
	} `toml:"login"`

	Recaptcha struct {
		SiteKey   string         `toml:"site_key"`
		SecretKey string         `toml:"secret_key"`
		VerifyURL string         `toml:"verify_url"`
		Timeout   timex.Duration `toml:"timeout"`
	} `toml:"recaptcha"`

	Storage struct {
		Backend string `toml:"backend"`
		Dir     string `toml:"dir"`
	} `toml:"storage"`

	S3 struct {
		RootUser     string `toml:"root_user"`
		RootPassword string `toml:"root_password"`
		Bucket       string `toml:"bucket"`
		Region       string `toml:"region"`
		BaseEndpoint string `toml:"base_endpoint"`
	} `toml:"s3"`

	Postgres struct {
		DSN string `toml:"dsn"`
	} `toml:"postgres"`

	Admin struct {
		Email    string `toml:"email"`
		Password string `toml:"password"`
		Name     string `toml:"name"`
		Role     string `toml:"role"`
	} `toml:"admin"`
}

// parseToml loads the TOML file named by -c/-config (or $DATAHUB_CONFIG)
// into config. Nothing happens when no file is named; an unreadable or
// invalid file panics, as it is a startup misconfiguration.
func parseToml(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}
	if err := loadTomlFile(config, path); err != nil {
		panic(err)
	}
}

func loadTomlFile(config *Config, path string) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &TomlConfig{}
	if err := toml.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	c.apply(config)
	return nil
}

func (c *TomlConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.Server.Addr)
	setString(&config.LogLevel, c.Log.Level)
	setString(&config.LogBackend, c.Log.Backend)

	setString(&config.DocumentKey, c.App.DocumentKey)
	setString(&config.CookieSignKey, c.App.CookieSignKey)
	setString(&config.SessionSecret, c.App.SessionSecret)
	setString(&config.UsersObjectKey, c.App.UsersObjectKey)
	setString(&config.LogConfigObjectKey, c.App.LogConfigObjectKey)
	setString(&config.ReportTimezone, c.App.ReportTimezone)

	if c.Session.IdleTimeout.Duration > 0 {
		config.SessionIdleTimeout = c.Session.IdleTimeout.Duration
	}
	if c.Session.RememberFor.Duration > 0 {
		config.RememberDuration = c.Session.RememberFor.Duration
	}
	if c.Session.Secure {
		config.SecureCookies = true
	}

	if c.Login.MaxAttempts > 0 {
		config.LoginMaxAttempts = c.Login.MaxAttempts
	}
	if c.Login.Window.Duration > 0 {
		config.LoginWindow = c.Login.Window.Duration
	}

	setString(&config.RecaptchaSiteKey, c.Recaptcha.SiteKey)
	setString(&config.RecaptchaSecret, c.Recaptcha.SecretKey)
	setString(&config.RecaptchaVerifyURL, c.Recaptcha.VerifyURL)
	if c.Recaptcha.Timeout.Duration > 0 {
		config.RecaptchaTimeout = c.Recaptcha.Timeout.Duration
	}

	setString(&config.StorageBackend, c.Storage.Backend)
	setString(&config.FileStorageDir, c.Storage.Dir)

	setString(&config.S3RootUser, c.S3.RootUser)
	setString(&config.S3RootPassword, c.S3.RootPassword)
	setString(&config.S3Bucket, c.S3.Bucket)
	setString(&config.S3Region, c.S3.Region)
	setString(&config.S3BaseEndpoint, c.S3.BaseEndpoint)

	setString(&config.DatabaseDSN, c.Postgres.DSN)

	setString(&config.Admin.Email, c.Admin.Email)
	setString(&config.Admin.Password, c.Admin.Password)
	setString(&config.Admin.Name, c.Admin.Name)
	setString(&config.Admin.Role, c.Admin.Role)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
