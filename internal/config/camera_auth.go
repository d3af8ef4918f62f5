package config

import (
	"strings"

	"github.com/caarlos0/env/v9"
)

// IndustrialAuth carries the HTTP authentication material for the
// Industrial camera driver's vendor-HTTP transport. This is adapted from
// the teacher repo's own env-struct config (internal/config/config.go):
// that repo authenticated an HTTP snapshot fetch with a cookie/token pair,
// which is exactly what an Industrial camera's vendor HTTP control-plane
// needs when its native SDK is unavailable and the driver falls back to
// polling a vendor snapshot URL.
type IndustrialAuth struct {
	Cookie string `env:"INDUSTRIAL_CAMERA_COOKIE"`
	Token  string `env:"INDUSTRIAL_CAMERA_TOKEN"`
	BaseURL string `env:"INDUSTRIAL_CAMERA_URL"`
}

// LoadIndustrialAuth reads the auth triple from the environment (populated
// by godotenv's autoload in main.go, same as the teacher).
func LoadIndustrialAuth() (IndustrialAuth, error) {
	var a IndustrialAuth
	if err := env.Parse(&a); err != nil {
		return a, err
	}
	return a, nil
}

// CookieNameValue splits a "name=value" or bare-value cookie spec, same
// convention the teacher used for its session cookie.
func (a IndustrialAuth) CookieNameValue() (name, value string) {
	if a.Cookie == "" {
		return "", ""
	}
	if strings.Contains(a.Cookie, "=") {
		parts := strings.SplitN(a.Cookie, "=", 2)
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return "SessionId", a.Cookie
}
