package logging

import (
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

// Attribute names whose values are never logged.
var secretFields = []string{
	"password", "secret", "token", "credential", "credentials",
	"authorization", "auth", "bearer", "cookie", "session",
	"apiKey", "apikey", "api_key", "APIKey", "x-goog-api-key", "gemini_api_key",
	"accessToken", "access_token", "refreshToken", "refresh_token",
	"privateKey", "private_key", "secretKey", "secret_key",
	"dsn",
}

var secretPrefixes = []string{"secret", "private"}

// Value shapes redacted wherever they appear.
var secretValues = []*regexp.Regexp{
	// JWT
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	// Authorization header values
	regexp.MustCompile(`(?i)^(bearer|basic)\s+.+$`),
	// Google API keys, as used by Gemini
	regexp.MustCompile(`^AIza[0-9A-Za-z_-]{35}$`),
	// Inline illustrations are megabytes of base64; never worth a log line
	regexp.MustCompile(`^data:image/[a-z0-9.+-]+;base64,`),
}

// DefaultRedactOptions returns the masq options applied to every logger.
func DefaultRedactOptions() []masq.Option {
	opts := make([]masq.Option, 0, len(secretFields)+len(secretPrefixes)+len(secretValues))

	for _, name := range secretFields {
		opts = append(opts, masq.WithFieldName(name))
	}

	for _, prefix := range secretPrefixes {
		opts = append(opts, masq.WithFieldPrefix(prefix))
	}

	for _, re := range secretValues {
		opts = append(opts, masq.WithRegex(re))
	}

	return opts
}

// NewReplaceAttr returns a slog ReplaceAttr func that redacts secrets.
func NewReplaceAttr(opts ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(append(DefaultRedactOptions(), opts...)...)
}
