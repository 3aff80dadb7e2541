package logging

import (
	"log/slog"

	"github.com/m-mizutani/masq"
)

// SecretTag is the masq tag value marking payload fields to redact:
//
//	type Session struct {
//		User  string
//		Token string `masq:"secret"`
//	}
const SecretTag = "secret"

// SensitiveFields are redacted by name wherever they appear.
var SensitiveFields = []string{"password", "secret", "token", "api_key"}

func newRedactAttr() func([]string, slog.Attr) slog.Attr {
	opts := make([]masq.Option, 0, len(SensitiveFields)+2)
	opts = append(opts, masq.WithTag(SecretTag))
	for _, name := range SensitiveFields {
		opts = append(opts, masq.WithFieldName(name))
	}
	opts = append(opts, masq.WithFieldPrefix("secret_"))
	return masq.New(opts...)
}
