package flagx

import (
	"errors"
	"flag"
	"net/url"
)

// URL wraps a parsed, validated origin URL for use as a flag.Value.
type URL struct {
	URL *url.URL
}

var _ flag.Value = (*URL)(nil)

func (u URL) String() string {
	if u.URL == nil {
		return ""
	}
	return u.URL.String()
}

var ErrEmptyURL = errors.New("empty url not allowed")

func (u *URL) Set(value string) error {
	if value == "" {
		return ErrEmptyURL
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("url must use http or https scheme")
	}
	if parsed.Host == "" {
		return errors.New("url must include a host")
	}
	u.URL = parsed
	return nil
}
