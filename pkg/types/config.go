package types

import (
	"errors"
	"net/url"
	"time"
)

// Config holds the console settings shared by the transport and the CLI.
type Config struct {
	BaseURL    string        `json:"base_url" yaml:"base_url"`
	DataDir    string        `json:"data_dir" yaml:"data_dir"`
	Actor      Actor         `json:"actor" yaml:"actor"`
	PageSize   int           `json:"page_size" yaml:"page_size"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`
	RetryCount int           `json:"retry_count" yaml:"retry_count"`
}

// Defaults applied by the CLI when the config leaves a value unset.
const (
	DefaultBaseURL  = "http://localhost:3001/api/v1"
	DefaultPageSize = 10
	DefaultTimeout  = 30 * time.Second
)

// PageSizes are the page sizes offered by the list view.
var PageSizes = []int{5, 10, 20, 50}

// Config validation errors.
var (
	ErrBaseURLEmpty    = errors.New("base_url must not be empty")
	ErrBaseURLInvalid  = errors.New("base_url must be an absolute http(s) URL")
	ErrPageSizeInvalid = errors.New("page_size must be positive")
	ErrRetryInvalid    = errors.New("retry_count must not be negative")
	ErrTimeoutInvalid  = errors.New("timeout must not be negative")
)

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return ErrBaseURLEmpty
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrBaseURLInvalid
	}
	if c.Actor != "" && !c.Actor.Valid() {
		return ErrUnknownActor
	}
	if c.PageSize <= 0 {
		return ErrPageSizeInvalid
	}
	if c.RetryCount < 0 {
		return ErrRetryInvalid
	}
	if c.Timeout < 0 {
		return ErrTimeoutInvalid
	}
	return nil
}
