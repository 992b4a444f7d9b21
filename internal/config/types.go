package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/playlistify/playlistify/internal/deps"
	"github.com/playlistify/playlistify/internal/logging"
)

// Settings is the parsed content of playlistify.lua.
type Settings struct {
	// Dependencies overrides the built-in download table per dependency.
	Dependencies map[deps.Name]DependencySettings

	Network NetworkSettings
	Retry   RetrySettings
	Verify  VerifySettings
}

// DependencySettings overrides where one dependency is fetched from.
// Empty fields keep the built-in value.
type DependencySettings struct {
	URL          string
	Filename     string
	Executable   string
	ChecksumURL  string
	SignatureURL string
	// DisableChecksum is set by checksum_url = false.
	DisableChecksum bool
	VersionArgs     []string
}

// NetworkSettings tunes the downloader.
type NetworkSettings struct {
	DownloadTimeout time.Duration
	MetadataTimeout time.Duration
	ProbeTimeout    time.Duration
	MaxRedirects    int
}

// RetrySettings tunes download retries.
type RetrySettings struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxJitter  time.Duration
}

// VerifySettings configures artifact verification.
type VerifySettings struct {
	// Keyring is an OpenPGP public keyring used to check checksum manifest
	// signatures. Empty disables signature checks.
	Keyring string
}

// Defaults returns the settings used when no settings file exists.
func Defaults() *Settings {
	retry := deps.DefaultRetryPolicy()
	return &Settings{
		Dependencies: make(map[deps.Name]DependencySettings),
		Network: NetworkSettings{
			DownloadTimeout: deps.DefaultDownloadTimeout,
			MetadataTimeout: deps.DefaultMetadataTimeout,
			ProbeTimeout:    deps.DefaultProbeTimeout,
			MaxRedirects:    deps.DefaultMaxRedirects,
		},
		Retry: RetrySettings{
			MaxRetries: retry.MaxRetries,
			BaseDelay:  retry.BaseDelay,
			MaxJitter:  retry.MaxJitter,
		},
	}
}

// Validate performs basic validation on Settings.
func (s *Settings) Validate() error {
	for name, d := range s.Dependencies {
		if !name.Valid() {
			return &ValidationError{Field: luaFieldDependencies, Message: fmt.Sprintf("unknown dependency %q", name)}
		}
		prefix := fmt.Sprintf("%s.%s", luaFieldDependencies, name)

		for field, raw := range map[string]string{
			luaFieldURL:          d.URL,
			luaFieldChecksumURL:  d.ChecksumURL,
			luaFieldSignatureURL: d.SignatureURL,
		} {
			if raw == "" {
				continue
			}
			if err := validateURL(raw); err != nil {
				return &ValidationError{Field: prefix + "." + field, Message: err.Error()}
			}
		}

		if d.SignatureURL != "" && d.DisableChecksum {
			return &ValidationError{Field: prefix + "." + luaFieldSignatureURL, Message: "cannot be set when checksum_url = false"}
		}
		if len(d.VersionArgs) > MaxVersionArgs {
			return &ValidationError{
				Field:   prefix + "." + luaFieldVersionArgs,
				Message: fmt.Sprintf("too many arguments (%d), maximum is %d", len(d.VersionArgs), MaxVersionArgs),
			}
		}
	}

	timeouts := []struct {
		field string
		value time.Duration
	}{
		{luaFieldDownloadTimeout, s.Network.DownloadTimeout},
		{luaFieldMetadataTimeout, s.Network.MetadataTimeout},
		{luaFieldProbeTimeout, s.Network.ProbeTimeout},
	}
	for _, to := range timeouts {
		if to.value <= 0 || to.value > MaxTimeout {
			return &ValidationError{
				Field:   luaFieldNetwork + "." + to.field,
				Message: fmt.Sprintf("must be between 0 and %s (got %s)", MaxTimeout, to.value),
			}
		}
	}

	if s.Network.MaxRedirects < 1 || s.Network.MaxRedirects > MaxRedirectLimit {
		return &ValidationError{
			Field:   luaFieldNetwork + "." + luaFieldMaxRedirects,
			Message: fmt.Sprintf("must be between 1 and %d (got %d)", MaxRedirectLimit, s.Network.MaxRedirects),
		}
	}

	if s.Retry.MaxRetries < 0 || s.Retry.MaxRetries > MaxRetryLimit {
		return &ValidationError{
			Field:   luaFieldRetry + "." + luaFieldMaxRetries,
			Message: fmt.Sprintf("must be between 0 and %d (got %d)", MaxRetryLimit, s.Retry.MaxRetries),
		}
	}
	if s.Retry.BaseDelay < 0 || s.Retry.BaseDelay > MaxRetryDelay {
		return &ValidationError{Field: luaFieldRetry + "." + luaFieldBaseDelayMS, Message: fmt.Sprintf("must be between 0 and %s", MaxRetryDelay)}
	}
	if s.Retry.MaxJitter < 0 || s.Retry.MaxJitter > MaxRetryDelay {
		return &ValidationError{Field: luaFieldRetry + "." + luaFieldMaxJitterMS, Message: fmt.Sprintf("must be between 0 and %s", MaxRetryDelay)}
	}

	return nil
}

// Overrides converts the dependency settings into resolver overrides.
func (s *Settings) Overrides() map[deps.Name]deps.Override {
	out := make(map[deps.Name]deps.Override, len(s.Dependencies))
	for name, d := range s.Dependencies {
		out[name] = deps.Override{
			DownloadURL:     d.URL,
			Filename:        d.Filename,
			ExecutableName:  d.Executable,
			ChecksumURL:     d.ChecksumURL,
			SignatureURL:    d.SignatureURL,
			DisableChecksum: d.DisableChecksum,
			VersionArgs:     append([]string(nil), d.VersionArgs...),
		}
	}
	return out
}

// RetryPolicy returns the download retry policy.
func (s *Settings) RetryPolicy() deps.RetryPolicy {
	return deps.RetryPolicy{
		MaxRetries: s.Retry.MaxRetries,
		BaseDelay:  s.Retry.BaseDelay,
		MaxJitter:  s.Retry.MaxJitter,
	}
}

// DownloaderOptions returns downloader options reflecting the network
// settings.
func (s *Settings) DownloaderOptions(log logging.Logger) deps.DownloaderOptions {
	return deps.DownloaderOptions{
		Timeout:      s.Network.DownloadTimeout,
		ProbeTimeout: s.Network.ProbeTimeout,
		MaxRedirects: s.Network.MaxRedirects,
		Logger:       log,
	}
}

// ValidationError represents a settings validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "settings validation failed for " + e.Field + ": " + e.Message
	}
	return "settings validation failed: " + e.Message
}

// validateURL accepts absolute http(s) URLs only.
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("URL must use https:// or http:// scheme (got: %q)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host: %s", raw)
	}
	return nil
}
