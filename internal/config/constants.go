package config

import "time"

// Lua schema field names and globals
const (
	luaGlobalPlaylistify = "playlistify"

	luaFieldDependencies = "dependencies"
	luaFieldNetwork      = "network"
	luaFieldRetry        = "retry"
	luaFieldVerify       = "verify"

	luaFieldURL          = "url"
	luaFieldFilename     = "filename"
	luaFieldExecutable   = "executable"
	luaFieldChecksumURL  = "checksum_url"
	luaFieldSignatureURL = "signature_url"
	luaFieldVersionArgs  = "version_args"

	luaFieldDownloadTimeout = "download_timeout"
	luaFieldMetadataTimeout = "metadata_timeout"
	luaFieldProbeTimeout    = "probe_timeout"
	luaFieldMaxRedirects    = "max_redirects"

	luaFieldMaxRetries  = "max_retries"
	luaFieldBaseDelayMS = "base_delay_ms"
	luaFieldMaxJitterMS = "max_jitter_ms"

	luaFieldKeyring = "keyring"
)

// Limits applied by Settings.Validate.
const (
	MaxSettingsFileSize = 1 << 20
	MaxTimeout          = time.Hour
	MaxRedirectLimit    = 20
	MaxRetryLimit       = 10
	MaxRetryDelay       = time.Minute
	MaxVersionArgs      = 8

	// evalTimeout bounds evaluation of a settings file.
	evalTimeout = 2 * time.Second
)
