package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/playlistify/playlistify/internal/deps"
	"github.com/playlistify/playlistify/internal/logging"
	"github.com/playlistify/playlistify/internal/platform"
)

// Parser evaluates settings files with platform detection.
type Parser struct {
	detector platform.Detector
	log      logging.Logger
}

// NewParser creates a new settings parser. detector may be nil, in which
// case no platform table is injected.
func NewParser(detector platform.Detector, log logging.Logger) *Parser {
	return &Parser{detector: detector, log: logging.OrNop(log)}
}

// ParseFile parses the settings file at path. A missing file yields
// Defaults.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Settings, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		p.log.Debug("no settings file, using defaults", "path", path)
		return Defaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat settings file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("settings path is a directory: %s", path)
	}
	if info.Size() > MaxSettingsFileSize {
		return nil, fmt.Errorf("settings file too large (%d bytes, max %d)", info.Size(), MaxSettingsFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}

	for _, f := range DetectSensitiveData(string(data)) {
		p.log.Warn(f.Description, "path", path, "line", f.Line, "preview", f.Preview)
	}

	settings, err := p.ParseString(ctx, string(data))
	if err != nil {
		return nil, err
	}
	p.log.Debug("loaded settings", "path", path, "overrides", len(settings.Dependencies))
	return settings, nil
}

// ParseString parses settings from Lua source.
// This is useful for testing and in-memory settings.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Settings, error) {
	L := newSandboxedVM()
	defer L.Close()

	if p.detector != nil {
		platformInfo, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, platformInfo); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	evalCtx, cancel := context.WithTimeout(ctx, evalTimeout)
	defer cancel()
	L.SetContext(evalCtx)

	if err := L.DoString(luaCode); err != nil {
		msg := "Lua syntax error"
		if errors.Is(evalCtx.Err(), context.DeadlineExceeded) {
			msg = fmt.Sprintf("settings evaluation exceeded %s", evalTimeout)
		}
		return nil, &ParseError{Message: msg, Detail: err.Error()}
	}

	return extractSettings(L)
}

// ParseError represents a settings parsing error with friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// extractSettings reads the global "playlistify" table. Sections that are
// absent keep their defaults.
func extractSettings(L *lua.LState) (*Settings, error) {
	root := L.GetGlobal(luaGlobalPlaylistify)
	if root.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: "missing or invalid 'playlistify' table",
			Detail:  fmt.Sprintf("expected table, got %s", root.Type()),
		}
	}
	table := root.(*lua.LTable)

	settings := Defaults()

	if v := table.RawGetString(luaFieldDependencies); v.Type() == lua.LTTable {
		d, err := extractDependencies(v.(*lua.LTable))
		if err != nil {
			return nil, err
		}
		settings.Dependencies = d
	}

	if v := table.RawGetString(luaFieldNetwork); v.Type() == lua.LTTable {
		if err := extractNetwork(v.(*lua.LTable), &settings.Network); err != nil {
			return nil, err
		}
	}

	if v := table.RawGetString(luaFieldRetry); v.Type() == lua.LTTable {
		if err := extractRetry(v.(*lua.LTable), &settings.Retry); err != nil {
			return nil, err
		}
	}

	if v := table.RawGetString(luaFieldVerify); v.Type() == lua.LTTable {
		if err := extractVerify(v.(*lua.LTable), &settings.Verify); err != nil {
			return nil, err
		}
	}

	if err := settings.Validate(); err != nil {
		return nil, &ParseError{
			Message: "settings validation failed",
			Detail:  err.Error(),
		}
	}

	return settings, nil
}

func extractDependencies(table *lua.LTable) (map[deps.Name]DependencySettings, error) {
	out := make(map[deps.Name]DependencySettings)
	var firstErr error

	table.ForEach(func(key, value lua.LValue) {
		if firstErr != nil {
			return
		}

		name, ok := deps.ParseName(key.String())
		if !ok {
			firstErr = &ParseError{
				Message: "unknown dependency in 'dependencies'",
				Detail:  fmt.Sprintf("%q (expected ytdlp or ffmpeg)", key.String()),
			}
			return
		}

		// false entries come from platform conditionals and are skipped
		if value == lua.LFalse {
			return
		}
		dt, ok := value.(*lua.LTable)
		if !ok {
			firstErr = typeError(luaFieldDependencies+"."+name.String(), "table", value)
			return
		}

		d, err := extractDependency(name, dt)
		if err != nil {
			firstErr = err
			return
		}
		out[name] = d
	})

	return out, firstErr
}

func extractDependency(name deps.Name, table *lua.LTable) (DependencySettings, error) {
	prefix := luaFieldDependencies + "." + name.String() + "."
	var d DependencySettings

	strFields := []struct {
		field string
		dst   *string
	}{
		{luaFieldURL, &d.URL},
		{luaFieldFilename, &d.Filename},
		{luaFieldExecutable, &d.Executable},
		{luaFieldSignatureURL, &d.SignatureURL},
	}
	for _, f := range strFields {
		if err := optionalString(table, f.field, prefix, f.dst); err != nil {
			return d, err
		}
	}

	switch v := table.RawGetString(luaFieldChecksumURL); v.Type() {
	case lua.LTNil:
	case lua.LTString:
		d.ChecksumURL = v.String()
	case lua.LTBool:
		if bool(v.(lua.LBool)) {
			return d, typeError(prefix+luaFieldChecksumURL, "string or false", v)
		}
		d.DisableChecksum = true
	default:
		return d, typeError(prefix+luaFieldChecksumURL, "string or false", v)
	}

	switch v := table.RawGetString(luaFieldVersionArgs); v.Type() {
	case lua.LTNil:
	case lua.LTTable:
		n := v.(*lua.LTable).Len()
		for i := 1; i <= n; i++ {
			arg := v.(*lua.LTable).RawGetInt(i)
			if arg.Type() != lua.LTString {
				return d, typeError(fmt.Sprintf("%s%s[%d]", prefix, luaFieldVersionArgs, i), "string", arg)
			}
			d.VersionArgs = append(d.VersionArgs, arg.String())
		}
	default:
		return d, typeError(prefix+luaFieldVersionArgs, "array of strings", v)
	}

	return d, nil
}

func extractNetwork(table *lua.LTable, n *NetworkSettings) error {
	prefix := luaFieldNetwork + "."

	durations := []struct {
		field string
		dst   *time.Duration
	}{
		{luaFieldDownloadTimeout, &n.DownloadTimeout},
		{luaFieldMetadataTimeout, &n.MetadataTimeout},
		{luaFieldProbeTimeout, &n.ProbeTimeout},
	}
	for _, f := range durations {
		if err := optionalDuration(table, f.field, prefix, time.Second, f.dst); err != nil {
			return err
		}
	}

	return optionalInt(table, luaFieldMaxRedirects, prefix, &n.MaxRedirects)
}

func extractRetry(table *lua.LTable, r *RetrySettings) error {
	prefix := luaFieldRetry + "."

	if err := optionalInt(table, luaFieldMaxRetries, prefix, &r.MaxRetries); err != nil {
		return err
	}
	if err := optionalDuration(table, luaFieldBaseDelayMS, prefix, time.Millisecond, &r.BaseDelay); err != nil {
		return err
	}
	return optionalDuration(table, luaFieldMaxJitterMS, prefix, time.Millisecond, &r.MaxJitter)
}

func extractVerify(table *lua.LTable, v *VerifySettings) error {
	if err := optionalString(table, luaFieldKeyring, luaFieldVerify+".", &v.Keyring); err != nil {
		return err
	}
	if strings.HasPrefix(v.Keyring, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		v.Keyring = filepath.Join(home, v.Keyring[2:])
	}
	return nil
}

func optionalString(table *lua.LTable, field, prefix string, dst *string) error {
	switch v := table.RawGetString(field); v.Type() {
	case lua.LTNil:
		return nil
	case lua.LTString:
		*dst = v.String()
		return nil
	default:
		return typeError(prefix+field, "string", v)
	}
}

func optionalInt(table *lua.LTable, field, prefix string, dst *int) error {
	v := table.RawGetString(field)
	switch v.Type() {
	case lua.LTNil:
		return nil
	case lua.LTNumber:
		f := float64(lua.LVAsNumber(v))
		if f != float64(int(f)) {
			return typeError(prefix+field, "integer", v)
		}
		*dst = int(f)
		return nil
	default:
		return typeError(prefix+field, "integer", v)
	}
}

// optionalDuration reads a number of units (seconds or milliseconds).
// Fractional values are allowed.
func optionalDuration(table *lua.LTable, field, prefix string, unit time.Duration, dst *time.Duration) error {
	v := table.RawGetString(field)
	switch v.Type() {
	case lua.LTNil:
		return nil
	case lua.LTNumber:
		*dst = time.Duration(float64(lua.LVAsNumber(v)) * float64(unit))
		return nil
	default:
		return typeError(prefix+field, "number", v)
	}
}

func typeError(field, want string, got lua.LValue) error {
	return &ParseError{
		Message: "invalid value for '" + field + "'",
		Detail:  fmt.Sprintf("expected %s, got %s", want, got.Type()),
	}
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		if verbose {
			return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
		}
		detail := parseErr.Detail
		if idx := strings.Index(detail, "stack traceback"); idx > 0 {
			detail = strings.TrimSpace(detail[:idx])
		}
		return fmt.Sprintf("%s: %s", parseErr.Message, detail)
	}
	return err.Error()
}
