package config

import (
	"fmt"
	"regexp"
	"strings"
)

// SensitivePattern represents a pattern that might indicate a credential
// embedded in a settings file, typically in a private mirror URL.
type SensitivePattern struct {
	Name        string
	Pattern     *regexp.Regexp
	Description string
}

var sensitivePatterns = []SensitivePattern{
	{
		Name:        "URL Credentials",
		Pattern:     regexp.MustCompile(`(?i)https?://[^/\s:@"']+:[^/\s@"']+@`),
		Description: "URL with embedded username and password",
	},
	{
		Name:        "Token Query Parameter",
		Pattern:     regexp.MustCompile(`(?i)[?&](token|access_token|api_key|apikey|key|sig|signature)=[^&\s"']{8,}`),
		Description: "URL with an access token in its query string",
	},
	{
		Name:        "GitHub Token",
		Pattern:     regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{36,}`),
		Description: "Potential GitHub token detected",
	},
}

// SensitiveDataFinding represents a detected sensitive data instance
type SensitiveDataFinding struct {
	PatternName string
	Description string
	Line        int
	Preview     string // Redacted preview of the match
}

// DetectSensitiveData scans settings content for potential credentials.
func DetectSensitiveData(content string) []SensitiveDataFinding {
	var findings []SensitiveDataFinding

	for lineNum, line := range strings.Split(content, "\n") {
		for _, pattern := range sensitivePatterns {
			if pattern.Pattern.MatchString(line) {
				findings = append(findings, SensitiveDataFinding{
					PatternName: pattern.Name,
					Description: pattern.Description,
					Line:        lineNum + 1,
					Preview:     redactSensitiveValue(line),
				})
			}
		}
	}

	return findings
}

// redactSensitiveValue keeps the key of an assignment and hides the value.
func redactSensitiveValue(line string) string {
	eqIdx := strings.Index(line, "=")
	if eqIdx == -1 {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) > 12 {
			return trimmed[:12] + "... [REDACTED]"
		}
		return "[REDACTED]"
	}

	return strings.TrimSpace(line[:eqIdx]) + " = [REDACTED]"
}

// FormatSensitiveDataWarning formats findings into a user-facing warning.
func FormatSensitiveDataWarning(findings []SensitiveDataFinding) string {
	if len(findings) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("WARNING: settings file may contain credentials\n\n")

	for i, finding := range findings {
		sb.WriteString(fmt.Sprintf("%d. %s (line %d)\n", i+1, finding.Description, finding.Line))
		sb.WriteString(fmt.Sprintf("   Preview: %s\n", finding.Preview))
	}

	sb.WriteString("\nDo not share this file. Prefer a mirror that does not need credentials in the URL.\n")
	return sb.String()
}
