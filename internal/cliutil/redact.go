package cliutil

import (
	"regexp"
	"sort"
	"strings"
)

const redacted = "[redacted]"

// secretKeyMarkers flag an environment variable as secret when its name
// contains one of them.
var secretKeyMarkers = []string{"SECRET", "TOKEN", "PASSWORD", "PASSWD", "API_KEY", "ACCESS_KEY", "PRIVATE_KEY", "CREDENTIAL"}

var (
	// ${VAR} references that survived expansion may name secrets.
	templateRef = regexp.MustCompile(`\$\{[^}]+\}`)
	// NAME=value or NAME: value pairs with a secret-looking NAME inside free
	// text such as daemon error messages.
	assignment = regexp.MustCompile(`(?i)\b(\w*(?:` + strings.Join(secretKeyMarkers, "|") + `)\w*)(\s*[:=]\s*)(["']?)([^"'\s]+)(["']?)`)
)

// IsSecretKey reports whether an environment variable name looks like it
// holds a credential.
func IsSecretKey(key string) bool {
	upper := strings.ToUpper(key)
	for _, marker := range secretKeyMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

// RedactSecrets masks ${VAR} references and the values of secret-looking
// assignments in message.
func RedactSecrets(message string) string {
	if message == "" {
		return message
	}
	message = templateRef.ReplaceAllLiteralString(message, "${"+redacted+"}")
	return assignment.ReplaceAllString(message, "$1$2$3"+redacted+"$5")
}

// RedactEnv renders env as sorted KEY=value pairs with secret values masked.
func RedactEnv(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		value := env[key]
		if IsSecretKey(key) {
			value = redacted
		}
		out = append(out, RedactSecrets(key+"="+value))
	}
	return out
}
