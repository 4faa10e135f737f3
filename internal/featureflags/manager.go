// Package featureflags evaluates rollout flags for auth variants.
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// Flags understood by the app.
const (
	// StrongPasswords selects the hardened credential policy.
	StrongPasswords = "strong_passwords"
	// SimulatedLatency makes login and sign-up resolve after a delay.
	SimulatedLatency = "simulated_latency"
)

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "strong_passwords=on,simulated_latency=25%"
type Manager struct {
	flags map[string]string
}

// NewManager creates a feature-flag manager from a comma-separated config string.
func NewManager(raw string) *Manager {
	out := make(map[string]string)

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := normalize(parts[0])
		value := normalize(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out}
}

// Enabled returns whether a flag is enabled for a given username.
// Supported values:
// - on/true/1
// - off/false/0
// - N% (deterministic rollout by username, e.g. 25%)
func (m *Manager) Enabled(name, username string) bool {
	if m == nil {
		return false
	}

	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	if strings.HasSuffix(value, "%") {
		pct, err := strconv.Atoi(strings.TrimSuffix(value, "%"))
		if err != nil || pct <= 0 {
			return false
		}
		if pct >= 100 {
			return true
		}
		if username == "" {
			return false
		}
		return rolloutBucket(name, username) < pct
	}

	return false
}

// Raw returns a copy of configured flags.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// Snapshot returns evaluated flag status for one user.
func (m *Manager) Snapshot(username string) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, username)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name, username string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + strings.ToLower(username)))
	return int(h.Sum32() % 100)
}
