// Package device reduces raw user-agent strings to stable device labels.
// Distinct-device signals count labels, not raw strings, so a browser
// minor-version bump does not look like a new device.
package device

import (
	"strings"

	"github.com/mssola/useragent"

	strutil "custos/pkg/platform/strings"
)

// Unknown is the label for empty source agents.
const Unknown = "unknown"

// DisplayName returns the device label for a raw user-agent string.
// Unparseable agents fall back to the raw string so they still count as
// distinct devices.
func DisplayName(sourceAgent string) string {
	trimmed := strings.TrimSpace(sourceAgent)
	if trimmed == "" {
		return Unknown
	}

	ua := useragent.New(trimmed)
	name, _ := ua.Browser()
	if ua.Bot() {
		if name == "" {
			return "bot"
		}
		return name + " (bot)"
	}

	platform := ua.Platform()
	switch {
	case name != "" && platform != "":
		return name + " on " + platform
	case name != "":
		return name
	case platform != "":
		return platform
	}
	return trimmed
}

// DistinctNames counts the distinct device labels among the given raw
// user-agent strings. Empty agents are ignored.
func DistinctNames(sourceAgents []string) int {
	labels := make([]string, 0, len(sourceAgents))
	for _, agent := range sourceAgents {
		if strings.TrimSpace(agent) == "" {
			continue
		}
		labels = append(labels, DisplayName(agent))
	}
	return len(strutil.DedupeAndTrim(labels))
}
