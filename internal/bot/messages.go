package bot

import (
	"fmt"
	"sort"
	"time"
)

func formatMessage(title, content string) string {
	return "[" + title + "]\n" + content
}

// formatTimeLeft renders the time until expiry, or "Expired".
func formatTimeLeft(expires time.Time) string {
	left := time.Until(expires)
	if left <= 0 {
		return "Expired"
	}
	if left >= 24*time.Hour {
		days := int(left.Hours()) / 24
		hours := int(left.Hours()) % 24
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	if left >= time.Hour {
		return fmt.Sprintf("%dh %dm", int(left.Hours()), int(left.Minutes())%60)
	}
	return fmt.Sprintf("%dm", int(left.Minutes()))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
