package agents

// DefaultCollectorConfig returns the baseline collector configuration pushed
// to every agent. Per-agent overlays are merged on top of this.
func DefaultCollectorConfig() map[string]interface{} {
	return map[string]interface{}{
		"log_sources": map[string]interface{}{
			"syslog":   true,
			"journald": true,
			"nginx":    true,
			"apache":   true,
		},
		"metric_collection": map[string]interface{}{
			"cpu":       true,
			"memory":    true,
			"disk":      true,
			"network":   true,
			"load":      true,
			"processes": true,
		},
	}
}

// MergeConfig deep-merges overlay into base, key by key. Overlay values win;
// when both sides hold a map the merge recurses instead of replacing the
// whole subtree. Neither input is mutated.
func MergeConfig(base, overlay map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(base))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overlay {
		baseMap, baseOk := merged[k].(map[string]interface{})
		overlayMap, overlayOk := v.(map[string]interface{})
		if baseOk && overlayOk {
			merged[k] = MergeConfig(baseMap, overlayMap)
			continue
		}
		merged[k] = v
	}
	return merged
}
