package catalog

import (
	"sort"
	"strings"
)

// essentialMap is the only static configuration for batch resolution: the
// user-facing names and aliases on the left, the catalog essential names on
// the right. Everything else about a batch comes from the catalog API at
// runtime.
var essentialMap = map[string]string{
	"6G":                "6G-FR2052a-E2E",
	"FR2052A":           "6G-FR2052a-E2E",
	"PBSYNTHETICS":      "PBSynthetics",
	"SNU":               "SNU",
	"SNU STRATEGIC":     "SNU-Strategic",
	"SNU REG STRATEGIC": "SNU-REG-STRATEGIC",
	"COLLATERAL":        "TB-Collateral",
	"DERIVATIVES":       "TB-Derivatives",
	"DERIV":             "TB-Derivatives",
	"SECURITIES":        "TB-Securities",
	"SECFIN":            "TB-SecFIn",
	"CFG":               "TB-CFG",
	"SMAA":              "TB-SMAA",
	"UPC":               "UPC",
}

// ResolveEssentialName maps a user-facing batch name to its catalog
// essential name. Lookup is case-insensitive: exact alias first, then a
// substring check against both aliases and essential names. Returns "" when
// nothing matches.
func ResolveEssentialName(userInput string) string {
	normalized := strings.ToUpper(strings.TrimSpace(userInput))
	if normalized == "" {
		return ""
	}

	if name, ok := essentialMap[normalized]; ok {
		return name
	}

	// Fuzzy pass in a stable order so alias collisions resolve the same way
	// every time.
	for _, key := range sortedAliases() {
		value := essentialMap[key]
		if strings.Contains(key, normalized) || strings.Contains(strings.ToUpper(value), normalized) {
			return value
		}
	}
	return ""
}

// KnownAliases lists the accepted user-facing names, sorted.
func KnownAliases() []string {
	return sortedAliases()
}

// essentialNames returns the distinct catalog names, sorted.
func essentialNames() []string {
	seen := map[string]bool{}
	var names []string
	for _, v := range essentialMap {
		if !seen[v] {
			seen[v] = true
			names = append(names, v)
		}
	}
	sort.Strings(names)
	return names
}

func sortedAliases() []string {
	keys := make([]string, 0, len(essentialMap))
	for k := range essentialMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
