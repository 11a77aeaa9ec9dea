package parser

import (
	"regexp"
	"strconv"
	"strings"

	"suumo_crawler/identity"
	"suumo_crawler/models"
)

var (
	accessSepRegex = regexp.MustCompile(`[\s/／、]+`)

	// line/station with a walk time, e.g. "JR山手線/渋谷駅 歩5分"
	accessWalkRegex = regexp.MustCompile(`^(.+?線)\s*[/／]\s*([^\s/／]+?)駅?\s*(?:徒歩|歩)\s*(\d+)\s*分`)
	// line/station without a usable walk time, e.g. "JR山手線/渋谷駅 バス10分"
	accessPlainRegex = regexp.MustCompile(`^(.+?線)\s*[/／]\s*([^\s/／]+?)駅?(?:\s|$)`)
)

// ParseAccess splits compound access text into per-line entries.
// Segments that match neither the walk-time nor the plain pattern are dropped.
func ParseAccess(text string) []models.AccessEntry {
	var entries []models.AccessEntry
	for _, seg := range splitAccess(text) {
		if e, ok := parseAccessEntry(seg); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

// splitAccess cuts the text at every separator whose following token ends in 線
func splitAccess(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	seps := accessSepRegex.FindAllStringIndex(text, -1)
	var parts []string
	start := 0
	for i, sep := range seps {
		tokenEnd := len(text)
		if i+1 < len(seps) {
			tokenEnd = seps[i+1][0]
		}
		token := text[sep[1]:tokenEnd]
		if sep[0] > start && strings.HasSuffix(token, "線") {
			parts = append(parts, strings.TrimSpace(text[start:sep[0]]))
			start = sep[1]
		}
	}
	parts = append(parts, strings.TrimSpace(text[start:]))
	return parts
}

func parseAccessEntry(seg string) (models.AccessEntry, bool) {
	if m := accessWalkRegex.FindStringSubmatch(seg); m != nil {
		minutes, err := strconv.Atoi(m[3])
		if err == nil {
			return models.AccessEntry{
				LineName:       strings.TrimSpace(m[1]),
				StationName:    m[2],
				WalkingMinutes: &minutes,
				RawText:        seg,
			}, true
		}
	}
	if m := accessPlainRegex.FindStringSubmatch(seg); m != nil {
		return models.AccessEntry{
			LineName:    strings.TrimSpace(m[1]),
			StationName: m[2],
			RawText:     seg,
		}, true
	}
	return models.AccessEntry{}, false
}

// ResolveAccess matches entries against the reference lines. A line name
// matches by substring in either direction; within matching lines an exact
// station name wins over a substring one. When no line matches, the first
// line holding a station with exactly that name is used, so same-named
// stations on unrelated lines resolve arbitrarily by reference order.
func ResolveAccess(entries []models.AccessEntry, lines []models.Line) []models.ResolvedAccess {
	var resolved []models.ResolvedAccess
	for _, e := range entries {
		lineKey := identity.NormalizeName(e.LineName)
		stationKey := identity.NormalizeName(e.StationName)
		if stationKey == "" {
			continue
		}

		var candidates []models.Line
		if lineKey != "" {
			for _, l := range lines {
				name := identity.NormalizeName(l.Name)
				if name != "" && (strings.Contains(name, lineKey) || strings.Contains(lineKey, name)) {
					candidates = append(candidates, l)
				}
			}
		}

		var (
			line    models.Line
			station models.Station
			ok      bool
		)
		if len(candidates) > 0 {
			line, station, ok = findStation(candidates, stationKey, true)
			if !ok {
				line, station, ok = findStation(candidates, stationKey, false)
			}
		} else {
			line, station, ok = findStation(lines, stationKey, true)
		}
		if !ok {
			continue
		}

		resolved = append(resolved, models.ResolvedAccess{
			Entry:       e,
			LineID:      line.ID,
			LineName:    line.Name,
			StationID:   station.ID,
			StationName: station.Name,
		})
	}
	return resolved
}

func findStation(lines []models.Line, key string, exact bool) (models.Line, models.Station, bool) {
	for _, l := range lines {
		for _, s := range l.Stations {
			name := identity.NormalizeName(s.Name)
			if name == "" {
				continue
			}
			if name == key || (!exact && (strings.Contains(name, key) || strings.Contains(key, name))) {
				return l, s, true
			}
		}
	}
	return models.Line{}, models.Station{}, false
}
