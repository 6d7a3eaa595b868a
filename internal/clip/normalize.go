package clip

import "strings"

// NormalizeTags coerces a raw tag value into a trimmed, deduplicated
// set. Backends may hand back either a list or a comma-delimited
// string; both shapes collapse to the same result, and re-normalizing
// is a no-op.
func NormalizeTags(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return cleanTags(v)
	case []any:
		tags := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				tags = append(tags, s)
			}
		}
		return cleanTags(tags)
	case string:
		return cleanTags(strings.Split(v, ","))
	default:
		return []string{}
	}
}

func cleanTags(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}

// NormalizeScreenshots drops blank and duplicate filenames while
// preserving display order.
func NormalizeScreenshots(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	shots := make([]string, 0, len(raw))
	for _, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		shots = append(shots, name)
	}
	return shots
}

// Normalize materializes a clip's tag set and screenshot sequence and
// defaults an absent section to the inbox. Normalization is mandatory
// on ingestion and idempotent: Normalize(Normalize(c)) == Normalize(c).
func Normalize(c Clip) Clip {
	c.Tags = NormalizeTags(c.Tags)
	c.Screenshots = NormalizeScreenshots(c.Screenshots)
	if strings.TrimSpace(c.SectionID) == "" {
		c.SectionID = InboxSectionID
	}
	return c
}

// NormalizeAgainst normalizes c and additionally falls back to the
// inbox when its section names none of the given sections.
func NormalizeAgainst(c Clip, sections []Section) Clip {
	c = Normalize(c)
	for _, s := range sections {
		if s.ID == c.SectionID {
			return c
		}
	}
	c.SectionID = InboxSectionID
	return c
}
