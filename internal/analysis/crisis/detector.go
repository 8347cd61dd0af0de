package crisis

import "strings"

// Level grades how urgently a message should be escalated.
type Level string

const (
	Low      Level = "low"
	Medium   Level = "medium"
	High     Level = "high"
	Critical Level = "critical"
)

// Category groups related warning phrases.
type Category string

const (
	Suicidal     Category = "suicidal"
	SelfHarm     Category = "self_harm"
	Hopelessness Category = "hopelessness"
	Depression   Category = "depression"
)

// Assessment is the result of scanning a user message for warning phrases.
type Assessment struct {
	Found      bool       `json:"found"`
	Matches    []string   `json:"matches,omitempty"`
	Categories []Category `json:"categories,omitempty"`
	Level      Level      `json:"level"`
}

var keywordBuckets = []struct {
	category Category
	keywords []string
}{
	{Suicidal, []string{
		"suicide", "suicidal", "kill myself", "end my life", "want to die", "better off dead",
		"no reason to live", "take my life", "end it all", "not worth living",
	}},
	{SelfHarm, []string{
		"self harm", "cut myself", "hurt myself", "harm myself", "self-harm",
	}},
	{Hopelessness, []string{
		"hopeless", "no hope", "give up", "can't go on", "nothing matters", "no point",
		"meaningless", "worthless", "burden", "everyone would be better without me",
	}},
	{Depression, []string{
		"nobody cares", "alone forever", "can't take it anymore", "done with life",
		"tired of living", "wish i wasn't here", "disappear", "end the pain",
	}},
}

// Detect scans message case-insensitively. Matches are reported in bucket
// order, each keyword at most once.
func Detect(message string) Assessment {
	normalized := strings.ToLower(strings.TrimSpace(message))
	if normalized == "" {
		return Assessment{Level: Low}
	}
	// Curly apostrophes from mobile keyboards.
	normalized = strings.ReplaceAll(normalized, "’", "'")

	var matches []string
	var categories []Category
	for _, bucket := range keywordBuckets {
		hit := false
		for _, word := range bucket.keywords {
			if strings.Contains(normalized, word) {
				matches = append(matches, word)
				hit = true
			}
		}
		if hit {
			categories = append(categories, bucket.category)
		}
	}

	return Assessment{
		Found:      len(matches) > 0,
		Matches:    matches,
		Categories: categories,
		Level:      LevelFor(len(matches)),
	}
}

// LevelFor maps a match count to a Level.
func LevelFor(count int) Level {
	switch {
	case count >= 3:
		return Critical
	case count == 2:
		return High
	case count == 1:
		return Medium
	default:
		return Low
	}
}
