package tts

import (
	"strings"

	"github.com/sahilm/fuzzy"
	"golang.org/x/text/language"
)

// ResolveVoice picks the voice best matching query. It tries an exact ID or
// name match, then a language tag match, then a fuzzy name match.
func ResolveVoice(voices []Voice, query string) (Voice, error) {
	query = strings.TrimSpace(query)
	if query == "" || len(voices) == 0 {
		return Voice{}, ErrVoiceNotFound
	}

	for _, v := range voices {
		if strings.EqualFold(v.ID, query) || strings.EqualFold(v.Name, query) {
			return v, nil
		}
	}

	if v, ok := matchLanguage(voices, query); ok {
		return v, nil
	}

	if matches := fuzzy.FindFrom(query, voiceNames(voices)); len(matches) > 0 {
		return voices[matches[0].Index], nil
	}

	return Voice{}, ErrVoiceNotFound
}

// FilterVoices returns the voices whose name or ID fuzzily matches query,
// best match first. An empty query returns every voice.
func FilterVoices(voices []Voice, query string) []Voice {
	if strings.TrimSpace(query) == "" {
		return voices
	}
	matches := fuzzy.FindFrom(query, voiceNames(voices))
	out := make([]Voice, 0, len(matches))
	for _, m := range matches {
		out = append(out, voices[m.Index])
	}
	return out
}

// matchLanguage treats query as a BCP 47 tag and returns the voice whose
// language matches it with high confidence.
func matchLanguage(voices []Voice, query string) (Voice, bool) {
	want, err := language.Parse(query)
	if err != nil {
		return Voice{}, false
	}

	var tags []language.Tag
	var idx []int
	for i, v := range voices {
		tag, err := language.Parse(v.Language)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		idx = append(idx, i)
	}
	if len(tags) == 0 {
		return Voice{}, false
	}

	_, i, conf := language.NewMatcher(tags).Match(want)
	if conf < language.High {
		return Voice{}, false
	}
	return voices[idx[i]], true
}

// voiceNames adapts a voice list to fuzzy.Source.
type voiceNames []Voice

func (v voiceNames) String(i int) string { return v[i].Name + " " + v[i].ID }
func (v voiceNames) Len() int            { return len(v) }
