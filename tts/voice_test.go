package tts

import (
	"errors"
	"testing"
)

var testVoices = []Voice{
	{ID: "en-us-ava", Name: "Ava", Language: "en-US", Gender: "female"},
	{ID: "en-gb-oliver", Name: "Oliver", Language: "en-GB", Gender: "male"},
	{ID: "fr-fr-lea", Name: "Léa", Language: "fr-FR", Gender: "female"},
	{ID: "de-de-jonas", Name: "Jonas", Language: "de-DE", Gender: "male"},
}

// TestResolveVoice tests the lookup order of voice queries.
func TestResolveVoice(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantID  string
		wantErr bool
	}{
		{"exact id", "de-de-jonas", "de-de-jonas", false},
		{"name case insensitive", "oliver", "en-gb-oliver", false},
		{"language tag", "fr-FR", "fr-fr-lea", false},
		{"regional language", "en-GB", "en-gb-oliver", false},
		{"fuzzy name", "jns", "de-de-jonas", false},
		{"no match", "zzzz", "", true},
		{"empty", "  ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ResolveVoice(testVoices, tt.query)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveVoice(%q) error = %v, wantErr %v", tt.query, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrVoiceNotFound) {
				t.Errorf("ResolveVoice(%q) error = %v, want ErrVoiceNotFound", tt.query, err)
			}
			if v.ID != tt.wantID {
				t.Errorf("ResolveVoice(%q) = %v, want %v", tt.query, v.ID, tt.wantID)
			}
		})
	}
}

// TestResolveVoiceNoVoices tests resolving against an empty list.
func TestResolveVoiceNoVoices(t *testing.T) {
	if _, err := ResolveVoice(nil, "ava"); !errors.Is(err, ErrVoiceNotFound) {
		t.Errorf("ResolveVoice() error = %v, want ErrVoiceNotFound", err)
	}
}

// TestFilterVoices tests fuzzy filtering.
func TestFilterVoices(t *testing.T) {
	if got := FilterVoices(testVoices, ""); len(got) != len(testVoices) {
		t.Errorf("FilterVoices(\"\") returned %d voices, want %d", len(got), len(testVoices))
	}

	got := FilterVoices(testVoices, "en-gb")
	if len(got) == 0 || got[0].ID != "en-gb-oliver" {
		t.Errorf("FilterVoices(en-gb) = %v, want en-gb-oliver first", got)
	}

	if got := FilterVoices(testVoices, "qqq"); len(got) != 0 {
		t.Errorf("FilterVoices(qqq) = %v, want none", got)
	}
}
