// Package mailparse extracts lead records from marketplace notification
// emails using per-source regex profiles.
package mailparse

import (
	_ "embed"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var defaultProfiles []byte

// Profile describes how one marketplace formats its lead emails.
type Profile struct {
	Source string `yaml:"source"`
	// Search is the IMAP search criteria used to find candidate messages.
	Search string `yaml:"search"`
	// Markers, when set, must appear in the body for it to count as a lead.
	Markers []string `yaml:"markers"`
	// PhoneFallback takes the first run of ten digits when no phone label matched.
	PhoneFallback bool `yaml:"phone_fallback"`
	// SplitPipes cuts non-phone values at the first "|", for single-line layouts.
	SplitPipes bool        `yaml:"split_pipes"`
	Fields     []FieldSpec `yaml:"fields"`
}

// FieldSpec is one labelled value.
type FieldSpec struct {
	Key     string `yaml:"key"`
	Pattern string `yaml:"pattern"`

	re *regexp.Regexp
}

type profileFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadProfiles decodes and compiles profiles from YAML.
func LoadProfiles(data []byte) ([]Profile, error) {
	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode mail profiles: %w", err)
	}

	seen := make(map[string]bool, len(file.Profiles))
	for i := range file.Profiles {
		p := &file.Profiles[i]
		if p.Source == "" {
			return nil, fmt.Errorf("mail profile %d has no source", i)
		}
		if seen[p.Source] {
			return nil, fmt.Errorf("duplicate mail profile %q", p.Source)
		}
		seen[p.Source] = true

		for j := range p.Fields {
			f := &p.Fields[j]
			re, err := regexp.Compile(`(?i)` + f.Pattern)
			if err != nil {
				return nil, fmt.Errorf("mail profile %q field %q: %w", p.Source, f.Key, err)
			}
			f.re = re
		}
	}
	return file.Profiles, nil
}

// DefaultProfiles returns the built-in marketplace profiles.
func DefaultProfiles() ([]Profile, error) {
	return LoadProfiles(defaultProfiles)
}
