package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProfileOverrides adds site-specific header synonyms to registered profiles.
//
//	profiles:
//	  megohmmeter:
//	    synonyms:
//	      resistance: ["iso r", "riso"]
type ProfileOverrides struct {
	Profiles map[string]ProfileOverride `yaml:"profiles"`
}

// ProfileOverride lists extra synonyms per field name.
type ProfileOverride struct {
	Synonyms map[string][]string `yaml:"synonyms"`
}

// LoadProfileOverrides reads a YAML overrides file. An empty path yields no
// overrides.
func LoadProfileOverrides(path string) (*ProfileOverrides, error) {
	if path == "" {
		return &ProfileOverrides{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}
	return ParseProfileOverrides(data)
}

// ParseProfileOverrides decodes overrides and rejects empty entries.
func ParseProfileOverrides(data []byte) (*ProfileOverrides, error) {
	var o ProfileOverrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse profiles file: %w", err)
	}

	var errs []error
	for profile, po := range o.Profiles {
		for field, syns := range po.Synonyms {
			if field == "" {
				errs = append(errs, fmt.Errorf("profile %s: empty field name", profile))
			}
			for _, s := range syns {
				if s == "" {
					errs = append(errs, fmt.Errorf("profile %s field %s: empty synonym", profile, field))
				}
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return &o, nil
}
