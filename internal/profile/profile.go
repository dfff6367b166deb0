// Package profile loads named codec configurations from YAML, the way a
// deployment might pin one compression profile per data class ("logs",
// "thumbnails") without recompiling. Adapted from the teacher's
// yamlutil.SetFlagsFromYaml: that function maps a YAML document's keys
// onto an already-registered flag.FlagSet; this package maps a YAML
// document's top-level keys onto a set of named Profile structs instead,
// using gopkg.in/yaml.v2 in place of the teacher's (now-unmaintained)
// yaml.v1 import.
package profile

import (
	"fmt"

	"gopkg.in/yaml.v2"

	"github.com/clecat/decompress/gzip"
)

// Profile is one named codec configuration: the level/window parameters
// flate.NewEncoder and zlib/gzip.NewEncoder take, plus the gzip header
// fields a profile might want to pin (e.g. a fixed OS byte so output is
// reproducible across machines).
type Profile struct {
	Level   int    `yaml:"level"`
	WBits   uint   `yaml:"wbits"`
	GzipOS  *int   `yaml:"gzip_os,omitempty"`
	GzipName string `yaml:"gzip_name,omitempty"`
}

// ErrInvalidProfile reports a profile whose level or wbits falls outside
// the range flate.NewEncoder accepts.
type ErrInvalidProfile struct {
	Name   string
	Reason string
}

func (e *ErrInvalidProfile) Error() string {
	return fmt.Sprintf("profile: %q: %s", e.Name, e.Reason)
}

// Load parses a YAML document mapping profile names to their settings,
// e.g.:
//
//	thumbnails:
//	  level: 9
//	  wbits: 15
//	logs:
//	  level: 6
//	  wbits: 15
//	  gzip_name: "app.log"
//
// and validates every profile's level (0..9) and wbits (8..15).
func Load(data []byte) (map[string]Profile, error) {
	profiles := make(map[string]Profile)
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, err
	}
	for name, p := range profiles {
		if p.Level < 0 || p.Level > 9 {
			return nil, &ErrInvalidProfile{Name: name, Reason: "level must be 0..9"}
		}
		if p.WBits < 8 || p.WBits > 15 {
			return nil, &ErrInvalidProfile{Name: name, Reason: "wbits must be 8..15"}
		}
	}
	return profiles, nil
}

// GzipHeader builds the gzip.Header a profile's overrides describe,
// defaulting OS to unknown and leaving Name/Comment/Extra/MTIME at their
// zero values when the profile doesn't override them.
func (p Profile) GzipHeader() gzip.Header {
	h := gzip.Header{OS: gzip.OSUnknown, Name: p.GzipName}
	if p.GzipOS != nil {
		if os, ok := gzip.OfInt(byte(*p.GzipOS)); ok {
			h.OS = os
		}
	}
	return h
}
