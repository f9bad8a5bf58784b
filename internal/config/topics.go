// Package config loads the static topic list from a TOML file and the
// connection settings for the database and broker from the environment.
package config

import (
	"os"
	"regexp"

	"github.com/BurntSushi/toml"

	"github.com/nais/kafka-topic-backup/internal/apperr"
)

// TopicsFile is the shape of the TOML config file: a flat list of topic
// names, each of which may contain a "$VAR" reference resolved against the
// process environment before parsing.
type TopicsFile struct {
	Topics []string `toml:"topics"`
}

var envRef = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)

// interpolate replaces every "$VAR" occurrence in content with the value of
// the environment variable VAR. A reference to an unset variable is left
// untouched, mirroring the permissive behavior of the original's
// env-field wrapper.
func interpolate(content string) string {
	return envRef.ReplaceAllStringFunc(content, func(ref string) string {
		name := ref[1:]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return ref
	})
}

// ParseTopics parses TOML topic-list content, interpolating environment
// variables first.
func ParseTopics(content string) (*TopicsFile, error) {
	var tf TopicsFile
	if _, err := toml.Decode(interpolate(content), &tf); err != nil {
		return nil, apperr.New(apperr.DomainConfig, "topics", err)
	}
	return &tf, nil
}

// LoadTopicsFile reads and parses the topic list from disk.
func LoadTopicsFile(path string) (*TopicsFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.New(apperr.DomainConfig, path, err)
	}
	return ParseTopics(string(content))
}
