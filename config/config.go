// Package config loads registry settings from a YAML file with environment
// variable overrides for deploy-time values.
package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	// Locales maps locale code to display name, e.g. en: English.
	Locales       map[string]string `yaml:"locales"`
	DefaultLocale string            `yaml:"default_locale"`

	Elasticsearch Elasticsearch `yaml:"elasticsearch"`
	Indexing      Indexing      `yaml:"indexing"`
	Dump          Dump          `yaml:"dump"`
	Kafka         Kafka         `yaml:"kafka"`

	// OpeningHours holds per-locale phrase templates used when a source
	// provides structured opening hours instead of free text. Domain
	// content, kept out of code.
	OpeningHours map[string]string `yaml:"opening_hours"`
}

type Elasticsearch struct {
	URL         string `yaml:"url"`
	IndexPrefix string `yaml:"index_prefix"`
}

type Indexing struct {
	BatchSize int `yaml:"batch_size"`
}

type Dump struct {
	PageSize int `yaml:"page_size"`
}

type Kafka struct {
	RunsTopic string `yaml:"runs_topic"`
}

// Load reads settings from path, fills defaults and applies env overrides.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}

	s.applyDefaults()
	s.applyEnv()

	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Default returns settings without a file, for deployments configured purely
// through the environment.
func Default() *Settings {
	s := &Settings{}
	s.applyDefaults()
	s.applyEnv()
	return s
}

func (s *Settings) applyDefaults() {
	if len(s.Locales) == 0 {
		s.Locales = map[string]string{"en": "English"}
	}
	if s.DefaultLocale == "" {
		s.DefaultLocale = "en"
	}
	if s.Elasticsearch.URL == "" {
		s.Elasticsearch.URL = "http://localhost:9200"
	}
	if s.Elasticsearch.IndexPrefix == "" {
		s.Elasticsearch.IndexPrefix = "fpp"
	}
	if s.Indexing.BatchSize == 0 {
		s.Indexing.BatchSize = 100
	}
	if s.Dump.PageSize == 0 {
		s.Dump.PageSize = 200
	}
	if s.Kafka.RunsTopic == "" {
		s.Kafka.RunsTopic = "topic.registry.runs"
	}
}

func (s *Settings) applyEnv() {
	if v := os.Getenv("ELASTIC_CONN_STR"); v != "" {
		s.Elasticsearch.URL = v
	}
	if v := os.Getenv("ELASTICSEARCH_INDEX"); v != "" {
		s.Elasticsearch.IndexPrefix = v
	}
}

func (s *Settings) validate() error {
	if _, ok := s.Locales[s.DefaultLocale]; !ok {
		return fmt.Errorf("default locale %q is not in the configured locales", s.DefaultLocale)
	}
	return nil
}

// LocaleCodes returns the configured locale codes with the default locale
// first and the rest in a stable order.
func (s *Settings) LocaleCodes() []string {
	codes := []string{s.DefaultLocale}
	for code := range s.Locales {
		if code != s.DefaultLocale {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes[1:])
	return codes
}
