package config

import "strings"

// Supabase holds the project credentials. The service key is only read from
// the config file or SUPABASE_SERVICE_KEY.
type Supabase struct {
	URL        string `toml:"url" yaml:"url" validate:"omitempty,url"`
	ServiceKey string `toml:"service_key" yaml:"service_key"`
	Bucket     string `toml:"bucket" yaml:"bucket"`
}

// Enabled reports whether the project is configured.
func (s Supabase) Enabled() bool {
	return strings.TrimSpace(s.URL) != "" && strings.TrimSpace(s.ServiceKey) != ""
}

// MirrorUploads reports whether uploads should be copied to Supabase Storage.
func (s Supabase) MirrorUploads() bool {
	return s.Enabled() && strings.TrimSpace(s.Bucket) != ""
}
