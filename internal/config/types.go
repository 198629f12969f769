package config

// Config is the top-level configuration parsed from remediate.yaml.
type Config struct {
	Service  Service  `yaml:"service"`
	Messages Messages `yaml:"messages"`
	History  History  `yaml:"history"`
}

// Service describes how to reach the remote remediation pipeline.
type Service struct {
	BaseURL   string    `yaml:"base_url"`
	Timeout   string    `yaml:"timeout"`
	Endpoints Endpoints `yaml:"endpoints"`
}

// Endpoints holds the path of each pipeline stage relative to BaseURL.
type Endpoints struct {
	Upload   string `yaml:"upload"`
	Analyze  string `yaml:"analyze"`
	Strategy string `yaml:"strategy"`
	Refactor string `yaml:"refactor"`
}

// Messages are the fallback texts shown when the service answers with a
// non-200 status and no detail field.
type Messages struct {
	Upload   string `yaml:"upload"`
	Analyze  string `yaml:"analyze"`
	Strategy string `yaml:"strategy"`
	Refactor string `yaml:"refactor"`
}

// History controls the local sqlite journal of stage transitions.
type History struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}
