package process

// Command is a rebuild step for one application, as found in shell config.
type Command struct {
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	// Dir is the working directory. Empty means the reloader's base directory.
	Dir string `yaml:"dir" json:"dir"`
}
