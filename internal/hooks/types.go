package hooks

// Config lists the hooks declared by a form definition.
type Config struct {
	OnSubmit []*HookConfig `yaml:"on_submit,omitempty"`
}

// HookConfig defines a single hook's configuration.
type HookConfig struct {
	Command    string `yaml:"command"`
	Timeout    int    `yaml:"timeout,omitempty"`     // seconds, default 30
	PipeOutput bool   `yaml:"pipe_output,omitempty"` // Show stdout to the user
}

// DefaultTimeout is the default timeout for hook execution in seconds.
const DefaultTimeout = 30
