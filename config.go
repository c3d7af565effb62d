package sshcore

// CLIConfig is the configuration shape for cmd/sshrun, bound from flags and
// an optional config file via github.com/spf13/viper (SPEC_FULL AMBIENT
// STACK, grounded on kgiusti-go-fdo-server's cmd/config.go). It lives in
// the library package, not cmd/sshrun, so it can be unit-tested without
// building the CLI.
type CLIConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	IdentityFile string `mapstructure:"identity"`
	Command      string `mapstructure:"command"`
	MetricsAddr  string `mapstructure:"metrics-addr"`
}

// Validate reports the first missing or invalid field. cmd/sshrun calls this
// after binding flags and loading any config file, mirroring the
// fdo-server cmd package's validate()-after-bind convention.
func (c *CLIConfig) Validate() error {
	switch {
	case c.Host == "":
		return usageError("sshcore: --host is required")
	case c.Port <= 0 || c.Port > 65535:
		return usageError("sshcore: --port must be between 1 and 65535")
	case c.User == "":
		return usageError("sshcore: --user is required")
	case c.IdentityFile == "":
		return usageError("sshcore: --identity is required")
	case c.Command == "":
		return usageError("sshcore: --command is required")
	}
	return nil
}
