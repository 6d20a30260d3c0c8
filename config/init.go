package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultFile is the config file written by [WriteDefault].
const DefaultFile = `# injgen configuration. Every key can be overridden by an INJGEN_*
# environment variable, e.g. INJGEN_OUTPUT_DRY_RUN=true.

# Package patterns processed for inject directives.
packages = ["./..."]

# Additional build flags and KEY=VALUE environment for the go command.
build_flags = []
env = []

# Maximum number of load-discover-generate rounds.
max_rounds = 10

# Report a note whenever an artifact is generated for a type outside the
# processed packages.
warn_implicit = true

# Write the discovered dependency graph in DOT format.
debug_graph = ""

[output]
suffix = ".injgen.go"
dry_run = false

[log]
level = "info"
format = "console"
output = "stderr"
`

// WriteDefault writes [DefaultFile] as injgen.toml into dir and returns
// its path. An existing file is left alone.
func WriteDefault(dir string) (string, error) {
	path := filepath.Join(dir, FileName+".toml")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0666)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return path, fmt.Errorf("%v already exists", path)
		}
		return path, err
	}
	if _, err := f.WriteString(DefaultFile); err != nil {
		f.Close()
		return path, err
	}
	return path, f.Close()
}
