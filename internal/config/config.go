// Package config holds the shared configuration surface of the porting
// commands: installation roots for both engine versions, the shader
// database, and the working/output/tool directories. Values come from an
// optional YAML file, are overridden by flags, and missing installation
// roots are prompted for interactively when running in a terminal.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked for in the current directory.
const DefaultFile = "ed8port.yaml"

// ErrRootMissing is returned when an installation root does not exist
// and cannot be prompted for. Always fatal: a missing installation is a
// broken environment, not a bad asset.
var ErrRootMissing = errors.New("installation root missing")

// Config is the shared configuration of all porting commands.
type Config struct {
	SrcRoot      string `yaml:"src_root"`      // source engine installation (assets to port)
	DstRoot      string `yaml:"dst_root"`      // destination engine installation (donor shaders)
	ShaderDB     string `yaml:"shader_db"`     // CSV or SQLite shader database
	WorkDir      string `yaml:"work_dir"`      // staging/unpack cache
	OutDir       string `yaml:"out_dir"`       // where finished packages land
	ToolsDir     string `yaml:"tools_dir"`     // external (un)pack toolchain
	Python       string `yaml:"python"`        // interpreter for the toolchain scripts
	MaxWorkers   int    `yaml:"max_workers"`   // unpack pool width
	FlipTextures bool   `yaml:"flip_textures"` // vertically flip textures before repacking
	TexConverter string `yaml:"tex_converter"` // external converter for non-native texture formats
	Profile      string `yaml:"target_profile"`
}

// Default returns the built-in defaults, matching the original tool's
// argument defaults.
func Default() Config {
	return Config{
		ShaderDB:   "all_shaders.csv",
		WorkDir:    "tmp",
		OutDir:     ".",
		ToolsDir:   ".",
		MaxWorkers: 16,
		Profile:    "cs1",
	}
}

// Load reads the config file at path on top of the defaults. A missing
// file is not an error when path is the default location.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultFile {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// EnsureRoot validates that root exists, prompting the user for a path
// when it does not and stdin is a terminal. Returns the validated root.
func EnsureRoot(root, name string) (string, error) {
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	return ensureRoot(root, name, bufio.NewReader(os.Stdin), interactive)
}

// ensureRoot loops until root names an existing directory. The reader is
// shared across retries so input buffered past a newline is not lost
// between prompts.
func ensureRoot(root, name string, in *bufio.Reader, interactive bool) (string, error) {
	for {
		if root != "" {
			if info, err := os.Stat(root); err == nil && info.IsDir() {
				return root, nil
			}
		}
		if !interactive {
			return "", fmt.Errorf("%w: %s (%q)", ErrRootMissing, name, root)
		}
		fmt.Fprintf(os.Stderr, "Please enter the path to your %s installation: ", name)
		line, err := in.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrRootMissing, name, err)
		}
		root = strings.TrimSpace(line)
	}
}
