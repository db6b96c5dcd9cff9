package builder

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/shreethaar/rev-arm/targets"
)

type OptLevel int

const (
	OptNone OptLevel = iota
	OptBasic
	OptStandard
	OptAggressive
)

var optNames = []string{"none", "basic", "standard", "aggressive"}

func ParseOptLevel(s string) (OptLevel, error) {
	s = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "-O"))
	if len(s) == 1 && s[0] >= '0' && s[0] <= '3' {
		return OptLevel(s[0] - '0'), nil
	}
	if idx := slices.Index(optNames, s); idx >= 0 {
		return OptLevel(idx), nil
	}
	return OptNone, configError("invalid optimization level %q (want 0-3)", s)
}

// Flag returns the compiler flag for this level.
func (o OptLevel) Flag() string {
	return fmt.Sprintf("-O%d", int(o))
}

func (o OptLevel) String() string {
	return fmt.Sprintf("%d", int(o))
}

func (o *OptLevel) Set(s string) error {
	level, err := ParseOptLevel(s)
	if err != nil {
		return err
	}
	*o = level
	return nil
}

func (o *OptLevel) Type() string {
	return "level"
}

type LinkMode int

const (
	LinkStatic LinkMode = iota
	LinkDynamic
)

func (l LinkMode) String() string {
	if l == LinkDynamic {
		return "dynamic"
	}
	return "static"
}

func (l *LinkMode) Set(s string) error {
	switch strings.ToLower(s) {
	case "static":
		*l = LinkStatic
	case "dynamic":
		*l = LinkDynamic
	default:
		return configError("invalid linking mode %q", s)
	}
	return nil
}

func (l *LinkMode) Type() string {
	return "mode"
}

// BuildConfig describes a single compiler invocation. Fields are not changed
// by the builder once Validate accepted them.
type BuildConfig struct {
	Target       targets.TargetInfo
	Optimization OptLevel
	Linking      LinkMode
	Debug        bool
	Arch         string
	Sources      []string
	Output       string
	Strip        bool
	ExtraFlags   []string
}

func (c BuildConfig) Validate() error {
	if c.Target.IsZero() {
		return configError("no target selected")
	}
	if len(c.Sources) == 0 {
		return configError("no source files given")
	}
	for i, src := range c.Sources {
		if len(strings.TrimSpace(src)) == 0 {
			return configError("source file %d is empty", i)
		}
	}
	if len(strings.TrimSpace(c.Output)) == 0 {
		return configError("no output path given")
	}
	if c.Optimization < OptNone || c.Optimization > OptAggressive {
		return configError("invalid optimization level %d", int(c.Optimization))
	}
	return nil
}

var cxxExtensions = []string{".cc", ".cpp", ".cxx", ".c++", ".C"}

// IsCXX reports whether the sources need the C++ driver.
func (c BuildConfig) IsCXX() bool {
	for _, src := range c.Sources {
		if slices.Contains(cxxExtensions, filepath.Ext(src)) {
			return true
		}
	}
	return false
}

// RunConfig describes a single emulated run of a target binary.
type RunConfig struct {
	Binary  string
	Target  targets.TargetInfo
	Linking LinkMode
	LibPath string
	CPU     string
	Args    []string
	Env     []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (c RunConfig) Validate() error {
	if c.Target.IsZero() {
		return configError("no target selected")
	}
	if len(strings.TrimSpace(c.Binary)) == 0 {
		return configError("no target binary given")
	}
	for _, kv := range c.Env {
		if !strings.Contains(kv, "=") {
			return configError("environment entry %q is not KEY=VALUE", kv)
		}
	}
	return nil
}

// Binary is the artifact produced by Compile.
type Binary struct {
	Path    string
	Target  targets.TargetInfo
	Linking LinkMode
}

// ProcessOutcome is the result of the emulated program, passed through as is.
type ProcessOutcome struct {
	ExitCode int
	Stdout   string
	Stderr   string
	// LibPath is the library path handed to the emulator, if any.
	LibPath string
}
