package targets

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// Default is the triple used when neither a flag, XARM_TARGET nor a profile
// names one.
const Default = "aarch64-linux-gnu"

//go:embed targets.yaml
var rawTargets []byte

var targets Targets
var ErrUnknownTarget = errors.New("unknown target")

func All() Targets {
	return targets
}

type Targets []TargetInfo
type TargetInfo struct {
	Triple             string   `yaml:"triple"`
	Aliases            []string `yaml:"aliases"`
	Machine            string   `yaml:"machine"`
	ToolPrefix         string   `yaml:"toolPrefix"`
	ClangTriple        string   `yaml:"clangTriple"`
	Emulator           string   `yaml:"emulator"`
	Interpreter        string   `yaml:"interpreter"`
	MinCompilerVersion string   `yaml:"minCompilerVersion"`
	Sysroots           []string `yaml:"sysroots"`
}

func (t TargetInfo) IsZero() bool {
	return len(t.Triple) == 0
}

func (t TargetInfo) String() string {
	return t.Triple
}

// Tool returns the prefixed name of a binutils-style tool for this target,
// e.g. "aarch64-linux-gnu-strip".
func (t TargetInfo) Tool(name string) string {
	return t.ToolPrefix + name
}

// Find looks a target up by its triple or one of its aliases.
func (t Targets) Find(name string) (TargetInfo, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, target := range t {
		if target.Triple == name || slices.Contains(target.Aliases, name) {
			return target, nil
		}
	}
	return TargetInfo{}, fmt.Errorf("%w: %q", ErrUnknownTarget, name)
}

// FindByMachine returns the first target producing binaries for the given
// (normalized) machine name.
func (t Targets) FindByMachine(machine string) (TargetInfo, error) {
	machine = NormalizeMachine(machine)
	idx := slices.IndexFunc(t, func(target TargetInfo) bool {
		return target.Machine == machine
	})
	if idx < 0 {
		return TargetInfo{}, fmt.Errorf("%w: no target for machine %q", ErrUnknownTarget, machine)
	}
	return t[idx], nil
}

// Lookup is Find on the embedded target table.
func Lookup(name string) (TargetInfo, error) {
	return targets.Find(name)
}

// NormalizeMachine maps the spellings used by readelf, debug/elf, uname and
// GOARCH onto one canonical machine name.
func NormalizeMachine(machine string) string {
	m := strings.ToLower(strings.TrimSpace(machine))
	switch m {
	case "aarch64", "arm64", "em_aarch64", "arm aarch64":
		return "aarch64"
	case "arm", "em_arm", "armv7l", "armv7", "armhf":
		return "arm"
	case "x86_64", "amd64", "x86-64", "em_x86_64", "advanced micro devices x86-64":
		return "x86_64"
	case "riscv64", "em_riscv", "risc-v":
		return "riscv64"
	case "i386", "i686", "386", "em_386", "intel 80386":
		return "i386"
	}
	return m
}

func init() {
	var t struct {
		Elements []TargetInfo `yaml:"targets"`
	}
	if err := yaml.Unmarshal(rawTargets, &t); err != nil {
		panic(err)
	}

	targets = t.Elements
}
