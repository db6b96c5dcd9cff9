package builder

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is the optional YAML configuration file. It only supplies defaults;
// the process environment and command line flags take precedence.
type Profile struct {
	Target    string   `yaml:"target"`
	LibPath   string   `yaml:"libPath"`
	CPU       string   `yaml:"cpu"`
	CFlags    []string `yaml:"cflags"`
	Toolchain struct {
		CC      string `yaml:"cc"`
		CXX     string `yaml:"cxx"`
		AR      string `yaml:"ar"`
		Strip   string `yaml:"strip"`
		ReadElf string `yaml:"readelf"`
		QEMU    string `yaml:"qemu"`
	} `yaml:"toolchain"`
}

// LoadProfile reads a profile. A missing file is only an error when required
// is set.
func LoadProfile(path string, required bool) (Profile, error) {
	var p Profile
	if len(path) == 0 {
		return p, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return p, nil
		}
		return p, configError("profile: %v", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(b))
	decoder.KnownFields(true)
	if err := decoder.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Profile{}, configError("profile %s: %v", path, err)
	}
	return p, nil
}

// Env converts the profile into environment keys so it can be merged under
// the process environment.
func (p Profile) Env() Env {
	env := Env{}
	set := func(key, value string) {
		if len(value) > 0 {
			env[key] = value
		}
	}
	set("XARM_TARGET", p.Target)
	set("XARM_LIB_PATH", p.LibPath)
	set("XARM_CPU", p.CPU)
	set("CFLAGS", strings.Join(p.CFlags, " "))
	set("CC", p.Toolchain.CC)
	set("CXX", p.Toolchain.CXX)
	set("AR", p.Toolchain.AR)
	set("STRIP", p.Toolchain.Strip)
	set("READELF", p.Toolchain.ReadElf)
	set("QEMU", p.Toolchain.QEMU)
	return env
}
