package builder

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shreethaar/rev-arm/targets"
)

// Env is the environment resolved once at startup. Nothing in this package
// reads the process environment after Environment has returned.
type Env map[string]string

// Keys recognized by Environment.
var envKeys = []string{
	"CC",
	"CXX",
	"AR",
	"STRIP",
	"READELF",
	"QEMU",
	"CFLAGS",
	"QEMU_LD_PREFIX",
	"XARM_TARGET",
	"XARM_LIB_PATH",
	"XARM_CPU",
	"XARM_CONFIG",
}

func Environment() Env {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	env := Env{}
	for _, key := range envKeys {
		env[key] = getenv(key, "")
	}

	if len(env["XARM_CONFIG"]) == 0 {
		env["XARM_CONFIG"] = filepath.Join(configDir, "xarm", "config.yaml")
	}
	return env
}

// TargetName is XARM_TARGET, or the default triple when unset.
func (e Env) TargetName() string {
	if v := e.Value("XARM_TARGET"); len(v) > 0 {
		return v
	}
	return targets.Default
}

// Merge fills every key that is unset in e from other. Values already present
// in e win.
func (e Env) Merge(other Env) Env {
	result := e.Clone()
	for k, v := range other {
		if len(result.Value(k)) == 0 {
			result[k] = v
		}
	}
	return result
}

// With returns a copy of e with key set to value, unless value is empty.
func (e Env) With(key, value string) Env {
	result := e.Clone()
	if len(value) > 0 {
		result[key] = value
	}
	return result
}

func (e Env) Clone() Env {
	result := make(Env, len(e))
	for k, v := range e {
		result[k] = v
	}
	return result
}

func (e Env) Print() {
	for _, line := range e.List() {
		fmt.Println(line)
	}
}

func (e Env) Value(key string) string {
	if v, ok := e[key]; ok {
		return v
	}
	return ""
}

// Fields splits a whitespace separated value such as CFLAGS.
func (e Env) Fields(key string) []string {
	return strings.Fields(e.Value(key))
}

func (e Env) List() []string {
	var result []string
	for key, value := range e {
		result = append(result, fmt.Sprintf("%s=%s", key, value))
	}
	sort.Strings(result)
	return result
}

func getenv(key, _default string) (value string) {
	value = os.Getenv(key)
	if len(value) == 0 {
		value = _default
	}
	return value
}
