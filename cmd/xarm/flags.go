package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/shreethaar/rev-arm/builder"
)

// compileFlags are shared by build and build-and-run.
type compileFlags struct {
	output string
	opt    builder.OptLevel
	debug  bool
	arch   string
	strip  bool
	cflags []string
}

func (f *compileFlags) flagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("compile", pflag.ContinueOnError)
	fs.StringVarP(&f.output, "output", "o", "a.out", "output file")
	fs.VarP(&f.opt, "opt", "O", "optimization level (0-3 or none, basic, standard, aggressive)")
	fs.BoolVarP(&f.debug, "debug", "g", false, "generate debug information")
	fs.StringVar(&f.arch, "arch", "", "architecture passed to the compiler as -march")
	fs.BoolVar(&f.strip, "strip", false, "strip the binary after compiling")
	fs.StringArrayVar(&f.cflags, "cflag", nil, "extra compiler flag (repeatable, appended to $CFLAGS)")
	return fs
}

func (f *compileFlags) config(sources []string) builder.BuildConfig {
	return builder.BuildConfig{
		Optimization: f.opt,
		Debug:        f.debug,
		Arch:         f.arch,
		Sources:      sources,
		Output:       f.output,
		Strip:        f.strip,
		ExtraFlags:   append(env.Fields("CFLAGS"), f.cflags...),
	}
}

// linkFlags select static or dynamic linking.
type linkFlags struct {
	static  bool
	dynamic bool
}

func (f *linkFlags) register(cmd *cobra.Command) {
	fs := pflag.NewFlagSet("link", pflag.ContinueOnError)
	fs.BoolVar(&f.static, "static", false, "link statically (default)")
	fs.BoolVar(&f.dynamic, "dynamic", false, "link dynamically")
	cmd.Flags().AddFlagSet(fs)
	cmd.MarkFlagsMutuallyExclusive("static", "dynamic")
}

func (f *linkFlags) mode() builder.LinkMode {
	if f.dynamic {
		return builder.LinkDynamic
	}
	return builder.LinkStatic
}

// emulatorFlags are shared by run and build-and-run.
type emulatorFlags struct {
	libPath string
	cpu     string
	env     []string
}

func (f *emulatorFlags) flagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("emulator", pflag.ContinueOnError)
	fs.StringVar(&f.libPath, "lib-path", "", "directory holding the target's dynamic linker and libraries (default: $XARM_LIB_PATH)")
	fs.StringVar(&f.cpu, "cpu", "", "CPU model to emulate")
	fs.StringArrayVarP(&f.env, "env", "E", nil, "set KEY=VALUE in the emulated program's environment (repeatable)")
	return fs
}

func (f *emulatorFlags) config(args []string) builder.RunConfig {
	libPath := f.libPath
	if len(libPath) == 0 {
		libPath = env.Value("XARM_LIB_PATH")
	}
	cpu := f.cpu
	if len(cpu) == 0 {
		cpu = env.Value("XARM_CPU")
	}
	return builder.RunConfig{
		LibPath: libPath,
		CPU:     cpu,
		Env:     f.env,
		Args:    args,
	}
}

// splitDash splits positional arguments at "--".
func splitDash(cmd *cobra.Command, args []string) (before, after []string) {
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		return args[:dash], args[dash:]
	}
	return args, nil
}
