package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shreethaar/rev-arm/builder"
	"github.com/shreethaar/rev-arm/targets"
)

var (
	envCmd = &cobra.Command{
		Use:   "env",
		Short: "Print the resolved environment and toolchain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			env.Print()
			fmt.Printf("HOST_MACHINE=%s\n", builder.HostMachine())

			b, err := newBuilder()
			if err != nil {
				return err
			}

			tc := b.Toolchain()
			version, err := tc.Version(ctx, builder.LocalExecutor())
			if err != nil {
				version = "unknown"
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "target\t%s\n", b.Target().Triple)
			fmt.Fprintf(w, "cc\t%s (%s)\n", tc.CC, version)
			fmt.Fprintf(w, "cxx\t%s\n", orNone(tc.CXX))
			fmt.Fprintf(w, "ar\t%s\n", orNone(tc.AR))
			fmt.Fprintf(w, "strip\t%s\n", orNone(tc.Strip))
			fmt.Fprintf(w, "readelf\t%s\n", orNone(tc.ReadElf))
			fmt.Fprintf(w, "emulator\t%s\n", tc.Emulator)
			fmt.Fprintf(w, "lib path\t%s\n", orNone(b.DiscoverLibPath(ctx, b.Target())))
			return w.Flush()
		},
	}

	targetsCmd = &cobra.Command{
		Use:   "targets",
		Short: "List known targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TRIPLE\tMACHINE\tEMULATOR\tINTERPRETER")
			for _, t := range targets.All() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Triple, t.Machine, t.Emulator, t.Interpreter)
			}
			return w.Flush()
		},
	}
)

func orNone(s string) string {
	if len(s) == 0 {
		return "(none)"
	}
	return s
}
