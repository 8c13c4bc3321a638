package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/texpr-dev/texpr/backend"
	"github.com/texpr-dev/texpr/config"
	"github.com/texpr-dev/texpr/ir"
	"github.com/texpr-dev/texpr/kernel"
)

func newCompileCmd() *cobra.Command {
	var (
		device    string
		threads   int
		preAlloc  bool
		verbose   bool
		envDocs   bool
	)

	cmd := &cobra.Command{
		Use:   "compile <fixture.json>",
		Short: "Compile a JSON subgraph fixture and print its final statement tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if envDocs {
				for name, e := range config.AsMap() {
					fmt.Printf("%-34s %-10v %s\n", name, e.Value, e.Description)
				}
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("compile requires exactly one fixture path")
			}

			sg, err := loadFixture(args[0])
			if err != nil {
				return err
			}

			dev := backend.CPU
			if device == "gpu" {
				dev = backend.GPU
			}

			k, err := kernel.New(sg, builtinRegistry(), dev, kernel.Options{ThreadCount: threads, PreAlloc: preAlloc})
			if err != nil {
				return fmt.Errorf("compile: %w", err)
			}

			fmt.Printf("kernel %s (id=%s) target=%v fallback=%v\n", k.Name, k.ID, k.Target, k.Interpreter != nil && k.Codegen == nil)

			opts := []ir.PrintOptions{}
			if verbose {
				opts = append(opts, ir.WithTable(true))
			}
			fmt.Print(ir.Dump(k.Nest, opts...))

			return nil
		},
	}

	cmd.Flags().StringVar(&device, "device", "cpu", "target device: cpu or gpu")
	cmd.Flags().IntVar(&threads, "threads", 1, "thread count hint for the Loop-Nest Transformer")
	cmd.Flags().BoolVar(&preAlloc, "prealloc", true, "pre-allocate intermediate buffers")
	cmd.Flags().BoolVarP(&verbose, "verbose", "V", isTTY(), "print the buffer summary table before the statement tree")
	cmd.Flags().BoolVar(&envDocs, "env-docs", false, "print recognized environment variables and exit")

	return cmd
}
