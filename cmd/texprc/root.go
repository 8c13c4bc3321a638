// Package main is texprc, a developer-facing command for exercising the
// Kernel compile pipeline from a JSON subgraph fixture, the equivalent of
// the teacher's ollama show/run entry points but for kernel compilation
// rather than model serving (grounded on teacher's cmd/cmd.go NewCLI).
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/texpr-dev/texpr/config"
)

var version = "dev"

// appendEnvDocs mirrors the teacher's cmd.go helper of the same name:
// append a generated "Environment Variables" block to a command's usage.
func appendEnvDocs(cmd *cobra.Command) {
	envs := config.AsMap()
	if len(envs) == 0 {
		return
	}
	usage := "\nEnvironment Variables:\n"
	for _, name := range []string{
		"FALLBACK", "DONT_USE_LLVM",
		"TEXPR_GENERATE_BLOCK_CODE", "TEXPR_MUST_USE_LLVM_ON_CPU",
		"TEXPR_CAT_WITHOUT_CONDITIONALS", "TEXPR_OPTIMIZE_CONDITIONALS",
		"TEXPR_FALLBACK_ALLOWED", "TEXPR_CUDA_POINTWISE_LOOP_LEVELS",
		"TEXPR_CUDA_POINTWISE_BLOCK_COUNT", "TEXPR_CUDA_POINTWISE_BLOCK_SIZE",
	} {
		e, ok := envs[name]
		if !ok {
			continue
		}
		usage += fmt.Sprintf("      %-34s   %s\n", e.Name, e.Description)
	}
	cmd.SetUsageTemplate(cmd.UsageTemplate() + usage)
}

func newRootCmd() *cobra.Command {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cobra.EnableCommandSorting = false

	root := &cobra.Command{
		Use:           "texprc",
		Short:         "Tensor-expression kernel compiler",
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Println("texprc version", version)
				return
			}
			cmd.Print(cmd.UsageString())
		},
	}
	root.Flags().BoolP("version", "v", false, "Show version information")

	compileCmd := newCompileCmd()
	appendEnvDocs(compileCmd)
	root.AddCommand(compileCmd)

	return root
}

// isTTY matches cmd.go's before-colorizing TTY check.
func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
