package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"scriptvm/vm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scriptvm",
		Short:         "Compile and run scripts on the stack-based scripting VM",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var debug bool
	var trace bool

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Compile and execute a script file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			log := logrus.New()
			log.SetOutput(os.Stderr)
			if trace {
				log.SetLevel(logrus.DebugLevel)
			}

			m := vm.New(log)
			m.Trace = trace

			if debug {
				err = m.RunDebug(string(source), os.Stdin, os.Stdout)
			} else {
				err = m.Run(string(source), os.Stdin, os.Stdout)
			}
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitCodeFor(err))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "enter the single-step debug console")
	cmd.Flags().BoolVar(&trace, "trace", false, "log each executed instruction")
	return cmd
}

func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	return vm.KindOf(err).ExitCode()
}
