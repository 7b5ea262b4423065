// Command savings manages savings goals from the terminal. It shares the
// storage backend and configuration with savings-server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

func main() {
	if err := execute(context.Background(), &environment{}, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// execute runs one command line and then releases what the bootstrap opened,
// whether or not the command succeeded.
func execute(ctx context.Context, env *environment, args []string, stdout, stderr io.Writer) error {
	cmd := newRootCmd(env)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)

	if env.close != nil {
		if cerr := env.close(); cerr != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "Error: release resources:", cerr)
			err = errors.Join(err, cerr)
		}
		env.close = nil
	}
	return err
}
