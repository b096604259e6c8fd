// Command grove builds procedural node graphs from Lisp source or binary
// project files, evaluates them and prints the generated object trees.
package main

import (
	"os"

	"github.com/mitchellh/cli"
)

const version = "0.1.0"

func main() {
	ui := &cli.BasicUi{
		Reader:      os.Stdin,
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}
	os.Exit(realMain(os.Args[1:], Meta{Ui: ui}))
}

// realMain runs the command line args with meta and returns the exit status.
func realMain(args []string, meta Meta) int {
	c := cli.NewCLI("grove", version)
	c.Args = args
	c.Commands = map[string]cli.CommandFactory{
		"eval": func() (cli.Command, error) {
			return &EvalCommand{Meta: meta}, nil
		},
		"generate": func() (cli.Command, error) {
			return &GenerateCommand{Meta: meta}, nil
		},
		"inspect": func() (cli.Command, error) {
			return &InspectCommand{Meta: meta}, nil
		},
		"modules": func() (cli.Command, error) {
			return &ModulesCommand{Meta: meta}, nil
		},
	}

	code, err := c.Run()
	if err != nil {
		meta.Ui.Error(err.Error())
		return 1
	}
	return code
}
