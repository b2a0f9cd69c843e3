// FILE: logpulse/src/cmd/logpulse/commands.go
package main

import (
	"fmt"
	"io"
	"os"

	"logpulse/src/internal/auth"
	"logpulse/src/internal/version"
)

// CommandHandler is a subcommand run instead of the engine
type CommandHandler interface {
	Execute(args []string) error
	Description() string
}

// CommandRouter dispatches subcommands before flag parsing
type CommandRouter struct {
	commands map[string]CommandHandler
	out      io.Writer
	exit     func(code int)
}

func NewCommandRouter() *CommandRouter {
	return &CommandRouter{
		commands: map[string]CommandHandler{
			"auth":    &authCommand{},
			"version": &versionCommand{},
			"help":    &helpCommand{},
		},
		out:  os.Stdout,
		exit: os.Exit,
	}
}

// Route runs the subcommand named by args[1] and exits. Returns nil when
// args start with a flag or are empty so the engine can start.
func (r *CommandRouter) Route(args []string) error {
	if len(args) < 2 {
		return nil
	}

	for _, arg := range args[1:] {
		if arg == "-h" || arg == "--help" {
			fmt.Fprint(r.out, helpText)
			r.exit(0)
			return nil
		}
	}

	cmdName := args[1]
	handler, exists := r.commands[cmdName]
	if !exists {
		if cmdName[0] != '-' {
			return fmt.Errorf("unknown command: %s\n\nRun 'logpulse help' for usage", cmdName)
		}
		return nil
	}

	if err := handler.Execute(args[2:]); err != nil {
		return err
	}
	r.exit(0)
	return nil
}

type helpCommand struct{}

func (c *helpCommand) Execute(args []string) error {
	fmt.Print(helpText)
	return nil
}

func (c *helpCommand) Description() string {
	return "Display help information"
}

type authCommand struct{}

func (c *authCommand) Execute(args []string) error {
	return auth.NewGeneratorCommand().Execute(args)
}

func (c *authCommand) Description() string {
	return "Generate credentials, signing keys and bearer tokens"
}

type versionCommand struct{}

func (c *versionCommand) Execute(args []string) error {
	fmt.Println(version.String())
	return nil
}

func (c *versionCommand) Description() string {
	return "Show version information"
}
