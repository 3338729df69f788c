// Package cli builds the electro command tree. Besides the static commands
// (typedef, add, remove, list, serve, check) it generates one command per
// access pattern, scan and mutation of every registered instance.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/acksell/electro/dynamodb/config"
	"github.com/acksell/electro/dynamodb/instance"
	"github.com/acksell/electro/dynamodb/registry"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

type App struct {
	cfg    *config.Config
	logger zerolog.Logger
	reg    *registry.Registry
	out    io.Writer
	errOut io.Writer

	instances []*instance.Instance
}

// New returns an App writing results to out and diagnostics to errOut.
func New(cfg *config.Config, logger zerolog.Logger, out, errOut io.Writer) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
		reg:    registry.Open(cfg.Registry),
		out:    out,
		errOut: errOut,
	}
}

func (a *App) instanceOptions() instance.Options {
	return instance.Options{
		DataDir:  a.cfg.DataDir,
		Region:   a.cfg.AWS.Region,
		Endpoint: a.cfg.AWS.Endpoint,
		Logger:   a.logger,
	}
}

// Root builds the command tree. Registered instances are opened here; the
// ones that fail to load are reported on errOut and left out of the tree.
func (a *App) Root(ctx context.Context) *cobra.Command {
	root := &cobra.Command{
		Use:           "electro",
		Short:         "Query and mutate DynamoDB entities from their schema",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.AddCommand(a.typedefCommand())
	root.AddCommand(a.addCommand())
	root.AddCommand(a.removeCommand())
	root.AddCommand(a.listCommand())
	root.AddCommand(a.serveCommand())
	root.AddCommand(a.checkCommand())

	instances, errs := instance.OpenAll(ctx, a.reg, a.instanceOptions())
	for _, err := range errs {
		color.New(color.FgRed).Fprintln(a.errOut, err)
	}
	a.instances = instances
	for _, cmd := range a.surfaceCommands(instances) {
		root.AddCommand(cmd)
	}
	return root
}

// Execute runs args against a fresh command tree and closes every opened
// instance afterwards. Errors are printed in red and returned.
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.Root(ctx)
	defer instance.CloseAll(a.instances)

	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintln(a.errOut, "Error:", err)
		return err
	}
	return nil
}

func (a *App) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Fprintln(a.out, string(data))
	return nil
}
