package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/acksell/electro/dynamodb/awscheck"
	"github.com/acksell/electro/dynamodb/ddbengine"
	"github.com/acksell/electro/dynamodb/instance"
	"github.com/acksell/electro/dynamodb/server"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func (a *App) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve [port]",
		Short: "Serve the registered instances over HTTP",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			port := a.cfg.Serve.Port
			if len(args) == 1 {
				p, err := strconv.Atoi(args[0])
				if err != nil || p < 1 || p > 65535 {
					return fmt.Errorf("invalid port %q", args[0])
				}
				port = p
			}
			if len(a.instances) == 0 {
				return fmt.Errorf("no instances to serve, add one with 'electro add <file>'")
			}

			srv := server.New(a.instances, server.Config{Port: port, Logger: a.logger})
			for _, r := range srv.Routes() {
				fmt.Fprintln(a.out, r)
			}
			fmt.Fprintf(a.out, "Listening on %s\n", color.CyanString("http://localhost:%d", port))
			return srv.Run(cmd.Context())
		},
	}
}

// newChecker builds the permission checker for a region.
var newChecker = func(ctx context.Context, region string) (*awscheck.Checker, error) {
	cfg, err := ddbengine.LoadConfig(ctx, ddbengine.ClientOptions{Region: region})
	if err != nil {
		return nil, err
	}
	return awscheck.New(cfg), nil
}

func (a *App) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <label>",
		Short: "Check that the current AWS identity may run the actions an instance declares",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := a.lookup(args[0])
			if err != nil {
				return err
			}
			if inst.Entry.Local {
				fmt.Fprintf(a.out, "%s is served from the local store, no AWS permissions are needed\n", inst.Label())
				return nil
			}

			checker, err := newChecker(cmd.Context(), firstOf(inst.Entry.Region, a.cfg.AWS.Region))
			if err != nil {
				return err
			}
			report, err := checker.Check(cmd.Context(), inst.Table, awscheck.Permissions(inst.Schema))
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Principal %s (account %s), table %s\n", report.Principal, report.Account, report.Table)
			t := newTable(a.out, "ACTION", "DECISION")
			for _, d := range report.Decisions {
				decision := color.GreenString(d.Decision)
				if !d.Allowed {
					decision = color.RedString(d.Decision)
				}
				t.addRow(d.Action, decision)
			}
			t.render()
			if !report.Allowed() {
				return fmt.Errorf("%s is missing permissions on table %s", report.Principal, report.Table)
			}
			return nil
		},
	}
}

func (a *App) lookup(label string) (*instance.Instance, error) {
	e, ok, err := a.reg.Get(label)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no instance labelled %q", label)
	}
	for _, inst := range a.instances {
		if inst.Label() == e.Label {
			return inst, nil
		}
	}
	return nil, fmt.Errorf("instance %q failed to load", e.Label)
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
