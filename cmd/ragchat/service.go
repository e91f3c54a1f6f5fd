package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/flemzord/ragchat/pkg/app"
	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

const serviceName = "ragchat"

// program runs the server under the host service manager.
type program struct {
	params app.RunParams
	cancel context.CancelFunc
	done   chan error
}

var _ service.Interface = (*program)(nil)

// Start implements service.Interface. It must not block.
func (p *program) Start(_ service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() {
		p.done <- app.RunContext(ctx, p.params)
	}()
	return nil
}

// Stop implements service.Interface.
func (p *program) Stop(_ service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	return <-p.done
}

// serviceConfig describes the installed unit. The config path is made
// absolute because service managers start in an arbitrary directory.
func serviceConfig(params app.RunParams) (*service.Config, error) {
	args := []string{"service", "run"}
	if params.ConfigPath != "" {
		abs, err := filepath.Abs(params.ConfigPath)
		if err != nil {
			return nil, err
		}
		args = append(args, "--config", abs)
	}
	if params.DataDir != "" {
		abs, err := filepath.Abs(params.DataDir)
		if err != nil {
			return nil, err
		}
		args = append(args, "--data-dir", abs)
	}
	return &service.Config{
		Name:        serviceName,
		DisplayName: "ragchat",
		Description: "Conversational assistant with document-grounded answers.",
		Arguments:   args,
	}, nil
}

func newService(cmd *cobra.Command) (service.Service, *program, error) {
	params, err := runParams(cmd)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := serviceConfig(params)
	if err != nil {
		return nil, nil, err
	}
	prg := &program{params: params}
	s, err := service.New(prg, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("service: %w", err)
	}
	return s, prg, nil
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage ragchat as a system service",
	}

	for _, action := range []string{"install", "uninstall", "start", "stop", "restart"} {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the system service", action),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, _, err := newService(cmd)
				if err != nil {
					return err
				}
				if err := service.Control(s, action); err != nil {
					return fmt.Errorf("service %s: %w", action, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "service %s: ok\n", action)
				return nil
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the system service status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := newService(cmd)
			if err != nil {
				return err
			}
			st, err := s.Status()
			if errors.Is(err, service.ErrNotInstalled) {
				fmt.Fprintln(cmd.OutOrStdout(), "not installed")
				return nil
			}
			if err != nil {
				return fmt.Errorf("service status: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), statusName(st))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:    "run",
		Short:  "Run under the service manager",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := newService(cmd)
			if err != nil {
				return err
			}
			return s.Run()
		},
	})

	return cmd
}

func statusName(st service.Status) string {
	switch st {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
