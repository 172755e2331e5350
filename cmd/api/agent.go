package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
)

func newAgentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage support agents",
	}

	var name, email, password string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an agent with a login",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			if password == "" {
				if password, err = promptPassword(); err != nil {
					return err
				}
			}

			pg, err := persistence.NewPostgres(cmd.Context(), cfg.Postgres, logger)
			if err != nil {
				return err
			}
			defer pg.Close()

			authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
				UserRepo:  repository.NewUserRepository(pg.PoolHandle()),
				AgentRepo: repository.NewAgentRepository(pg.PoolHandle()),
			})
			agent, err := authService.ProvisionAgent(cmd.Context(), name, email, password)
			if err != nil {
				return fmt.Errorf("create agent: %w", err)
			}
			logger.Info("agent created", zap.Int64("agent_id", agent.ID), zap.String("email", agent.Email))
			fmt.Printf("agent %d created for %s\n", agent.ID, agent.Email)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "Agent display name")
	create.Flags().StringVar(&email, "email", "", "Login email")
	create.Flags().StringVar(&password, "password", "", "Login password (prompted when omitted)")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("email")

	cmd.AddCommand(create)
	return cmd
}

// promptPassword reads a password without echo when attached to a terminal,
// falling back to a plain line read for piped input.
func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(os.Stderr, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
