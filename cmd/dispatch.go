package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Effec77/aidflow/app"
	"github.com/Effec77/aidflow/config"
	"github.com/Effec77/aidflow/infra/logger"
)

var dispatchedBy string

var dispatchCmd = &cobra.Command{
	Use:   "dispatch <emergency-id>",
	Short: "Run a single dispatch and print the result",
	Args:  cobra.ExactArgs(1),
	RunE:  dispatchOnce,
}

func init() {
	dispatchCmd.Flags().StringVar(&dispatchedBy, "by", "cli", "operator recorded on the dispatch")
	rootCmd.AddCommand(dispatchCmd)
}

func dispatchOnce(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("dispatch-command").Errorf("service close: %v", err)
		}
	}()

	res, err := svc.Coordinator.Dispatch(ctx, args[0], dispatchedBy)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
