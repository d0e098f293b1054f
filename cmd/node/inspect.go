package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/uhyunpark/hyperdex/params"
	"github.com/uhyunpark/hyperdex/pkg/app/dex"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print state hash, tokens and open order count from the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := params.LoadFromEnv(envPath)

		n, err := openNode(cfg, zap.NewNop(), false)
		if err != nil {
			return err
		}
		defer n.Close()

		app := dex.NewApp(n.engine, nil, nil)
		if err := app.CheckInvariants(); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(app.Stats())
	},
}
