package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/cosmos/treapx/bench"
)

func main() {
	cmd := &cobra.Command{
		Use:          "treapx-bench",
		Short:        "Generate, replay and inspect persistent sequence op logs.",
		SilenceUsage: true,
	}
	cmd.AddCommand(
		bench.GenCommand(),
		bench.RunCommand(),
		bench.DotCommand(),
		bench.BenchAllCommand(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
