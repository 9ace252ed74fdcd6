package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "lectern",
		Usage: "course resource administration tool",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "course",
				Aliases: []string{"c"},
				Usage:   "course ID to operate on",
				Sources: cli.EnvVars("LECTERN_COURSE"),
			},
		},
		Commands: []*cli.Command{
			uploadCommand(),
			treeCommand(),
			lsCommand(),
			mkdirCommand(),
			renameCommand(),
			mvCommand(),
			rmCommand(),
			schemaCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
