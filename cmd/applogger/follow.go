package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/thisisjab/applogger/follow"
	"github.com/thisisjab/applogger/provider"
	"github.com/urfave/cli/v3"
)

func followCommand() *cli.Command {
	return &cli.Command{
		Name:  "follow",
		Usage: "Print lines appended to a file provider's output, across rotations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Directory the file provider writes to",
				Value: provider.DefaultDirectoryPath,
			},
			&cli.StringFlag{
				Name:  "file",
				Usage: "File name configured on the provider",
				Value: provider.DefaultFileName,
			},
			&cli.StringFlag{
				Name:  "rotation",
				Usage: "Rotation interval (none, daily, monthly, yearly)",
				Value: string(provider.RotationNone),
			},
			&cli.BoolFlag{
				Name:  "from-start",
				Usage: "Print the current file from its beginning",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			rotation, err := provider.ParseRotationInterval(c.String("rotation"))
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if c.Bool("debug") {
				level = slog.LevelDebug
			}
			logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
				Level:      level,
				TimeFormat: time.Kitchen,
			}))

			f := follow.New(logger, follow.Config{
				DirectoryPath:    c.String("dir"),
				FileName:         c.String("file"),
				RotationInterval: rotation,
				FromStart:        c.Bool("from-start"),
			})

			err = f.Follow(ctx, os.Stdout)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
