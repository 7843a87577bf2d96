package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/thisisjab/applogger/config"
	"github.com/thisisjab/applogger/engine"
	"github.com/thisisjab/applogger/entity"
	"github.com/thisisjab/applogger/fault"
	"github.com/urfave/cli/v3"
)

// runCommand logs every line read from stdin through a dispatcher built from
// the configuration file, e.g.:
//
//	tail -f app.out | applogger run --config applogger.yaml --level warning
func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Log stdin lines through the configured providers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Configuration file path",
				Value: "./applogger.yaml",
			},
			&cli.StringFlag{
				Name:  "level",
				Usage: "Level of every logged line (trace, debug, info, warning, error, critical)",
				Value: "info",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			level, err := entity.ParseLogLevel(c.String("level"))
			if err != nil {
				return err
			}

			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}

			engineCfg, logger, err := cfg.Parse()
			if err != nil {
				return describeConfigError(err)
			}

			dispatcher, err := engine.New(*engineCfg, logger)
			if err != nil {
				return fmt.Errorf("cannot create dispatcher: %w", err)
			}

			lines := make(chan string)
			go func() {
				defer close(lines)
				scanner := bufio.NewScanner(os.Stdin)
				for scanner.Scan() {
					lines <- scanner.Text()
				}
				if err := scanner.Err(); err != nil {
					logger.Error("cannot read stdin.", "error", err)
				}
			}()

		loop:
			for {
				select {
				case <-ctx.Done():
					logger.Info("received signal. shutting down.")
					break loop
				case line, ok := <-lines:
					if !ok {
						break loop
					}
					dispatcher.Log(level, line, nil)
				}
			}

			// The signal context is already cancelled at this point.
			if err := dispatcher.Shutdown(context.WithoutCancel(ctx)); err != nil {
				return fmt.Errorf("cannot flush remaining logs: %w", err)
			}

			return nil
		},
	}
}

func describeConfigError(err error) error {
	var f fault.Fault
	if !errors.As(err, &f) {
		return err
	}

	md, ok := f.Metadata().(fault.FieldErrorsMetadata)
	if !ok {
		return err
	}

	msg := f.Message()
	for field, problems := range md {
		for _, p := range problems {
			msg += fmt.Sprintf("\n  %s: %s", field, p)
		}
	}
	return errors.New(msg)
}
