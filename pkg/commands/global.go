package commands

import (
	"context"
	"fmt"
	"path"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

func GlobalFlags() []cli.Flag {
	globalFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log Level",
			Aliases: []string{"l"},
			Sources: cli.EnvVars("LOGLEVEL"),
			Value:   "info",
		},
		&cli.BoolFlag{
			Name:  "log-caller",
			Usage: "log the caller (aka line number and file)",
		},
		&cli.BoolFlag{
			Name:  "log-disable-color",
			Usage: "disable log coloring",
		},
		&cli.BoolFlag{
			Name:  "log-full-timestamp",
			Usage: "force log output to always show full timestamp",
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "log output format (text or json)",
			Sources: cli.EnvVars("LOG_FORMAT"),
			Value:   "text",
		},
	}

	return globalFlags
}

// OutputFlags are shared by every command that prints API objects.
func OutputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Usage:   "output format: json, yaml, or a Go template (sprig functions available)",
			Aliases: []string{"o"},
			Sources: cli.EnvVars("ATLAS_FORMAT"),
			Value:   "json",
		},
	}
}

func GlobalBefore(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var callerPrettyfier func(*runtime.Frame) (string, string)
	if cmd.Bool("log-caller") {
		logrus.SetReportCaller(true)

		callerPrettyfier = func(f *runtime.Frame) (string, string) {
			return "", fmt.Sprintf("%s:%d", path.Base(f.File), f.Line)
		}
	}

	switch cmd.String("log-format") {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{
			CallerPrettyfier: callerPrettyfier,
		})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors:    cmd.Bool("log-disable-color"),
			FullTimestamp:    cmd.Bool("log-full-timestamp"),
			CallerPrettyfier: callerPrettyfier,
		})
	}

	switch cmd.String("log-level") {
	case "trace":
		logrus.SetLevel(logrus.TraceLevel)
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	}

	return ctx, nil
}
