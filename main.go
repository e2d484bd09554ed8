package main

import (
	"context"
	"os"
	"path"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/ekristen/atlas/pkg/common"

	_ "github.com/ekristen/atlas/pkg/commands/confluence"
	_ "github.com/ekristen/atlas/pkg/commands/jira"
	_ "github.com/ekristen/atlas/pkg/commands/network"
	_ "github.com/ekristen/atlas/pkg/commands/oauth"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			// log panics forces exit
			if _, ok := r.(*logrus.Entry); ok {
				os.Exit(1)
			}
			panic(r)
		}
	}()

	app := &cli.Command{
		Name:     path.Base(os.Args[0]),
		Usage:    common.AppVersion.Name,
		Version:  common.AppVersion.Summary,
		Commands: common.GetCommands(),
		CommandNotFound: func(_ context.Context, _ *cli.Command, command string) {
			logrus.Fatalf("Command %s not found.", command)
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logrus.Fatal(err)
	}
}
