package commands

import (
	"context"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/ekristen/atlas/pkg/atlassian"
	"github.com/ekristen/atlas/pkg/config"
	"github.com/ekristen/atlas/pkg/output"
)

// NewAPIClient loads the environment configuration of service and builds an
// authenticated client for it.
func NewAPIClient(ctx context.Context, service string) (*atlassian.Client, error) {
	svc, err := config.Load(service, nil)
	if err != nil {
		return nil, err
	}

	return atlassian.New(ctx, svc)
}

// Print renders v with the command's --format.
func Print(cmd *cli.Command, v interface{}) error {
	return output.Render(Writer(cmd), cmd.String("format"), v)
}

func Writer(cmd *cli.Command) io.Writer {
	if root := cmd.Root(); root != nil && root.Writer != nil {
		return root.Writer
	}
	return os.Stdout
}
