package confluence

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/ekristen/atlas/pkg/commands"
	"github.com/ekristen/atlas/pkg/common"
	"github.com/ekristen/atlas/pkg/config"
	"github.com/ekristen/atlas/pkg/confluence"
)

func newClient(ctx context.Context) (*confluence.Client, error) {
	api, err := commands.NewAPIClient(ctx, config.ServiceConfluence)
	if err != nil {
		return nil, err
	}
	return confluence.New(api), nil
}

func requireArgs(cmd *cli.Command, n int, usage string) error {
	if cmd.Args().Len() != n {
		return fmt.Errorf("expected %d argument(s): %s", n, usage)
	}
	return nil
}

var stdin io.Reader = os.Stdin

// readBody returns --body, or the contents of --body-file ("-" is stdin).
func readBody(cmd *cli.Command) (string, error) {
	path := cmd.String("body-file")
	if path == "" {
		return cmd.String("body"), nil
	}

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func GetPage(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 1, "PAGE-ID"); err != nil {
		return err
	}

	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	page, err := client.GetPage(ctx, cmd.Args().First())
	if err != nil {
		return err
	}

	return commands.Print(cmd, page)
}

func Children(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 1, "PAGE-ID"); err != nil {
		return err
	}

	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	pages, err := client.GetChildren(ctx, cmd.Args().First(), int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	return commands.Print(cmd, pages)
}

func CreatePage(ctx context.Context, cmd *cli.Command) error {
	body, err := readBody(cmd)
	if err != nil {
		return err
	}

	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	page, err := client.CreatePage(ctx, confluence.CreatePageInput{
		SpaceKey: cmd.String("space"),
		Title:    cmd.String("title"),
		Body:     body,
		ParentID: cmd.String("parent"),
	})
	if err != nil {
		return err
	}

	return commands.Print(cmd, page)
}

func UpdatePage(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 1, "PAGE-ID"); err != nil {
		return err
	}

	body, err := readBody(cmd)
	if err != nil {
		return err
	}

	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	page, err := client.UpdatePage(ctx, confluence.UpdatePageInput{
		ID:      cmd.Args().First(),
		Title:   cmd.String("title"),
		Body:    body,
		Message: cmd.String("message"),
	})
	if err != nil {
		return err
	}

	return commands.Print(cmd, page)
}

func Search(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 1, "CQL"); err != nil {
		return err
	}

	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	res, err := client.Search(ctx, cmd.Args().First(), int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	return commands.Print(cmd, res)
}

func ListSpaces(ctx context.Context, cmd *cli.Command) error {
	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	spaces, err := client.ListSpaces(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	return commands.Print(cmd, spaces)
}

func AddComment(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 2, "PAGE-ID BODY"); err != nil {
		return err
	}

	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	comment, err := client.AddComment(ctx, cmd.Args().Get(0), cmd.Args().Get(1))
	if err != nil {
		return err
	}

	return commands.Print(cmd, comment)
}

func limitFlag() cli.Flag {
	return &cli.IntFlag{
		Name:  "limit",
		Usage: "maximum number of results (1-100)",
		Value: confluence.DefaultLimit,
	}
}

func bodyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "body", Usage: "page body in storage format"},
		&cli.StringFlag{Name: "body-file", Usage: "read the page body from a file, - for stdin"},
	}
}

// NewCommand builds the confluence command tree.
func NewCommand() *cli.Command {
	page := &cli.Command{
		Name:  "page",
		Usage: "work with pages",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "get a page with its body",
				ArgsUsage: "PAGE-ID",
				Action:    GetPage,
			},
			{
				Name:      "children",
				Usage:     "list child pages",
				ArgsUsage: "PAGE-ID",
				Flags:     []cli.Flag{limitFlag()},
				Action:    Children,
			},
			{
				Name:  "create",
				Usage: "create a page",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "space", Usage: "space key", Required: true},
					&cli.StringFlag{Name: "title", Usage: "page title", Required: true},
					&cli.StringFlag{Name: "parent", Usage: "parent page id"},
				}, bodyFlags()...),
				Action: CreatePage,
			},
			{
				Name:      "update",
				Usage:     "replace the title or body of a page",
				ArgsUsage: "PAGE-ID",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "new title, defaults to the current one"},
					&cli.StringFlag{Name: "message", Usage: "version comment"},
				}, bodyFlags()...),
				Action: UpdatePage,
			},
		},
	}

	flags := append(commands.OutputFlags(), commands.GlobalFlags()...)

	return &cli.Command{
		Name:   "confluence",
		Usage:  "interact with the content service",
		Flags:  flags,
		Before: commands.GlobalBefore,
		Commands: []*cli.Command{
			page,
			{
				Name:      "search",
				Usage:     "search content with CQL",
				ArgsUsage: "CQL",
				Flags:     []cli.Flag{limitFlag()},
				Action:    Search,
			},
			{
				Name:   "spaces",
				Usage:  "list spaces",
				Flags:  []cli.Flag{limitFlag()},
				Action: ListSpaces,
			},
			{
				Name:      "comment",
				Usage:     "add a comment to a page",
				ArgsUsage: "PAGE-ID BODY",
				Action:    AddComment,
			},
		},
	}
}

func init() {
	common.RegisterCommand(NewCommand())
}
