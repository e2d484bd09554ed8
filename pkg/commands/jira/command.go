package jira

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/ekristen/atlas/pkg/commands"
	"github.com/ekristen/atlas/pkg/common"
	"github.com/ekristen/atlas/pkg/config"
	"github.com/ekristen/atlas/pkg/jira"
)

func newClient(ctx context.Context) (*jira.Client, error) {
	api, err := commands.NewAPIClient(ctx, config.ServiceJira)
	if err != nil {
		return nil, err
	}
	return jira.New(api), nil
}

func requireArgs(cmd *cli.Command, n int, usage string) error {
	if cmd.Args().Len() != n {
		return fmt.Errorf("expected %d argument(s): %s", n, usage)
	}
	return nil
}

func splitFields(v string) []string {
	var out []string
	for _, f := range strings.Split(v, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func GetIssue(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 1, "ISSUE-KEY"); err != nil {
		return err
	}

	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	issue, err := client.GetIssue(ctx, cmd.Args().First(), splitFields(cmd.String("fields")))
	if err != nil {
		return err
	}

	return commands.Print(cmd, issue)
}

func Search(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 1, "JQL"); err != nil {
		return err
	}

	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	res, err := client.Search(ctx, cmd.Args().First(), jira.SearchOptions{
		Fields:     splitFields(cmd.String("fields")),
		StartAt:    int(cmd.Int("start")),
		MaxResults: int(cmd.Int("limit")),
	})
	if err != nil {
		return err
	}

	return commands.Print(cmd, res)
}

func CreateIssue(ctx context.Context, cmd *cli.Command) error {
	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	fields, err := parseFieldValues(cmd.StringSlice("field"))
	if err != nil {
		return err
	}

	issue, err := client.CreateIssue(ctx, jira.CreateIssueInput{
		ProjectKey:  cmd.String("project"),
		Summary:     cmd.String("summary"),
		IssueType:   cmd.String("type"),
		Description: cmd.String("description"),
		Priority:    cmd.String("priority"),
		Assignee:    cmd.String("assignee"),
		Labels:      cmd.StringSlice("label"),
		Fields:      fields,
	})
	if err != nil {
		return err
	}

	return commands.Print(cmd, map[string]string{
		"id":  issue.ID,
		"key": issue.Key,
		"url": client.BrowseURL(issue.Key),
	})
}

func UpdateIssue(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 1, "ISSUE-KEY"); err != nil {
		return err
	}

	fields, err := parseFieldValues(cmd.StringSlice("field"))
	if err != nil {
		return err
	}
	if fields == nil {
		fields = map[string]interface{}{}
	}
	if cmd.IsSet("summary") {
		fields["summary"] = cmd.String("summary")
	}
	if cmd.IsSet("description") {
		fields["description"] = cmd.String("description")
	}

	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	return client.UpdateIssue(ctx, cmd.Args().First(), fields)
}

func AddComment(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 2, "ISSUE-KEY BODY"); err != nil {
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

func ListTransitions(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 1, "ISSUE-KEY"); err != nil {
		return err
	}

	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	transitions, err := client.GetTransitions(ctx, cmd.Args().First())
	if err != nil {
		return err
	}

	return commands.Print(cmd, transitions)
}

func Transition(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 2, "ISSUE-KEY TRANSITION"); err != nil {
		return err
	}

	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	return client.TransitionIssue(ctx, cmd.Args().Get(0), cmd.Args().Get(1))
}

func ListProjects(ctx context.Context, cmd *cli.Command) error {
	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	projects, err := client.ListProjects(ctx)
	if err != nil {
		return err
	}

	return commands.Print(cmd, projects)
}

func Info(ctx context.Context, cmd *cli.Command) error {
	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	info, err := client.ServerInfo(ctx)
	if err != nil {
		return err
	}

	out := map[string]interface{}{
		"title":      info.ServerTitle,
		"version":    info.Version,
		"deployment": info.DeploymentType,
		"base_url":   info.BaseURL,
	}
	if v, err := info.SemVer(); err == nil {
		out["major"] = v.Major()
		out["minor"] = v.Minor()
	}

	return commands.Print(cmd, out)
}

// parseFieldValues turns key=value pairs into a fields map.
func parseFieldValues(pairs []string) (map[string]interface{}, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	fields := make(map[string]interface{}, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid field %q, expected key=value", p)
		}
		fields[strings.TrimSpace(k)] = v
	}

	return fields, nil
}

func init() {
	fieldsFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:  "fields",
			Usage: "comma separated list of fields to return",
		}
	}

	issue := &cli.Command{
		Name:  "issue",
		Usage: "work with issues",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "get an issue",
				ArgsUsage: "ISSUE-KEY",
				Flags:     []cli.Flag{fieldsFlag()},
				Action:    GetIssue,
			},
			{
				Name:      "search",
				Usage:     "search issues with JQL",
				ArgsUsage: "JQL",
				Flags: []cli.Flag{
					fieldsFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "maximum number of issues (1-100)",
						Value: jira.DefaultMaxResults,
					},
					&cli.IntFlag{
						Name:  "start",
						Usage: "index of the first issue",
					},
				},
				Action: Search,
			},
			{
				Name:  "create",
				Usage: "create an issue",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "project", Usage: "project key", Required: true},
					&cli.StringFlag{Name: "summary", Usage: "issue summary", Required: true},
					&cli.StringFlag{Name: "type", Usage: "issue type", Value: jira.DefaultIssueType},
					&cli.StringFlag{Name: "description", Usage: "issue description"},
					&cli.StringFlag{Name: "priority", Usage: "priority name"},
					&cli.StringFlag{Name: "assignee", Usage: "account id (cloud) or username (server)"},
					&cli.StringSliceFlag{Name: "label", Usage: "label, may be repeated"},
					&cli.StringSliceFlag{Name: "field", Usage: "additional field as key=value, may be repeated"},
				},
				Action: CreateIssue,
			},
			{
				Name:      "update",
				Usage:     "update issue fields",
				ArgsUsage: "ISSUE-KEY",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "summary", Usage: "new summary"},
					&cli.StringFlag{Name: "description", Usage: "new description"},
					&cli.StringSliceFlag{Name: "field", Usage: "field as key=value, may be repeated"},
				},
				Action: UpdateIssue,
			},
			{
				Name:      "comment",
				Usage:     "add a comment to an issue",
				ArgsUsage: "ISSUE-KEY BODY",
				Action:    AddComment,
			},
			{
				Name:      "transitions",
				Usage:     "list the transitions available for an issue",
				ArgsUsage: "ISSUE-KEY",
				Action:    ListTransitions,
			},
			{
				Name:      "transition",
				Usage:     "transition an issue by id or name",
				ArgsUsage: "ISSUE-KEY TRANSITION",
				Action:    Transition,
			},
		},
	}

	flags := append(commands.OutputFlags(), commands.GlobalFlags()...)

	cmd := &cli.Command{
		Name:   "jira",
		Usage:  "interact with the issue tracker",
		Flags:  flags,
		Before: commands.GlobalBefore,
		Commands: []*cli.Command{
			issue,
			{
				Name:   "projects",
				Usage:  "list projects",
				Action: ListProjects,
			},
			{
				Name:   "info",
				Usage:  "show server information",
				Action: Info,
			},
		},
	}

	common.RegisterCommand(cmd)
}
