package network

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/ekristen/atlas/pkg/commands"
	"github.com/ekristen/atlas/pkg/common"
	"github.com/ekristen/atlas/pkg/netconfig"
)

// Report is what the command prints.
type Report struct {
	Service            string `json:"service" yaml:"service"`
	Target             string `json:"target" yaml:"target"`
	Strategy           string `json:"strategy" yaml:"strategy"`
	Proxy              string `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	HTTPProxy          string `json:"http_proxy,omitempty" yaml:"http_proxy,omitempty"`
	HTTPSProxy         string `json:"https_proxy,omitempty" yaml:"https_proxy,omitempty"`
	NoProxy            string `json:"no_proxy,omitempty" yaml:"no_proxy,omitempty"`
	SSLVerify          bool   `json:"ssl_verify" yaml:"ssl_verify"`
	DisableNativeProxy bool   `json:"disable_native_proxy" yaml:"disable_native_proxy"`
}

// NewReport resolves the configuration for service and target and describes
// it.
func NewReport(service, target string, lookup netconfig.LookupFunc) *Report {
	settings := netconfig.ReadSettings(service, lookup, true)
	cfg := netconfig.Select(settings, target)

	return &Report{
		Service:            service,
		Target:             target,
		Strategy:           cfg.Strategy.String(),
		Proxy:              cfg.TargetProxy(target).String(),
		HTTPProxy:          cfg.HTTPProxy.String(),
		HTTPSProxy:         cfg.HTTPSProxy.String(),
		NoProxy:            settings.NoProxy,
		SSLVerify:          !cfg.InsecureSkipVerify,
		DisableNativeProxy: cfg.DisableNativeProxy,
	}
}

func Execute(_ context.Context, cmd *cli.Command) error {
	service := cmd.String("service")

	target := cmd.Args().First()
	if target == "" {
		target = os.Getenv(netconfig.Prefix(service) + "URL")
	}
	if target == "" {
		return fmt.Errorf("no target url given and %sURL is not set", netconfig.Prefix(service))
	}

	return commands.Print(cmd, NewReport(service, target, os.LookupEnv))
}

func init() {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "service",
			Usage:   "service whose scoped variables apply (jira, confluence, atlassian)",
			Aliases: []string{"s"},
			Value:   "jira",
		},
	}

	cmd := &cli.Command{
		Name:      "network",
		Usage:     "show how outbound connections to a url are routed",
		ArgsUsage: "[URL]",
		Flags:     append(append(flags, commands.OutputFlags()...), commands.GlobalFlags()...),
		Before:    commands.GlobalBefore,
		Action:    Execute,
	}

	common.RegisterCommand(cmd)
}
