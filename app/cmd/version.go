package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/zkwire/zkwire/pkg/meta"
)

func VersionCmd() cli.Command {
	return cli.Command{
		Name: "version",
		Action: func(c *cli.Context) {
			if err := printJSON(meta.GetVersion()); err != nil {
				logrus.WithError(err).Fatalf("Error running version command")
			}
		},
	}
}
