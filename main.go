package main

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/zkwire/zkwire/app/cmd"
	"github.com/zkwire/zkwire/pkg/meta"
)

func main() {
	a := cli.NewApp()
	a.Name = "zkwire"
	a.Usage = "Talk to ZooKeeper servers over a pipelined wire protocol session"
	a.Version = meta.Version
	a.Before = func(c *cli.Context) error {
		if c.GlobalBool("debug") {
			logrus.SetLevel(logrus.DebugLevel)
		}
		return nil
	}
	a.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "server,s",
			Value:  "localhost:2181",
			EnvVar: "ZKWIRE_SERVER",
		},
		cli.StringFlag{
			Name:  "config,c",
			Usage: "A TOML file with connection settings. Flags override it.",
		},
		cli.DurationFlag{
			Name:  "timeout",
			Value: 10 * time.Second,
			Usage: "Timeout for dialing and for each request",
		},
		cli.DurationFlag{
			Name:  "session-timeout",
			Value: 30 * time.Second,
		},
		cli.BoolFlag{
			Name:  "read-only",
			Usage: "Allow the session to be served by a read-only server",
		},
		cli.StringFlag{
			Name:  "metrics-listen",
			Usage: "Serve Prometheus metrics on this address while the command runs",
		},
		cli.BoolFlag{
			Name: "debug",
		},
	}
	a.Commands = []cli.Command{
		cmd.HandshakeCmd(),
		cmd.PingCmd(),
		cmd.GetCmd(),
		cmd.LsCmd(),
		cmd.StatCmd(),
		cmd.BenchmarkCmd(),
		cmd.ServeFakeCmd(),
		cmd.VersionCmd(),
	}
	if err := a.Run(os.Args); err != nil {
		logrus.Fatal("Error when executing command: ", err)
	}
}
