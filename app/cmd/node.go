package cmd

import (
	"fmt"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/zkwire/zkwire/pkg/proto"
)

var watchFlag = cli.BoolFlag{
	Name:  "watch,w",
	Usage: "Leave a watch on the node and print the first event it fires",
}

func GetCmd() cli.Command {
	return cli.Command{
		Name:      "get",
		Usage:     "Print the data and stat of a node",
		ArgsUsage: "<path>",
		Flags:     []cli.Flag{watchFlag},
		Action: func(c *cli.Context) {
			if err := getNode(c); err != nil {
				logrus.WithError(err).Fatalf("Error running get command")
			}
		},
	}
}

type NodeOutput struct {
	Path string     `json:"path"`
	Data string     `json:"data,omitempty"`
	Raw  []byte     `json:"raw,omitempty"`
	Stat proto.Stat `json:"stat"`
}

func getNode(c *cli.Context) error {
	path, err := getPath(c)
	if err != nil {
		return err
	}

	conn, cfg, err := dialServer(c)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := requestContext(cfg)
	defer cancel()
	resp, err := conn.GetData(ctx, path, c.Bool("watch"))
	if err != nil {
		return err
	}

	output := NodeOutput{Path: path, Stat: resp.Stat}
	if utf8.Valid(resp.Data) {
		output.Data = string(resp.Data)
	} else {
		output.Raw = resp.Data
	}
	if err := printJSON(output); err != nil {
		return err
	}
	if c.Bool("watch") {
		return waitForEvent(conn.Notifications())
	}
	return nil
}

func LsCmd() cli.Command {
	return cli.Command{
		Name:      "ls",
		Usage:     "List the children of a node",
		ArgsUsage: "<path>",
		Flags:     []cli.Flag{watchFlag},
		Action: func(c *cli.Context) {
			if err := lsNode(c); err != nil {
				logrus.WithError(err).Fatalf("Error running ls command")
			}
		},
	}
}

func lsNode(c *cli.Context) error {
	path, err := getPath(c)
	if err != nil {
		return err
	}

	conn, cfg, err := dialServer(c)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := requestContext(cfg)
	defer cancel()
	children, err := conn.Children(ctx, path, c.Bool("watch"))
	if err != nil {
		return err
	}
	for _, child := range children {
		fmt.Println(child)
	}
	if c.Bool("watch") {
		return waitForEvent(conn.Notifications())
	}
	return nil
}

func StatCmd() cli.Command {
	return cli.Command{
		Name:      "stat",
		Usage:     "Print the stat of a node",
		ArgsUsage: "<path>",
		Flags:     []cli.Flag{watchFlag},
		Action: func(c *cli.Context) {
			if err := statNode(c); err != nil {
				logrus.WithError(err).Fatalf("Error running stat command")
			}
		},
	}
}

func statNode(c *cli.Context) error {
	path, err := getPath(c)
	if err != nil {
		return err
	}

	conn, cfg, err := dialServer(c)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := requestContext(cfg)
	defer cancel()
	stat, err := conn.Exists(ctx, path, c.Bool("watch"))
	if err != nil {
		return err
	}
	if err := printJSON(stat); err != nil {
		return err
	}
	if c.Bool("watch") {
		return waitForEvent(conn.Notifications())
	}
	return nil
}

type EventOutput struct {
	Type  string `json:"type"`
	State string `json:"state"`
	Path  string `json:"path"`
}

func waitForEvent(events <-chan proto.WatcherEvent) error {
	ev, ok := <-events
	if !ok {
		return fmt.Errorf("connection closed before the watch fired")
	}
	return printJSON(EventOutput{
		Type:  ev.Type.String(),
		State: ev.State.String(),
		Path:  ev.Path,
	})
}
