package cmd

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/zkwire/zkwire/pkg/dataconn"
)

func ServeFakeCmd() cli.Command {
	return cli.Command{
		Name:  "serve-fake",
		Usage: "Serve an in-memory read-only tree over the wire protocol, for testing clients",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "listen",
				Value: "localhost:2181",
			},
			cli.StringSliceFlag{
				Name:  "node",
				Usage: "A node to serve, as <path>=<data>. Can be repeated.",
			},
		},
		Action: func(c *cli.Context) {
			if err := serveFake(c); err != nil {
				logrus.WithError(err).Fatalf("Error running serve-fake command")
			}
		},
	}
}

// parseNodes turns <path>=<data> arguments into a tree.
func parseNodes(nodes []string) (*dataconn.TreeHandler, error) {
	tree := dataconn.NewTreeHandler()
	for _, node := range nodes {
		parts := strings.SplitN(node, "=", 2)
		path := parts[0]
		if !strings.HasPrefix(path, "/") || (len(path) > 1 && strings.HasSuffix(path, "/")) {
			return nil, fmt.Errorf("invalid node %q, expect <path>=<data>", node)
		}
		var data []byte
		if len(parts) == 2 {
			data = []byte(parts[1])
		}
		tree.Set(path, data)
	}
	return tree, nil
}

func serveFake(c *cli.Context) error {
	tree, err := parseNodes(c.StringSlice("node"))
	if err != nil {
		return err
	}

	listen := c.String("listen")
	l, err := net.Listen("tcp", listen)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %v", listen)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		logrus.Infof("Received signal %v, shutting down", sig)
		l.Close()
	}()

	logrus.Infof("Serving fake tree on %v", l.Addr())
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return errors.Wrap(err, "failed to accept connection")
		}

		go func(conn net.Conn) {
			log := logrus.WithField("remote", conn.RemoteAddr().String())
			log.Debug("Accepted connection")
			if err := dataconn.NewServer(conn, tree).Handle(); err != nil {
				log.WithError(err).Warn("Connection ended with error")
				return
			}
			log.Debug("Connection ended")
		}(conn)
	}
}
