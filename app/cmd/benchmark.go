package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"gopkg.in/cheggaaa/pb.v2"

	"github.com/zkwire/zkwire/pkg/client"
	"github.com/zkwire/zkwire/pkg/util"
)

func BenchmarkCmd() cli.Command {
	return cli.Command{
		Name: "bench",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "bench-type,b",
				Value: "ping-iops",
				Usage: "The type can be <ping>/<exists>/<get>-<iops>/<latency>. For example, get-latency.",
			},
			cli.IntFlag{
				Name:  "thread,t",
				Value: 1,
				Usage: "The concurrent thread count. For latency related benchmarks, this value will be forcibly set to 1.",
			},
			cli.IntFlag{
				Name:  "count,n",
				Value: 10000,
				Usage: "The number of requests. If there are multi-thread enabled, the requests are evenly split between threads.",
			},
			cli.StringFlag{
				Name:  "path",
				Value: "/",
				Usage: "The node read by exists and get benchmarks",
			},
			cli.BoolFlag{
				Name:  "quiet,q",
				Usage: "Do not show a progress bar",
			},
		},
		Usage: "Benchmark request throughput or latency over a single pipelined session",
		Action: func(c *cli.Context) {
			if err := bench(c); err != nil {
				logrus.WithError(err).Fatalf("Error running bench command")
			}
		},
	}
}

func bench(c *cli.Context) error {
	benchType := c.String("bench-type")
	threadCnt := c.Int("thread")
	count := c.Int("count")
	path := c.String("path")

	if count <= 0 {
		return fmt.Errorf("invalid request count %d", count)
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("invalid node path %q, it must start with /", path)
	}

	conn, cfg, err := dialServer(c)
	if err != nil {
		return err
	}
	defer conn.Close()

	do := func() error {
		ctx, cancel := requestContext(cfg)
		defer cancel()
		return benchRequest(ctx, conn, benchType, path)
	}

	var tick func()
	if !c.Bool("quiet") {
		bar := pb.StartNew(count)
		defer bar.Finish()
		tick = func() { bar.Increment() }
	}

	output, err := util.Bench(benchType, threadCnt, count, do, tick)
	if err != nil {
		return err
	}

	fmt.Println(output)
	return nil
}

func benchRequest(ctx context.Context, conn *client.Conn, benchType, path string) error {
	switch {
	case strings.HasPrefix(benchType, "exists-"):
		_, err := conn.Exists(ctx, path, false)
		return err
	case strings.HasPrefix(benchType, "get-"):
		_, err := conn.GetData(ctx, path, false)
		return err
	default:
		return conn.Ping(ctx)
	}
}
