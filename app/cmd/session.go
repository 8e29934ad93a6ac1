package cmd

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

type SessionOutput struct {
	Server         string `json:"server"`
	SessionID      string `json:"sessionID"`
	SessionTimeout string `json:"sessionTimeout"`
	ReadOnly       bool   `json:"readOnly"`
	PasswdLength   int    `json:"passwdLength"`
}

func HandshakeCmd() cli.Command {
	return cli.Command{
		Name:  "handshake",
		Usage: "Open a session, print what the server negotiated and close it again",
		Action: func(c *cli.Context) {
			if err := handshake(c); err != nil {
				logrus.WithError(err).Fatalf("Error running handshake command")
			}
		},
	}
}

func handshake(c *cli.Context) error {
	conn, _, err := dialServer(c)
	if err != nil {
		return err
	}

	output := SessionOutput{
		Server:         conn.Addr(),
		SessionID:      fmt.Sprintf("0x%x", conn.SessionID()),
		SessionTimeout: conn.SessionTimeout().String(),
		ReadOnly:       conn.ReadOnly(),
		PasswdLength:   len(conn.SessionPasswd()),
	}
	if err := conn.Close(); err != nil {
		return err
	}
	return printJSON(output)
}

func PingCmd() cli.Command {
	return cli.Command{
		Name:  "ping",
		Usage: "Send pings over one session and print the round trip times",
		Flags: []cli.Flag{
			cli.IntFlag{
				Name:  "count,n",
				Value: 1,
			},
			cli.DurationFlag{
				Name:  "interval,i",
				Value: time.Second,
			},
		},
		Action: func(c *cli.Context) {
			if err := ping(c); err != nil {
				logrus.WithError(err).Fatalf("Error running ping command")
			}
		},
	}
}

func ping(c *cli.Context) error {
	count := c.Int("count")
	if count <= 0 {
		return fmt.Errorf("invalid ping count %d", count)
	}
	interval := c.Duration("interval")
	if interval < 0 {
		return fmt.Errorf("invalid ping interval %v", interval)
	}

	conn, cfg, err := dialServer(c)
	if err != nil {
		return err
	}
	defer conn.Close()

	for i := 0; i < count; i++ {
		if i > 0 {
			time.Sleep(interval)
		}
		ctx, cancel := requestContext(cfg)
		start := time.Now()
		err := conn.Ping(ctx)
		cancel()
		if err != nil {
			return err
		}
		fmt.Printf("ping %s seq=%d time=%v\n", conn.Addr(), i+1, time.Since(start))
	}
	return nil
}
