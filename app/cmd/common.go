package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/zkwire/zkwire/pkg/client"
	"github.com/zkwire/zkwire/pkg/config"
	"github.com/zkwire/zkwire/pkg/dataconn"
)

// getConfig loads --config when given and applies the global flags on top.
func getConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.GlobalString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}
	if c.GlobalIsSet("server") {
		cfg.Server = c.GlobalString("server")
	}
	if c.GlobalIsSet("timeout") {
		cfg.RequestTimeout = c.GlobalDuration("timeout")
	}
	if c.GlobalIsSet("session-timeout") {
		cfg.SessionTimeout = c.GlobalDuration("session-timeout")
	}
	if c.GlobalBool("read-only") {
		cfg.ReadOnly = true
	}
	return cfg, cfg.Validate()
}

var cliMetrics *dataconn.Metrics

// getMetrics serves the engine metrics on --metrics-listen, when set.
func getMetrics(c *cli.Context) *dataconn.Metrics {
	listen := c.GlobalString("metrics-listen")
	if listen == "" {
		return nil
	}
	if cliMetrics != nil {
		return cliMetrics
	}
	cliMetrics = dataconn.NewMetrics(prometheus.DefaultRegisterer)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(listen, mux); err != nil {
			logrus.WithError(err).Warnf("Failed to serve metrics on %v", listen)
		}
	}()
	return cliMetrics
}

func dialServer(c *cli.Context) (*client.Conn, config.Config, error) {
	cfg, err := getConfig(c)
	if err != nil {
		return nil, config.Config{}, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	conn, err := client.Dial(ctx, cfg, getMetrics(c))
	if err != nil {
		return nil, config.Config{}, errors.Wrapf(err, "failed to connect to %v", cfg.Server)
	}
	return conn, cfg, nil
}

func requestContext(cfg config.Config) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), cfg.RequestTimeout)
}

func getPath(c *cli.Context) (string, error) {
	if c.NArg() == 0 {
		return "", errors.New("node path is required")
	}
	path := c.Args()[0]
	if path == "" {
		return "", errors.New("missing parameter for node path")
	}
	if !strings.HasPrefix(path, "/") {
		return "", fmt.Errorf("invalid node path %q, it must start with /", path)
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		return "", fmt.Errorf("invalid node path %q, it must not end with /", path)
	}
	return path, nil
}

func printJSON(v interface{}) error {
	output, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return err
	}
	fmt.Println(string(output))
	return nil
}
