package cmd

import (
	"flag"
	"testing"

	"github.com/urfave/cli"
)

func newContext(t *testing.T, args ...string) *cli.Context {
	app := cli.NewApp()
	flagSet := flag.NewFlagSet("test", flag.ContinueOnError)
	if err := flagSet.Parse(args); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}
	return cli.NewContext(app, flagSet, nil)
}

func TestGetNodeWithNoArgs(t *testing.T) {
	err := getNode(newContext(t))
	if err == nil {
		t.Fatal("Expected an error when no arguments provided, but got nil")
	}

	expectedError := "node path is required"
	if err.Error() != expectedError {
		t.Fatalf("Expected error message '%s', but got '%s'", expectedError, err.Error())
	}
}

func TestLsNodeWithEmptyStringArg(t *testing.T) {
	err := lsNode(newContext(t, ""))
	if err == nil {
		t.Fatal("Expected an error when empty string argument provided, but got nil")
	}

	expectedError := "missing parameter for node path"
	if err.Error() != expectedError {
		t.Fatalf("Expected error message '%s', but got '%s'", expectedError, err.Error())
	}
}

func TestStatNodeWithRelativePath(t *testing.T) {
	err := statNode(newContext(t, "service/leader"))
	if err == nil {
		t.Fatal("Expected an error for a relative path, but got nil")
	}

	expectedError := `invalid node path "service/leader", it must start with /`
	if err.Error() != expectedError {
		t.Fatalf("Expected error message '%s', but got '%s'", expectedError, err.Error())
	}
}

func TestGetPathTrailingSlash(t *testing.T) {
	_, err := getPath(newContext(t, "/service/"))
	if err == nil {
		t.Fatal("Expected an error for a trailing slash, but got nil")
	}

	path, err := getPath(newContext(t, "/"))
	if err != nil {
		t.Fatalf("Expected the root path to be accepted, got %v", err)
	}
	if path != "/" {
		t.Fatalf("Expected path '/', but got '%s'", path)
	}
}

func TestBenchWithInvalidCount(t *testing.T) {
	app := cli.NewApp()
	flagSet := flag.NewFlagSet("test", flag.ContinueOnError)
	flagSet.Int("count", 0, "")
	flagSet.String("path", "/", "")
	ctx := cli.NewContext(app, flagSet, nil)

	err := bench(ctx)
	if err == nil {
		t.Fatal("Expected an error for a zero request count, but got nil")
	}

	expectedError := "invalid request count 0"
	if err.Error() != expectedError {
		t.Fatalf("Expected error message '%s', but got '%s'", expectedError, err.Error())
	}
}

func TestPingWithInvalidCount(t *testing.T) {
	app := cli.NewApp()
	flagSet := flag.NewFlagSet("test", flag.ContinueOnError)
	flagSet.Int("count", -1, "")
	ctx := cli.NewContext(app, flagSet, nil)

	err := ping(ctx)
	if err == nil {
		t.Fatal("Expected an error for a negative ping count, but got nil")
	}

	expectedError := "invalid ping count -1"
	if err.Error() != expectedError {
		t.Fatalf("Expected error message '%s', but got '%s'", expectedError, err.Error())
	}
}

func TestParseNodes(t *testing.T) {
	tree, err := parseNodes([]string{"/service/leader=node-1", "/service/members"})
	if err != nil {
		t.Fatalf("Failed to parse nodes: %v", err)
	}
	if tree == nil {
		t.Fatal("Expected a tree, but got nil")
	}

	_, err = parseNodes([]string{"service=node-1"})
	if err == nil {
		t.Fatal("Expected an error for a relative node path, but got nil")
	}
	expectedError := `invalid node "service=node-1", expect <path>=<data>`
	if err.Error() != expectedError {
		t.Fatalf("Expected error message '%s', but got '%s'", expectedError, err.Error())
	}
}
