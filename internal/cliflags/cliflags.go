// Package cliflags implements the solver tools' shared `--key=value`
// flag surface: a manual mode (--phase --start --end) and an automatic
// mode (--phase --user --machine [--host] [--port]), exactly one of
// which must be fully supplied per invocation. It wraps urfave/cli for
// the app shell (name, usage banner, exit-code plumbing) but validates
// the flag-group contract itself, since the behavior the specification
// demands — reject duplicate keys, reject leftover positional
// arguments, require a complete group rather than any subset — isn't
// something the library's flag.FlagSet-based parser enforces on its
// own.
package cliflags

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli"
)

// DefaultHost and DefaultPort are the automatic-mode coordinator
// defaults used when --host/--port are omitted.
const (
	DefaultHost = "styx.verver.ch"
	DefaultPort = 7429
)

// Manual holds the flags for a manual-mode invocation: process chunks
// [Start, End) of Phase locally, without contacting a coordinator.
type Manual struct {
	Phase int
	Start int64
	End   int64
}

// Automatic holds the flags for an automatic-mode invocation: fetch
// work for Phase from the coordinator at Host:Port, identified as
// User/Machine.
type Automatic struct {
	Phase   int
	User    string
	Machine string
	Host    string
	Port    int
}

// Parse validates args, the tool's raw `--key=value` tokens (as
// returned by a cli.Context's Args(), or os.Args[1:]), against the
// manual/automatic flag-group contract. Exactly one of manual or
// automatic is non-nil on success.
func Parse(args []string) (manual *Manual, automatic *Automatic, err error) {
	values, positional, err := splitArgs(args)
	if err != nil {
		return nil, nil, err
	}
	if len(positional) > 0 {
		return nil, nil, fmt.Errorf("cliflags: unexpected positional arguments: %v", positional)
	}

	_, hasStart := values["start"]
	_, hasEnd := values["end"]
	_, hasUser := values["user"]
	_, hasMachine := values["machine"]
	manualGroup := hasStart || hasEnd
	autoGroup := hasUser || hasMachine

	switch {
	case manualGroup && autoGroup:
		return nil, nil, fmt.Errorf("cliflags: --start/--end and --user/--machine are mutually exclusive")
	case manualGroup:
		m, err := parseManual(values)
		if err != nil {
			return nil, nil, err
		}
		return m, nil, nil
	case autoGroup:
		a, err := parseAutomatic(values)
		if err != nil {
			return nil, nil, err
		}
		return nil, a, nil
	default:
		return nil, nil, fmt.Errorf("cliflags: neither manual (--phase --start --end) nor automatic (--phase --user --machine) flags were supplied")
	}
}

func splitArgs(args []string) (values map[string]string, positional []string, err error) {
	values = make(map[string]string)
	for _, a := range args {
		if !strings.HasPrefix(a, "--") {
			positional = append(positional, a)
			continue
		}
		key, val, ok := splitFlag(a)
		if !ok {
			return nil, nil, fmt.Errorf("cliflags: malformed flag %q, want --key=value", a)
		}
		if _, dup := values[key]; dup {
			return nil, nil, fmt.Errorf("cliflags: duplicate flag --%s", key)
		}
		values[key] = val
	}
	return values, positional, nil
}

func splitFlag(a string) (key, val string, ok bool) {
	a = strings.TrimPrefix(a, "--")
	i := strings.IndexByte(a, '=')
	if i < 0 {
		return "", "", false
	}
	return a[:i], a[i+1:], true
}

func parseManual(values map[string]string) (*Manual, error) {
	phase, err := requireInt(values, "phase")
	if err != nil {
		return nil, err
	}
	start, err := requireInt64(values, "start")
	if err != nil {
		return nil, err
	}
	end, err := requireInt64(values, "end")
	if err != nil {
		return nil, err
	}
	if end <= start {
		return nil, fmt.Errorf("cliflags: --end (%d) must be greater than --start (%d)", end, start)
	}
	return &Manual{Phase: phase, Start: start, End: end}, nil
}

func parseAutomatic(values map[string]string) (*Automatic, error) {
	phase, err := requireInt(values, "phase")
	if err != nil {
		return nil, err
	}
	user, err := requireString(values, "user")
	if err != nil {
		return nil, err
	}
	machine, err := requireString(values, "machine")
	if err != nil {
		return nil, err
	}
	host := DefaultHost
	if v, ok := values["host"]; ok {
		host = v
	}
	port := DefaultPort
	if v, ok := values["port"]; ok {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("cliflags: --port: %v", err)
		}
		port = p
	}
	return &Automatic{Phase: phase, User: user, Machine: machine, Host: host, Port: port}, nil
}

func requireString(values map[string]string, key string) (string, error) {
	v, ok := values[key]
	if !ok {
		return "", fmt.Errorf("cliflags: missing required flag --%s", key)
	}
	return v, nil
}

func requireInt(values map[string]string, key string) (int, error) {
	s, err := requireString(values, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("cliflags: --%s: %v", key, err)
	}
	return n, nil
}

func requireInt64(values map[string]string, key string) (int64, error) {
	s, err := requireString(values, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cliflags: --%s: %v", key, err)
	}
	return n, nil
}

// Usage returns the two-line usage synopsis printed to stderr on a
// config/argument error.
func Usage(toolName string) string {
	return fmt.Sprintf(
		"usage: %s --phase=N --start=C1 --end=C2\n       %s --phase=N --user=<id> --machine=<id> [--host=%s] [--port=%d]",
		toolName, toolName, DefaultHost, DefaultPort)
}

// App builds a minimal urfave/cli shell around a solver tool: no
// cli.Flag definitions (Parse handles that), just the name/usage
// banner and exit-code plumbing cli.Run already knows how to do.
func App(name, usage string, action func(args []string) error) *cli.App {
	app := cli.NewApp()
	app.Name = name
	app.Usage = usage
	app.Action = func(c *cli.Context) error {
		if err := action(c.Args()); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		return nil
	}
	return app
}
