package setup

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// CLI implements the "setup" subcommand of the stdio server.
type CLI struct {
	out            io.Writer
	in             *bufio.Reader
	defaultDataDir string
	executable     func() (string, error)
}

// NewCLI creates a setup CLI writing to out and reading confirmations from in.
func NewCLI(out io.Writer, in io.Reader, defaultDataDir string) *CLI {
	return &CLI{
		out:            out,
		in:             bufio.NewReader(in),
		defaultDataDir: defaultDataDir,
		executable:     os.Executable,
	}
}

// Run executes the setup command named by args[0].
func (c *CLI) Run(args []string) error {
	if len(args) == 0 {
		c.showHelp()
		return nil
	}

	switch args[0] {
	case "install":
		return c.install(args[1:])
	case "status":
		return c.status(args[1:])
	case "help", "--help", "-h":
		c.showHelp()
		return nil
	default:
		c.showHelp()
		return fmt.Errorf("unknown setup command: %s", args[0])
	}
}

func (c *CLI) showHelp() {
	fmt.Fprint(c.out, `SCI-90 MCP server setup

Usage:
  mcp-server-lite setup <command> [options]

Commands:
  install   Register this binary with the desktop MCP client
  status    Show the current registration

Options:
  --config PATH     client configuration file (default: platform location)
  --binary PATH     server binary to register (install only, default: this executable)
  --data-dir DIR    data directory passed as SCI90_DATA_DIR (install only)
  --strict          reject incomplete answer sets (install only)
  -y                skip the confirmation prompt (install only)
`)
}

func (c *CLI) install(args []string) error {
	fs := flag.NewFlagSet("install", flag.ContinueOnError)
	fs.SetOutput(c.out)
	opts := Options{}
	var yes bool
	fs.StringVar(&opts.ConfigPath, "config", "", "client configuration file")
	fs.StringVar(&opts.BinaryPath, "binary", "", "server binary to register")
	fs.StringVar(&opts.DataDir, "data-dir", "", "data directory")
	fs.BoolVar(&opts.StrictAnswers, "strict", false, "reject incomplete answer sets")
	fs.BoolVar(&yes, "y", false, "skip confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if opts.BinaryPath == "" {
		exe, err := c.executable()
		if err != nil {
			return fmt.Errorf("locating executable: %w", err)
		}
		opts.BinaryPath = exe
	}
	if opts.ConfigPath == "" {
		path, err := DefaultClientConfigPath()
		if err != nil {
			return err
		}
		opts.ConfigPath = path
	}

	fmt.Fprintf(c.out, "Config file:   %s\n", opts.ConfigPath)
	fmt.Fprintf(c.out, "Server binary: %s\n", opts.BinaryPath)
	if opts.DataDir != "" {
		fmt.Fprintf(c.out, "Data dir:      %s\n", opts.DataDir)
	}

	if !yes {
		fmt.Fprint(c.out, "Proceed? [Y/n]: ")
		response, _ := c.in.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "" && response != "y" && response != "yes" {
			fmt.Fprintln(c.out, "Cancelled.")
			return nil
		}
	}

	path, err := Register(opts)
	if err != nil {
		return fmt.Errorf("registering server: %w", err)
	}

	fmt.Fprintf(c.out, "Registered %s in %s\n", ServerName, path)
	fmt.Fprintln(c.out, "Restart the client to load the new configuration.")
	return nil
}

func (c *CLI) status(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(c.out)
	configPath := fs.String("config", "", "client configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := *configPath
	if path == "" {
		var err error
		if path, err = DefaultClientConfigPath(); err != nil {
			return err
		}
	}

	status, err := GetStatus(path, c.defaultDataDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Config file: %s\n", status.ConfigPath)
	fmt.Fprintf(c.out, "Registered:  %t\n", status.Registered)
	if status.Registered {
		fmt.Fprintf(c.out, "Command:     %s\n", status.Command)
	}
	fmt.Fprintf(c.out, "Data dir:    %s\n", status.DataDir)
	for _, issue := range status.Issues {
		fmt.Fprintf(c.out, "  ! %s\n", issue)
	}
	return nil
}
