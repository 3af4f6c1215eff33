// Command video-transcriber-mcp is an MCP server that transcribes videos
// from URLs or local files with whisper.cpp.
//
//	video-transcriber-mcp                       # stdio, for desktop MCP clients
//	video-transcriber-mcp --transport http --port 8080
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/kbukum/video-transcriber-mcp/bootstrap"
	"github.com/kbukum/video-transcriber-mcp/config"
	"github.com/kbukum/video-transcriber-mcp/version"
)

// flagKeys maps flags onto the config tree. --config only picks the file.
var flagKeys = map[string]string{
	"transport":  "transport",
	"host":       "server.host",
	"port":       "server.port",
	"output-dir": "output.dir",
	"models-dir": "models.dir",
	"log-level":  "logging.level",
	"config":     "",
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", version.Name, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := newFlagSet()
	if err := flags.Parse(args); err != nil {
		if stderrors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if show, _ := flags.GetBool("version"); show {
		fmt.Println(version.GetFullVersion())
		return nil
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	svc, err := wire(ctx, app)
	if err != nil {
		return err
	}

	if cfg.Transport == TransportHTTP {
		return app.Run(ctx)
	}
	return app.RunTask(ctx, svc.serveStdio)
}

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet(version.Name, pflag.ContinueOnError)
	flags.String("transport", TransportStdio, "transport to serve: stdio or http")
	flags.String("host", "127.0.0.1", "HTTP listen host")
	flags.Int("port", 8080, "HTTP listen port")
	flags.String("config", "", "path to config.yml")
	flags.String("output-dir", "", "directory transcripts are written to")
	flags.String("models-dir", "", "directory whisper models are stored in")
	flags.String("log-level", "", "log level: trace, debug, info, warn or error")
	flags.BoolP("version", "v", false, "print version and exit")
	flags.SetOutput(os.Stderr)
	return flags
}

func loadConfig(flags *pflag.FlagSet) (*Config, error) {
	opts := []config.LoaderOption{
		config.WithDefaults(defaultConfig),
		config.WithFlags(flags, flagKeys),
	}
	if path, _ := flags.GetString("config"); path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}

	cfg := &Config{}
	if err := config.LoadConfig(version.Name, cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}
