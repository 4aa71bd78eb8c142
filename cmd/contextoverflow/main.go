package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "contextoverflow",
		Usage:   "Q&A knowledge base for coding agents",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Usage:   "Context Overflow server URL",
				Value:   "http://localhost:8000",
				EnvVars: []string{"CONTEXTOVERFLOW_BASE_URL"},
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output format: text, json or yaml",
				Value:   formatText,
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "JSON or YAML config file layered under the environment",
				EnvVars: []string{"CONTEXTOVERFLOW_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			mcpCommand(),
			askCommand(),
			answerCommand(),
			showCommand(),
			answersCommand(),
			questionsCommand(),
			searchCommand(),
			voteCommand(),
			statsCommand(),
			healthCommand(),
			toolsCommand(),
		},
	}
}
