package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

func main() {
	root := &cli.Command{
		Name:  "mindchat",
		Usage: "Talk to the chatbot about your feelings or mental health from a terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log",
				Usage: "Log level: debug, info, warn, error",
				Value: "error",
			},
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Therapy mode (general, cbt, mindfulness, anxiety, depression, stress)",
				Value:   "general",
			},
			&cli.StringFlag{
				Name:    "transcript",
				Aliases: []string{"o"},
				Usage:   "Write the conversation as HTML to this file on exit",
			},
			&cli.IntFlag{
				Name:  "width",
				Usage: "Wrap messages at this many columns (0 disables wrapping)",
				Value: 80,
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level, err := log.ParseLevel(cmd.String("log"))
			if err != nil {
				return ctx, err
			}
			log.SetLevel(level)
			return ctx, nil
		},
		Action: chatAction,
		Commands: []*cli.Command{
			modesCmd(),
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
