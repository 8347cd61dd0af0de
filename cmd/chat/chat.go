package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/zhouzirui/mindchat/backend/internal/analysis/crisis"
	"github.com/zhouzirui/mindchat/backend/internal/config"
	"github.com/zhouzirui/mindchat/backend/internal/model/chat"
	"github.com/zhouzirui/mindchat/backend/internal/model/mode"
	htmlrender "github.com/zhouzirui/mindchat/backend/internal/render/html"
	"github.com/zhouzirui/mindchat/backend/internal/render/terminal"
	"github.com/zhouzirui/mindchat/backend/internal/service/assistant"
	"github.com/zhouzirui/mindchat/backend/internal/service/turn"
)

var styleCrisis = lipgloss.NewStyle().
	Foreground(lipgloss.AdaptiveColor{Light: "#b91c1c", Dark: "#f87171"}).
	Bold(true)

const crisisNotice = "It sounds like you are going through something very hard. If you are in danger, please contact your local emergency number or a crisis line right away."

func chatAction(ctx context.Context, cmd *cli.Command) error {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file loaded", "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	modes := mode.NewMemoryStore(mode.Seed())
	selected, ok := modes.FindByID(cmd.String("mode"))
	if !ok {
		return fmt.Errorf("unknown mode %q", cmd.String("mode"))
	}

	client, err := assistant.NewFromConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize assistant: %w", err)
	}
	processor := turn.NewProcessor(client, turn.WithTimeout(cfg.Assistant.Timeout)).WithPreamble(selected.Preamble)

	renderer := terminal.New()
	renderer.Width = int(cmd.Int("width"))

	fmt.Fprintf(os.Stdout, "%s mode. Type a message and press enter; Ctrl-D quits.\n\n", selected.Name)
	history := converse(ctx, processor, renderer, os.Stdin, os.Stdout)

	if path := cmd.String("transcript"); path != "" {
		if err := writeTranscript(path, history, selected); err != nil {
			return err
		}
		log.Info("transcript written", "path", path, "turns", history.Len())
	}
	return nil
}

// converse reads one message per line from in until EOF or cancellation and
// prints the assistant's answer to each.
func converse(ctx context.Context, processor *turn.Processor, renderer *terminal.Renderer, in io.Reader, out io.Writer) chat.History {
	history := chat.NewHistory()
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}
		if ctx.Err() != nil {
			break
		}

		text := scanner.Text()
		before := history.Len()
		history = processor.Submit(ctx, history, text)
		if history.Len() == before {
			continue
		}

		if assessment := crisis.Detect(text); assessment.Found {
			fmt.Fprintln(out, styleCrisis.Render(crisisNotice))
		}

		// The user's own line is already on screen.
		if err := renderer.RenderTurns(out, history.Since(before+1)); err != nil {
			log.Warn("render failed", "err", err)
		}
	}

	if err := scanner.Err(); err != nil {
		log.Warn("reading input failed", "err", err)
	}
	return history
}

func writeTranscript(path string, history chat.History, selected mode.Mode) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create transcript: %w", err)
	}
	defer f.Close()

	page := htmlrender.Page{Mode: selected}
	if err := htmlrender.New().RenderPage(f, history, page); err != nil {
		return fmt.Errorf("render transcript: %w", err)
	}
	return nil
}

func modesCmd() *cli.Command {
	return &cli.Command{
		Name:  "modes",
		Usage: "List the available therapy modes",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			store := mode.NewMemoryStore(mode.Seed())
			for _, m := range store.List() {
				fmt.Fprintf(os.Stdout, "%-12s %s\n", m.ID, strings.TrimSpace(m.Description))
			}
			return nil
		},
	}
}
