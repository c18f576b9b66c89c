package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/courseguide/pkg/model"
	"github.com/m-mizutani/courseguide/pkg/usecase/chat"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var (
		cfg            config
		conversationID string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "conversation-id",
			Aliases:     []string{"id"},
			Usage:       "Conversation ID to continue",
			Destination: &conversationID,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive console conversation",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx, os.Stderr)

			chatModel, err := cfg.newChatModel(ctx)
			if err != nil {
				return err
			}
			rt, err := cfg.newRuntime(ctx, chatModel)
			if err != nil {
				return err
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "> ",
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return goerr.Wrap(err, "failed to initialize readline")
			}
			defer rl.Close()

			w := c.Root().Writer
			fmt.Fprintf(w, "Chat session started. Type 'exit' to quit, '/new' to start a new conversation.\n")

			return runConsole(ctx, w, rl.Readline, rt.chat, model.ConversationID(conversationID))
		},
	}
}

// runConsole reads lines until EOF or "exit" and prints each answer. Failed
// exchanges are printed and the loop continues.
func runConsole(ctx context.Context, w io.Writer, readLine func() (string, error), svc *chat.Service, id model.ConversationID) error {
	for {
		line, err := readLine()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return goerr.Wrap(err, "failed to read input")
		}

		switch text := strings.TrimSpace(line); text {
		case "":
			continue
		case "exit", "/exit":
			return nil
		case "/new":
			id = ""
			fmt.Fprintf(w, "New conversation.\n")
			continue
		default:
			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
			sp.Suffix = " pensando..."
			sp.Start()
			out, err := svc.Converse(ctx, chat.ConverseInput{Text: text, ConversationID: id})
			sp.Stop()

			if err != nil {
				fmt.Fprintf(w, "[error: %s] %v\n\n", model.Classify(err), err)
				continue
			}

			id = out.ConversationID
			fmt.Fprintf(w, "%s\n\n", out.Answer)
		}
	}
}
