package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/m-mizutani/courseguide/pkg/model"
	"github.com/m-mizutani/courseguide/pkg/usecase/chat"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func askCommand() *cli.Command {
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
		Name:      "ask",
		Usage:     "Ask one question and print the answer",
		ArgsUsage: "<question>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx, os.Stderr)

			question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if question == "" {
				return goerr.Wrap(model.ErrEmptyMessage, "question is required")
			}

			chatModel, err := cfg.newChatModel(ctx)
			if err != nil {
				return err
			}
			rt, err := cfg.newRuntime(ctx, chatModel)
			if err != nil {
				return err
			}

			out, err := rt.chat.Converse(ctx, chat.ConverseInput{
				Text:           question,
				ConversationID: model.ConversationID(conversationID),
			})
			if err != nil {
				return goerr.Wrap(err, "failed to ask", goerr.V("kind", model.Classify(err).String()))
			}

			fmt.Fprintf(c.Root().Writer, "%s\n\nconversation: %s\n", out.Answer, out.ConversationID)
			return nil
		},
	}
}
