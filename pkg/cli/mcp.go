package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/courseguide/pkg/model"
	"github.com/m-mizutani/courseguide/pkg/usecase/chat"
	"github.com/m-mizutani/courseguide/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"
)

type recommendCoursesParams struct {
	Question       string `json:"question" jsonschema:"Training need or question about the course catalog"`
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"Conversation ID returned by a previous call, to ask a follow-up"`
}

func mcpCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the course assistant as an MCP tool over stdio",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			// stdout carries the protocol
			ctx = cfg.setupLogger(ctx, os.Stderr)

			chatModel, err := cfg.newChatModel(ctx)
			if err != nil {
				return err
			}
			rt, err := cfg.newRuntime(ctx, chatModel)
			if err != nil {
				return err
			}

			server := newMCPServer(rt.chat)
			logging.From(ctx).Info("mcp server started")
			if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
				return goerr.Wrap(err, "mcp server failed")
			}
			return nil
		},
	}
}

func newMCPServer(svc *chat.Service) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "courseguide",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "recommend_courses",
		Description: "Recommend training courses from the catalog for a question. Returns the answer in markdown and a conversation ID for follow-ups.",
	}, recommendCoursesHandler(svc))

	return server
}

func recommendCoursesHandler(svc *chat.Service) func(context.Context, *mcp.CallToolRequest, recommendCoursesParams) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, params recommendCoursesParams) (*mcp.CallToolResult, any, error) {
		out, err := svc.Converse(ctx, chat.ConverseInput{
			Text:           params.Question,
			ConversationID: model.ConversationID(params.ConversationID),
		})
		if err != nil {
			logging.From(ctx).Warn("recommend_courses failed", "error", err)
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{
					&mcp.TextContent{Text: model.Classify(err).String() + ": " + err.Error()},
				},
			}, nil, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: out.Answer},
				&mcp.TextContent{Text: "conversation_id: " + out.ConversationID.String()},
			},
		}, nil, nil
	}
}
