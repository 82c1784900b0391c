package mcp

import (
	"context"
	"fmt"

	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	librarysvc "github.com/alanyang/prompt-workshop/internal/service/library"
)

// RegisterPrompts exposes saved library cards as MCP native prompts so a
// client can pull a stored prompt straight into its conversation.
func RegisterPrompts(s *mcpserver.MCPServer, lib *librarysvc.Service) {
	s.AddPrompt(
		mcpmcp.NewPrompt("saved_prompt",
			mcpmcp.WithPromptDescription("Content of a prompt card saved in the library."),
			mcpmcp.WithArgument("id",
				mcpmcp.ArgumentDescription("Card id, as returned by search_library."),
				mcpmcp.RequiredArgument(),
			),
		),
		savedPromptHandler(lib),
	)
}

func savedPromptHandler(lib *librarysvc.Service) mcpserver.PromptHandlerFunc {
	return func(_ context.Context, req mcpmcp.GetPromptRequest) (*mcpmcp.GetPromptResult, error) {
		id := req.Params.Arguments["id"]
		c, ok := lib.Get(id)
		if !ok {
			return nil, fmt.Errorf("saved prompt %q not found", id)
		}

		return mcpmcp.NewGetPromptResult(
			fmt.Sprintf("%s [%s]", c.Title, c.Type),
			[]mcpmcp.PromptMessage{
				mcpmcp.NewPromptMessage(
					mcpmcp.RoleUser,
					mcpmcp.TextContent{
						Type: "text",
						Text: c.Content,
					},
				),
			},
		), nil
	}
}
