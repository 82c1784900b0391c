package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/alanyang/prompt-workshop/internal/domain/card"
	librarysvc "github.com/alanyang/prompt-workshop/internal/service/library"
	studiosvc "github.com/alanyang/prompt-workshop/internal/service/studio"
)

// RegisterTools registers all MCP tools on the server.
// [SRP] Tool registration only.
// [OCP] Add a new tool by adding a new AddTool call; server.go never changes.
func RegisterTools(s *mcpserver.MCPServer, studio *studiosvc.Service, lib *librarysvc.Service) {
	s.AddTool(mcpmcp.NewTool("generate_prompts",
		mcpmcp.WithDescription("Generate three prompt card variants for an idea. Replaces the current working set and returns the new cards."),
		mcpmcp.WithString("idea", mcpmcp.Required(), mcpmcp.Description("What the prompt should help with")),
		mcpmcp.WithString("topic", mcpmcp.Description("Optional topic keyword that scopes the idea")),
	), generateHandler(studio))

	s.AddTool(mcpmcp.NewTool("optimize_prompt",
		mcpmcp.WithDescription("Rewrite a card into a clearer, more structured prompt. Looks the id up in the working set first, then the library. The result is written back to both."),
		mcpmcp.WithString("id", mcpmcp.Required(), mcpmcp.Description("Card id")),
	), optimizeHandler(studio, lib))

	s.AddTool(mcpmcp.NewTool("refine_prompt",
		mcpmcp.WithDescription("Apply a free-text edit instruction to a card. Only the fields the instruction touches change."),
		mcpmcp.WithString("id", mcpmcp.Required(), mcpmcp.Description("Card id")),
		mcpmcp.WithString("instruction", mcpmcp.Required(), mcpmcp.Description("Edit instruction, e.g. \"make it shorter\"")),
	), refineHandler(studio, lib))

	s.AddTool(mcpmcp.NewTool("search_library",
		mcpmcp.WithDescription("List saved cards filtered by a case-insensitive search over title and content and by exact type. Returns the matching cards and the available types."),
		mcpmcp.WithString("q", mcpmcp.Description("Search text")),
		mcpmcp.WithString("type", mcpmcp.Description("Type filter; \"all\" or empty matches every type")),
		mcpmcp.WithString("order", mcpmcp.Description("desc (newest first, default) or asc")),
	), searchLibraryHandler(lib))

	s.AddTool(mcpmcp.NewTool("save_prompt",
		mcpmcp.WithDescription("Save a card from the current working set into the library. Saving an already saved card is a no-op."),
		mcpmcp.WithString("id", mcpmcp.Required(), mcpmcp.Description("Working-set card id")),
	), saveHandler(studio, lib))

	s.AddTool(mcpmcp.NewTool("delete_prompt",
		mcpmcp.WithDescription("Remove a card from the library."),
		mcpmcp.WithString("id", mcpmcp.Required(), mcpmcp.Description("Card id")),
	), deleteHandler(lib))
}

// ── Tool handlers ─────────────────────────────────────────────────────────

func jsonResult(v any) *mcpmcp.CallToolResult {
	data, _ := json.Marshal(v)
	return mcpmcp.NewToolResultText(string(data))
}

func errorResult(err error) *mcpmcp.CallToolResult {
	return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err))
}

// resolve finds a card by id in the working set, falling back to the library.
func resolve(studio *studiosvc.Service, lib *librarysvc.Service, id string) (card.Card, bool) {
	if c, ok := studio.Card(id); ok {
		return c, true
	}
	return lib.Get(id)
}

func generateHandler(studio *studiosvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		idea := mcpmcp.ParseString(req, "idea", "")
		topic := mcpmcp.ParseString(req, "topic", "")

		if strings.TrimSpace(idea) == "" {
			return mcpmcp.NewToolResultText("error: idea must not be empty"), nil
		}
		if studio.IsGenerating() {
			return errorResult(studiosvc.ErrBusy), nil
		}

		cards, err := studio.Generate(ctx, idea, topic)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(cards), nil
	}
}

func optimizeHandler(studio *studiosvc.Service, lib *librarysvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		id := mcpmcp.ParseString(req, "id", "")
		target, ok := resolve(studio, lib, id)
		if !ok {
			return mcpmcp.NewToolResultText("error: card not found"), nil
		}
		if studio.IsOptimizing(id) {
			return errorResult(studiosvc.ErrBusy), nil
		}

		out, changed, err := studio.Optimize(ctx, target)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(map[string]any{"card": out, "changed": changed}), nil
	}
}

func refineHandler(studio *studiosvc.Service, lib *librarysvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		id := mcpmcp.ParseString(req, "id", "")
		instruction := mcpmcp.ParseString(req, "instruction", "")

		target, ok := resolve(studio, lib, id)
		if !ok {
			return mcpmcp.NewToolResultText("error: card not found"), nil
		}
		if studio.IsOptimizing(id) {
			return errorResult(studiosvc.ErrBusy), nil
		}

		out, err := studio.Refine(ctx, target, instruction)
		if err != nil {
			if errors.Is(err, studiosvc.ErrEmptyInstruction) {
				return mcpmcp.NewToolResultText("error: instruction must not be empty"), nil
			}
			return errorResult(err), nil
		}
		return jsonResult(out), nil
	}
}

func searchLibraryHandler(lib *librarysvc.Service) mcpserver.ToolHandlerFunc {
	return func(_ context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		q := card.Query{
			Search: mcpmcp.ParseString(req, "q", ""),
			Type:   mcpmcp.ParseString(req, "type", card.FacetAll),
			Order:  card.ParseOrder(mcpmcp.ParseString(req, "order", "")),
		}
		return jsonResult(map[string]any{
			"cards": lib.View(q),
			"types": lib.Facets(),
			"total": lib.Len(),
		}), nil
	}
}

func saveHandler(studio *studiosvc.Service, lib *librarysvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		id := mcpmcp.ParseString(req, "id", "")
		c, ok := studio.Card(id)
		if !ok {
			return mcpmcp.NewToolResultText("error: card not found in working set"), nil
		}

		changed, err := lib.Save(ctx, c)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(map[string]any{"saved": true, "changed": changed, "id": c.ID}), nil
	}
}

func deleteHandler(lib *librarysvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		id := mcpmcp.ParseString(req, "id", "")
		removed, err := lib.Remove(ctx, id)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(map[string]any{"removed": removed, "id": id}), nil
	}
}
