// Package mcp implements the Model Context Protocol server for bgs-goals.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ajitpratap0/bgs-goals/internal/goals"
	"github.com/ajitpratap0/bgs-goals/internal/guild"
	"github.com/ajitpratap0/bgs-goals/internal/models"
	"github.com/ajitpratap0/bgs-goals/internal/todo"
)

// Server wraps an MCPServer with the guild read/write API.
type Server struct {
	mcp    *mcpserver.MCPServer
	guilds *guild.Service
	logger *slog.Logger
}

// NewServer creates a new MCP server. If guilds is nil every tool call
// returns an error response instead of panicking.
func NewServer(guilds *guild.Service, logger *slog.Logger) *Server {
	s := &Server{
		guilds: guilds,
		logger: logger,
	}

	mcpSrv := mcpserver.NewMCPServer(
		"bgs-goals",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(buildGetTodoListTool(), s.handleGetTodoList)
	mcpSrv.AddTool(buildAddGoalsTool(), s.handleAddGoals)
	mcpSrv.AddTool(buildRemoveGoalsTool(), s.handleRemoveGoals)
	mcpSrv.AddTool(buildListGoalsTool(), s.handleListGoals)
	mcpSrv.AddTool(buildSetSupportedMinorFactionTool(), s.handleSetSupportedMinorFaction)
	mcpSrv.AddTool(buildStatsTool(), s.handleStats)

	s.mcp = mcpSrv
	return s
}

// MCPServer returns the underlying mcp-go MCPServer for use with ServeStdio.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// HandleGetTodoList is the exported handler for the "get_todo_list" tool.
// It is exposed for direct testing without the mcp-go transport layer.
func (s *Server) HandleGetTodoList(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleGetTodoList(ctx, req)
}

// HandleAddGoals is the exported handler for the "add_goals" tool.
func (s *Server) HandleAddGoals(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleAddGoals(ctx, req)
}

// HandleRemoveGoals is the exported handler for the "remove_goals" tool.
func (s *Server) HandleRemoveGoals(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleRemoveGoals(ctx, req)
}

// HandleListGoals is the exported handler for the "list_goals" tool.
func (s *Server) HandleListGoals(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleListGoals(ctx, req)
}

// HandleSetSupportedMinorFaction is the exported handler for the "set_supported_minor_faction" tool.
func (s *Server) HandleSetSupportedMinorFaction(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleSetSupportedMinorFaction(ctx, req)
}

// HandleStats is the exported handler for the "stats" tool.
func (s *Server) HandleStats(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleStats(ctx, req)
}

// --- helpers ---

// toolResultJSON marshals v to JSON and returns it as a tool text result.
func toolResultJSON(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshaling result: %w", err)
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

// toolResultFromError converts a guild API error into a tool error result.
// Errors other than the typed argument and goal failures are logged.
func (s *Server) toolResultFromError(op string, err error) *mcpgo.CallToolResult {
	var unknown *goals.UnknownGoalError
	switch {
	case errors.Is(err, guild.ErrInvalidArgument):
		return mcpgo.NewToolResultErrorf("invalid argument: %s", err.Error())
	case errors.Is(err, todo.ErrNoSupportedMinorFaction):
		return mcpgo.NewToolResultError("guild has no supported minor faction configured")
	case errors.As(err, &unknown):
		return mcpgo.NewToolResultErrorf("unknown goal %q", unknown.Name)
	default:
		s.logger.Error("mcp: "+op+" failed", "error", err)
		return mcpgo.NewToolResultErrorf("%s failed: %s", op, err.Error())
	}
}

// decodeArgument re-encodes the named argument into target. mcp-go hands
// structured arguments over as generic maps and slices.
func decodeArgument(req mcpgo.CallToolRequest, name string, target any) error {
	raw, ok := req.GetArguments()[name]
	if !ok || raw == nil {
		return fmt.Errorf("%s is required", name)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	if err := json.Unmarshal(b, target); err != nil {
		return fmt.Errorf("%s is malformed: %w", name, err)
	}
	return nil
}

func guildID(req mcpgo.CallToolRequest) (string, *mcpgo.CallToolResult) {
	id := strings.TrimSpace(req.GetString("guild_id", ""))
	if id == "" {
		return "", mcpgo.NewToolResultError("guild_id is required and must not be empty")
	}
	return id, nil
}

// --- tool definitions ---

func withGuildID() mcpgo.ToolOption {
	return mcpgo.WithString("guild_id",
		mcpgo.Required(),
		mcpgo.Description("The Discord guild id"),
	)
}

func buildGetTodoListTool() mcpgo.Tool {
	return mcpgo.NewTool("get_todo_list",
		mcpgo.WithDescription("Generate the BGS to-do list for a guild from its supported minor faction, goals and the latest observed facts."),
		withGuildID(),
	)
}

func buildAddGoalsTool() mcpgo.Tool {
	return mcpgo.NewTool("add_goals",
		mcpgo.WithDescription("Set explicit goals on presences of a guild. Either all goals are stored or none."),
		withGuildID(),
		mcpgo.WithArray("goals",
			mcpgo.Required(),
			mcpgo.Description("Goals to set: objects with star_system, minor_faction and goal (control, expand, maintain, retreat or ignore)"),
			mcpgo.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"star_system":   map[string]any{"type": "string"},
					"minor_faction": map[string]any{"type": "string"},
					"goal":          map[string]any{"type": "string"},
				},
				"required": []string{"star_system", "minor_faction", "goal"},
			}),
		),
	)
}

func buildRemoveGoalsTool() mcpgo.Tool {
	return mcpgo.NewTool("remove_goals",
		mcpgo.WithDescription("Remove explicit goals from presences of a guild. Fails without changes if any goal does not exist."),
		withGuildID(),
		mcpgo.WithArray("goals",
			mcpgo.Required(),
			mcpgo.Description("Presences to clear: objects with star_system and minor_faction"),
			mcpgo.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"star_system":   map[string]any{"type": "string"},
					"minor_faction": map[string]any{"type": "string"},
				},
				"required": []string{"star_system", "minor_faction"},
			}),
		),
	)
}

func buildListGoalsTool() mcpgo.Tool {
	return mcpgo.NewTool("list_goals",
		mcpgo.WithDescription("List the explicit goals a guild has set."),
		withGuildID(),
	)
}

func buildSetSupportedMinorFactionTool() mcpgo.Tool {
	return mcpgo.NewTool("set_supported_minor_faction",
		mcpgo.WithDescription("Set the minor faction a guild supports."),
		withGuildID(),
		mcpgo.WithString("minor_faction",
			mcpgo.Required(),
			mcpgo.Description("The minor faction name"),
		),
	)
}

func buildStatsTool() mcpgo.Tool {
	return mcpgo.NewTool("stats",
		mcpgo.WithDescription("Get fact store statistics: star systems, minor factions, presences, conflicts, goals and carriers."),
	)
}

// --- tool handlers ---

func (s *Server) handleGetTodoList(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.guilds == nil {
		return mcpgo.NewToolResultError("guild service is unavailable"), nil
	}
	id, errResult := guildID(req)
	if errResult != nil {
		return errResult, nil
	}

	list, err := s.guilds.GetTodoList(ctx, id)
	if err != nil {
		return s.toolResultFromError("get_todo_list", err), nil
	}
	return toolResultJSON(list)
}

func (s *Server) handleAddGoals(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.guilds == nil {
		return mcpgo.NewToolResultError("guild service is unavailable"), nil
	}
	id, errResult := guildID(req)
	if errResult != nil {
		return errResult, nil
	}

	var inputs []guild.GoalInput
	if err := decodeArgument(req, "goals", &inputs); err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	added, err := s.guilds.AddGoals(ctx, id, inputs)
	if err != nil {
		return s.toolResultFromError("add_goals", err), nil
	}

	s.logger.Info("mcp: add_goals stored goals", "guild", id, "count", len(added))
	return toolResultJSON(map[string]any{"goals": added})
}

func (s *Server) handleRemoveGoals(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.guilds == nil {
		return mcpgo.NewToolResultError("guild service is unavailable"), nil
	}
	id, errResult := guildID(req)
	if errResult != nil {
		return errResult, nil
	}

	var keys []models.PresenceKey
	if err := decodeArgument(req, "goals", &keys); err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	if err := s.guilds.RemoveGoals(ctx, id, keys); err != nil {
		return s.toolResultFromError("remove_goals", err), nil
	}

	s.logger.Info("mcp: remove_goals removed goals", "guild", id, "count", len(keys))
	return toolResultJSON(map[string]any{"removed": len(keys)})
}

func (s *Server) handleListGoals(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.guilds == nil {
		return mcpgo.NewToolResultError("guild service is unavailable"), nil
	}
	id, errResult := guildID(req)
	if errResult != nil {
		return errResult, nil
	}

	list, err := s.guilds.ListGoals(ctx, id)
	if err != nil {
		return s.toolResultFromError("list_goals", err), nil
	}
	if list == nil {
		list = []models.GoalAssignment{}
	}
	return toolResultJSON(map[string]any{"goals": list})
}

func (s *Server) handleSetSupportedMinorFaction(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.guilds == nil {
		return mcpgo.NewToolResultError("guild service is unavailable"), nil
	}
	id, errResult := guildID(req)
	if errResult != nil {
		return errResult, nil
	}

	faction := req.GetString("minor_faction", "")
	if err := s.guilds.SetSupportedMinorFaction(ctx, id, faction); err != nil {
		return s.toolResultFromError("set_supported_minor_faction", err), nil
	}

	s.logger.Info("mcp: supported minor faction set", "guild", id, "minor_faction", strings.TrimSpace(faction))
	return toolResultJSON(map[string]any{
		"guild_id":      id,
		"minor_faction": strings.TrimSpace(faction),
	})
}

func (s *Server) handleStats(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.guilds == nil {
		return mcpgo.NewToolResultError("guild service is unavailable"), nil
	}

	stats, err := s.guilds.Stats(ctx)
	if err != nil {
		return mcpgo.NewToolResultErrorf("stats failed: %s", err.Error()), nil
	}
	return toolResultJSON(stats)
}
