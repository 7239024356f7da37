package mcp_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/bgs-goals/internal/guild"
	bgsmcp "github.com/ajitpratap0/bgs-goals/internal/mcp"
	"github.com/ajitpratap0/bgs-goals/internal/models"
	"github.com/ajitpratap0/bgs-goals/internal/store"
	"github.com/ajitpratap0/bgs-goals/internal/todo"
)

// newMCPServer returns a Server backed by a MockStore holding facts for Sol.
func newMCPServer(t *testing.T) (*bgsmcp.Server, *store.MockStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ms := store.NewMockStore()
	require.NoError(t, ms.ApplySystemFacts(context.Background(), models.SystemFacts{
		StarSystem: "Sol",
		Timestamp:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Factions: []models.FactionFacts{
			{Name: "Alpha Party", Influence: 0.7, SecurityLevel: models.SecurityLow},
			{Name: "Beta Corp", Influence: 0.3},
		},
	}))
	svc := guild.NewService(ms, todo.NewGenerator(ms, logger), guild.NewStoreValidator(ms), nil, logger)
	return bgsmcp.NewServer(svc, logger), ms
}

// makeReq builds a CallToolRequest with the given arguments.
func makeReq(toolName string, args map[string]any) mcpgo.CallToolRequest {
	req := mcpgo.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args
	return req
}

// textContent extracts the first TextContent string from a CallToolResult.
func textContent(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content, "expected at least one content item")
	tc, ok := result.Content[0].(mcpgo.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

func TestMCP_GetTodoList_NoSupportedMinorFaction(t *testing.T) {
	srv, _ := newMCPServer(t)

	result, err := srv.HandleGetTodoList(context.Background(), makeReq("get_todo_list", map[string]any{"guild_id": "g1"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textContent(t, result), "no supported minor faction")
}

func TestMCP_GetTodoList_MissingGuild(t *testing.T) {
	srv, _ := newMCPServer(t)

	result, err := srv.HandleGetTodoList(context.Background(), makeReq("get_todo_list", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textContent(t, result), "guild_id")
}

func TestMCP_SetFactionAndTodo(t *testing.T) {
	srv, _ := newMCPServer(t)
	ctx := context.Background()

	result, err := srv.HandleSetSupportedMinorFaction(ctx, makeReq("set_supported_minor_faction", map[string]any{
		"guild_id":      "g1",
		"minor_faction": "Nobody",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textContent(t, result), "invalid argument")

	result, err = srv.HandleSetSupportedMinorFaction(ctx, makeReq("set_supported_minor_faction", map[string]any{
		"guild_id":      "g1",
		"minor_faction": " Alpha Party ",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, textContent(t, result))

	result, err = srv.HandleGetTodoList(ctx, makeReq("get_todo_list", map[string]any{"guild_id": "g1"}))
	require.NoError(t, err)
	require.False(t, result.IsError, textContent(t, result))

	var list struct {
		MinorFaction string           `json:"minor_faction"`
		Suggestions  []map[string]any `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &list))
	assert.Equal(t, "Alpha Party", list.MinorFaction)
	require.Len(t, list.Suggestions, 2)
	assert.Equal(t, "influence", list.Suggestions[0]["kind"])
	assert.Equal(t, "security", list.Suggestions[1]["kind"])
}

func TestMCP_GoalLifecycle(t *testing.T) {
	srv, ms := newMCPServer(t)
	ctx := context.Background()

	result, err := srv.HandleAddGoals(ctx, makeReq("add_goals", map[string]any{
		"guild_id": "g1",
		"goals": []any{
			map[string]any{"star_system": "Sol", "minor_faction": "Beta Corp", "goal": "retreat"},
		},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, textContent(t, result))

	result, err = srv.HandleListGoals(ctx, makeReq("list_goals", map[string]any{"guild_id": "g1"}))
	require.NoError(t, err)
	var listed struct {
		Goals []models.GoalAssignment `json:"goals"`
	}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &listed))
	require.Len(t, listed.Goals, 1)
	assert.Equal(t, "Retreat", listed.Goals[0].Goal)

	result, err = srv.HandleRemoveGoals(ctx, makeReq("remove_goals", map[string]any{
		"guild_id": "g1",
		"goals": []any{
			map[string]any{"star_system": "Sol", "minor_faction": "Beta Corp"},
		},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, textContent(t, result))

	goals, err := ms.Goals(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, goals)
}

func TestMCP_AddGoals_RejectsWholeBatch(t *testing.T) {
	srv, ms := newMCPServer(t)
	ctx := context.Background()

	result, err := srv.HandleAddGoals(ctx, makeReq("add_goals", map[string]any{
		"guild_id": "g1",
		"goals": []any{
			map[string]any{"star_system": "Sol", "minor_faction": "Beta Corp", "goal": "retreat"},
			map[string]any{"star_system": "Sol", "minor_faction": "Alpha Party", "goal": "conquer"},
		},
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textContent(t, result), "conquer")

	goals, err := ms.Goals(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, goals)
}

func TestMCP_AddGoals_MissingGoals(t *testing.T) {
	srv, _ := newMCPServer(t)

	result, err := srv.HandleAddGoals(context.Background(), makeReq("add_goals", map[string]any{"guild_id": "g1"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textContent(t, result), "goals is required")
}

func TestMCP_RemoveGoals_NotSet(t *testing.T) {
	srv, _ := newMCPServer(t)

	result, err := srv.HandleRemoveGoals(context.Background(), makeReq("remove_goals", map[string]any{
		"guild_id": "g1",
		"goals": []any{
			map[string]any{"star_system": "Sol", "minor_faction": "Beta Corp"},
		},
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textContent(t, result), "no goal is set")
}

func TestMCP_GetTodoList_UnknownStoredGoal(t *testing.T) {
	srv, ms := newMCPServer(t)
	ctx := context.Background()
	require.NoError(t, ms.SetSupportedMinorFaction(ctx, "g1", "Alpha Party"))
	require.NoError(t, ms.AddGoals(ctx, []models.GoalAssignment{
		{GuildID: "g1", StarSystem: "Sol", MinorFaction: "Alpha Party", Goal: "legacy-goal"},
	}))

	result, err := srv.HandleGetTodoList(ctx, makeReq("get_todo_list", map[string]any{"guild_id": "g1"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textContent(t, result), "legacy-goal")
}

func TestMCP_Stats(t *testing.T) {
	srv, _ := newMCPServer(t)

	result, err := srv.HandleStats(context.Background(), makeReq("stats", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var stats models.StoreStats
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &stats))
	assert.Equal(t, int64(1), stats.StarSystems)
	assert.Equal(t, int64(2), stats.Presences)
}

func TestMCP_NilService(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	srv := bgsmcp.NewServer(nil, logger)
	require.NotNil(t, srv.MCPServer())

	result, err := srv.HandleListGoals(context.Background(), makeReq("list_goals", map[string]any{"guild_id": "g1"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textContent(t, result), "unavailable")
}
