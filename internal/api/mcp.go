package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/doughnut/internal/preference"
)

const preferencesResourceURI = "doughnut://preferences"

// NewMCPServer creates an MCP server exposing the preference tools and the
// preferences resource.
func NewMCPServer(prefs *preference.Preferences, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"doughnut",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("Doughnut podcast player preferences: read and change settings such as the library location and skip durations."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("get_preference",
			mcp.WithDescription("Read one preference: its stored value, its default and whether it is set."),
			mcp.WithString("key", mcp.Description("Preference key, e.g. reloadFrequency"), mcp.Required()),
		),
		mcpGetPreference(prefs),
	)

	s.AddTool(
		mcp.NewTool("set_preference",
			mcp.WithDescription("Store a preference value."),
			mcp.WithString("key", mcp.Description("Preference key, e.g. skipForwardDuration"), mcp.Required()),
			mcp.WithString("type", mcp.Description("Value type: bool, integer, float, double, string, strings, data, url, dictionary or array. Defaults to the type of the key's default.")),
			mcp.WithString("value", mcp.Description("Value as text"), mcp.Required()),
		),
		mcpSetPreference(prefs),
	)

	s.AddTool(
		mcp.NewTool("reset_preference",
			mcp.WithDescription("Restore a preference to its default, or remove it when it has none."),
			mcp.WithString("key", mcp.Description("Preference key"), mcp.Required()),
		),
		mcpResetPreference(prefs),
	)

	s.AddTool(
		mcp.NewTool("library_path",
			mcp.WithDescription("Resolve the podcast library directory for the current build mode, creating it when it is the default location."),
		),
		mcpLibraryPath(prefs),
	)

	s.AddResource(
		mcp.NewResource(
			preferencesResourceURI,
			"Preferences",
			mcp.WithResourceDescription("Every known preference with its value and default, as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourcePreferences(prefs),
	)

	return s
}

func mcpKey(req mcp.CallToolRequest) (preference.Key, *mcp.CallToolResult) {
	name, err := req.RequireString("key")
	if err != nil {
		return preference.Key{}, mcpError("key is required")
	}
	key, err := preference.ParseKey(name)
	if err != nil {
		return preference.Key{}, mcpError(err.Error())
	}
	return key, nil
}

func mcpGetPreference(prefs *preference.Preferences) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, errResult := mcpKey(req)
		if errResult != nil {
			return errResult, nil
		}
		return mcpJSON(view(prefs, key))
	}
}

func mcpSetPreference(prefs *preference.Preferences) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, errResult := mcpKey(req)
		if errResult != nil {
			return errResult, nil
		}
		raw, err := req.RequireString("value")
		if err != nil {
			return mcpError("value is required"), nil
		}
		v, err := prefs.ParseInput(key, req.GetString("type", ""), raw)
		if err != nil {
			return mcpError(fmt.Sprintf("invalid value: %v", err)), nil
		}
		if err := prefs.Set(key, v); err != nil {
			return mcpError(fmt.Sprintf("failed to set preference: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Set %s = %s (%s)", key, v, v.Kind())), nil
	}
}

func mcpResetPreference(prefs *preference.Preferences) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, errResult := mcpKey(req)
		if errResult != nil {
			return errResult, nil
		}
		if err := prefs.Reset(key); err != nil {
			return mcpError(fmt.Sprintf("failed to reset preference: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Reset %s", key)), nil
	}
}

func mcpLibraryPath(prefs *preference.Preferences) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcpJSON(libraryView(prefs))
	}
}

func mcpResourcePreferences(prefs *preference.Preferences) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(Views(prefs))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal preferences: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
