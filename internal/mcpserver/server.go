// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the reminder commands for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/mindpulse/internal/models"
	"github.com/starford/mindpulse/internal/reminderservice"
	"github.com/starford/mindpulse/internal/view"
)

// ProtocolURI names the command protocol resource.
const ProtocolURI = "mindpulse://command-protocol"

// Server wraps the MCP server with reminder tools.
type Server struct {
	mcp *server.MCPServer
	svc *reminderservice.Service
	now func() time.Time
}

// New creates a new MCP server with all reminder tools registered.
func New(svc *reminderservice.Service) *Server {
	s := &Server{svc: svc, now: time.Now}

	s.mcp = server.NewMCPServer(
		"MindPulse",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("create_reminder",
		mcp.WithDescription("Create a reminder. It fires a notification at the given time, "+
			"once or repeating hourly, daily or weekly. Read the command protocol via "+
			"the get_command_protocol tool or the "+ProtocolURI+" resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("What to remind about")),
		mcp.WithString("time", mcp.Required(), mcp.Description("First fire time in RFC3339 format (e.g. 2026-01-15T09:00:00Z)")),
		mcp.WithString("note", mcp.Description("Optional details shown in the notification")),
		mcp.WithString("repeat", mcp.Description("none (default), hourly, daily or weekly"), mcp.Enum(models.RepeatNames()...)),
		mcp.WithString("emoji", mcp.Description("Optional glyph (default 🔔)")),
	), s.createReminder)

	s.mcp.AddTool(mcp.NewTool("delete_reminder",
		mcp.WithDescription("Delete a reminder and cancel its notifications. Unknown ids succeed."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Reminder id")),
	), s.deleteReminder)

	s.mcp.AddTool(mcp.NewTool("toggle_done",
		mcp.WithDescription("Flip a reminder's done flag. Does not stop a repeating reminder."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Reminder id")),
	), s.toggleDone)

	s.mcp.AddTool(mcp.NewTool("list_reminders",
		mcp.WithDescription("List reminders, pending first then by time, each with an overdue flag."),
		mcp.WithString("filter", mcp.Description("all (default), pending or done"), mcp.Enum("all", "pending", "done")),
	), s.listReminders)

	s.mcp.AddTool(mcp.NewTool("get_command_protocol",
		mcp.WithDescription("Returns the reminder command protocol and firing rules."),
	), s.getCommandProtocol)

	// Resource: command protocol.
	s.mcp.AddResource(
		mcp.NewResource(ProtocolURI, "Command Protocol",
			mcp.WithResourceDescription("Reminder shape, commands and firing rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readProtocolResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) createReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	when, err := req.RequireString("time")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	at, err := time.Parse(time.RFC3339, strings.TrimSpace(when))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid time %q (use RFC3339, e.g. 2026-01-15T09:00:00Z)", when)), nil
	}

	r, err := s.svc.Create(ctx, models.NewReminderInput{
		Title:  title,
		Note:   req.GetString("note", ""),
		Time:   models.EpochMillis(at),
		Repeat: req.GetString("repeat", ""),
		Emoji:  req.GetString("emoji", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(reminderservice.Result{Success: true, Reminder: &r}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) deleteReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Delete(ctx, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) toggleDone(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.ToggleDone(ctx, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("toggled: %s", id)), nil
}

func (s *Server) listReminders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter, err := view.ParseFilter(req.GetString("filter", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	list, err := s.svc.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	list = view.Sort(view.Apply(list, filter))
	if len(list) == 0 {
		return mcp.NewToolResultText("no reminders found"), nil
	}
	out, _ := json.MarshalIndent(view.Decorate(list, s.now()), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getCommandProtocol(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(CommandProtocol), nil
}

func (s *Server) readProtocolResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ProtocolURI,
			MIMEType: "text/markdown",
			Text:     CommandProtocol,
		},
	}, nil
}
