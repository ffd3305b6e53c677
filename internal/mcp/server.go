package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/ldi/devflow/embed/prompts"
	"github.com/ldi/devflow/internal/store"
	"github.com/ldi/devflow/pkg/models"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	ServerName    = "DevFlow"
	ServerVersion = "0.1.0"
)

// NewServer creates an MCP server exposing the task tools for dir.
func NewServer(st *store.Store, dir string) *server.MCPServer {
	s := server.NewMCPServer(ServerName, ServerVersion,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(strings.TrimSpace(prompts.Instructions)),
	)

	s.AddTool(mcp.NewTool("get_all_tasks",
		mcp.WithDescription("Get all tasks from the workspace. Optionally filter by status: pending, in_progress, done, snoozed."),
		mcp.WithString("status", mcp.Description("Status filter (pending|in_progress|done|snoozed). Empty or unknown returns all tasks.")),
		mcp.WithReadOnlyHintAnnotation(true),
	), getAllTasksHandler(st, dir))

	s.AddTool(mcp.NewTool("add_new_task",
		mcp.WithDescription("Add a new task to the task list. Use when you discover new work that needs to be done."),
		mcp.WithString("title", mcp.Description("Task title"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Optional task description")),
	), addNewTaskHandler(st, dir))

	s.AddTool(mcp.NewTool("mark_task_started",
		mcp.WithDescription("Mark a task as in progress. Use when you begin working on a task."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
	), markTaskStartedHandler(st, dir))

	s.AddTool(mcp.NewTool("mark_task_complete",
		mcp.WithDescription("Mark a task as 100% done. Only use when the task is fully completed."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
	), markTaskCompleteHandler(st, dir))

	s.AddTool(mcp.NewTool("snooze_a_task",
		mcp.WithDescription("Postpone a task to a future date (YYYY-MM-DD). Use when a task cannot be finished now."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("date", mcp.Description("Date to snooze until (YYYY-MM-DD)"), mcp.Required()),
	), snoozeTaskHandler(st, dir))

	s.AddTool(mcp.NewTool("remove_task",
		mcp.WithDescription("Permanently delete a task. Use only for duplicate or invalid tasks."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithDestructiveHintAnnotation(true),
	), removeTaskHandler(st, dir))

	return s
}

// Serve runs the MCP stdio transport over in and out until in is closed or
// ctx is canceled. Transport errors are logged to logger.
func Serve(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer, logger *log.Logger) error {
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(logger)

	err := stdio.Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func getAllTasksHandler(st *store.Store, dir string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status := models.FilterFromString(mcp.ParseString(request, "status", ""))

		data, err := models.MarshalIndent(st.List(ctx, dir, status))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(string(data)), nil
	}
}

func addNewTaskHandler(st *store.Store, dir string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title := mcp.ParseString(request, "title", "")
		description := mcp.ParseString(request, "description", "")

		t, err := st.Add(ctx, dir, title, description)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Task added: [%s] %s", t.ID, t.Title)), nil
	}
}

func markTaskStartedHandler(st *store.Store, dir string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		taskID := mcp.ParseString(request, "task_id", "")

		t, err := st.Start(ctx, dir, taskID)
		return statusResult(taskID, t, err, "Task started")
	}
}

func markTaskCompleteHandler(st *store.Store, dir string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		taskID := mcp.ParseString(request, "task_id", "")

		t, err := st.Complete(ctx, dir, taskID)
		return statusResult(taskID, t, err, "Task completed")
	}
}

func snoozeTaskHandler(st *store.Store, dir string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		taskID := mcp.ParseString(request, "task_id", "")
		date := mcp.ParseString(request, "date", "")

		t, err := st.Snooze(ctx, dir, taskID, date)
		return statusResult(taskID, t, err, "Task snoozed until "+date)
	}
}

func removeTaskHandler(st *store.Store, dir string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		taskID := mcp.ParseString(request, "task_id", "")

		deleted, err := st.Delete(ctx, dir, taskID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !deleted {
			return mcp.NewToolResultText(notFoundText(taskID)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Task deleted: %s", taskID)), nil
	}
}

// statusResult renders the outcome of a status change. A missing task is a
// normal result for the assistant, not a tool error.
func statusResult(taskID string, t *models.Task, err error, label string) (*mcp.CallToolResult, error) {
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultText(notFoundText(taskID)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: [%s] %s", label, t.ID, t.Title)), nil
}

func notFoundText(taskID string) string {
	return fmt.Sprintf("Task not found: %s", taskID)
}
