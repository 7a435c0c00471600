package main

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/ordino/internal/interfaces"
	"github.com/ternarybob/ordino/internal/models"
)

type transitionEntry struct {
	ItemID  string `json:"itemId"`
	Trigger string `json:"trigger"`
	Summary string `json:"summary"`
}

type advanceItemArgs struct {
	Transitions []transitionEntry `json:"transitions"`
}

// transitionOutcome is one per-entry result of advance_item / complete_tree.
type transitionOutcome struct {
	ItemID  string                   `json:"itemId"`
	Success bool                     `json:"success"`
	Result  *models.TransitionResult `json:"result,omitempty"`
	Error   *models.EnvelopeError    `json:"error,omitempty"`
}

func transitionErr(itemID string, err error) transitionOutcome {
	de := models.AsDomainError(err)
	return transitionOutcome{ItemID: itemID, Error: &models.EnvelopeError{
		Code:         de.Code,
		Message:      de.Message,
		Blockers:     de.Blockers,
		MissingNotes: de.MissingNotes,
	}}
}

// handleAdvanceItem implements the advance_item tool
func handleAdvanceItem(svc interfaces.WorkflowService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args advanceItemArgs
		if err := request.BindArguments(&args); err != nil {
			return validationResult("invalid arguments: %v", err), nil
		}
		if len(args.Transitions) == 0 {
			return validationResult("transitions array is required"), nil
		}

		outcomes := make([]transitionOutcome, 0, len(args.Transitions))
		for _, entry := range args.Transitions {
			if entry.ItemID == "" {
				outcomes = append(outcomes, transitionErr("", models.ValidationErr("transition entries require an itemId")))
				continue
			}
			result, err := svc.Advance(ctx, entry.ItemID, models.Trigger(entry.Trigger), entry.Summary)
			if err != nil {
				outcomes = append(outcomes, transitionErr(entry.ItemID, err))
				continue
			}
			outcomes = append(outcomes, transitionOutcome{ItemID: entry.ItemID, Success: true, Result: result})
		}
		return okResult(outcomes, ""), nil
	}
}

// handleCompleteTree implements the complete_tree tool
func handleCompleteTree(svc interfaces.WorkflowService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		itemIDs := request.GetStringSlice("itemIds", nil)
		if len(itemIDs) == 0 {
			return validationResult("itemIds array is required"), nil
		}
		summary := request.GetString("summary", "")

		outcomes := make([]transitionOutcome, 0, len(itemIDs))
		for _, itemID := range itemIDs {
			result, err := svc.Advance(ctx, itemID, models.TriggerComplete, summary)
			if err != nil {
				outcomes = append(outcomes, transitionErr(itemID, err))
				continue
			}
			outcomes = append(outcomes, transitionOutcome{ItemID: itemID, Success: true, Result: result})
		}
		return okResult(outcomes, ""), nil
	}
}

// handleGetNextStatus implements the get_next_status tool
func handleGetNextStatus(svc interfaces.WorkflowService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		itemID, err := request.RequireString("itemId")
		if err != nil || itemID == "" {
			return validationResult("itemId parameter is required"), nil
		}
		trigger, err := request.RequireString("trigger")
		if err != nil || trigger == "" {
			return validationResult("trigger parameter is required"), nil
		}

		result, err := svc.DryRun(ctx, itemID, models.Trigger(trigger))
		if err != nil {
			return errResult(err), nil
		}
		return okResult(result, ""), nil
	}
}

// handleGetNextItem implements the get_next_item tool
func handleGetNextItem(svc interfaces.RecommendationService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var parentID *string
		if v := request.GetString("parentId", ""); v != "" {
			parentID = &v
		}
		limit := request.GetInt("limit", 5)

		items, err := svc.NextItems(ctx, parentID, limit)
		if err != nil {
			return errResult(err), nil
		}
		return okResult(items, ""), nil
	}
}

// handleGetBlockedItems implements the get_blocked_items tool
func handleGetBlockedItems(svc interfaces.RecommendationService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		blocked, err := svc.BlockedItems(ctx)
		if err != nil {
			return errResult(err), nil
		}
		return okResult(blocked, ""), nil
	}
}
