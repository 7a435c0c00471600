package main

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/ordino/internal/interfaces"
	"github.com/ternarybob/ordino/internal/models"
)

// manageItemsArgs is the bound argument shape of manage_items.
type manageItemsArgs struct {
	Operation string                   `json:"operation"`
	Items     []map[string]interface{} `json:"items"`
	IDs       []string                 `json:"ids"`
}

// opOutcome is one per-entry result in a batched mutation response.
type opOutcome struct {
	ID      string                `json:"id,omitempty"`
	Success bool                  `json:"success"`
	Item    *models.WorkItem      `json:"item,omitempty"`
	Error   *models.EnvelopeError `json:"error,omitempty"`
}

func outcomeErr(id string, err error) opOutcome {
	de := models.AsDomainError(err)
	return opOutcome{ID: id, Error: &models.EnvelopeError{
		Code:         de.Code,
		Message:      de.Message,
		Blockers:     de.Blockers,
		MissingNotes: de.MissingNotes,
	}}
}

// handleManageItems implements the manage_items tool
func handleManageItems(svc interfaces.ItemService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args manageItemsArgs
		if err := request.BindArguments(&args); err != nil {
			return validationResult("invalid arguments: %v", err), nil
		}

		switch args.Operation {
		case "create":
			return manageItemsCreate(ctx, svc, args.Items), nil
		case "update":
			return manageItemsUpdate(ctx, svc, args.Items), nil
		case "delete":
			return manageItemsDelete(ctx, svc, args.IDs), nil
		default:
			return validationResult("unknown operation %q (valid: create, update, delete)", args.Operation), nil
		}
	}
}

func manageItemsCreate(ctx context.Context, svc interfaces.ItemService, raw []map[string]interface{}) *mcp.CallToolResult {
	if len(raw) == 0 {
		return validationResult("create requires a non-empty items array")
	}

	outcomes := make([]opOutcome, 0, len(raw))
	for _, entry := range raw {
		var req models.CreateItemRequest
		if err := rebind(entry, &req); err != nil {
			outcomes = append(outcomes, outcomeErr("", models.ValidationErr("invalid item entry: %v", err)))
			continue
		}
		item, err := svc.CreateItem(ctx, &req)
		if err != nil {
			outcomes = append(outcomes, outcomeErr("", err))
			continue
		}
		outcomes = append(outcomes, opOutcome{ID: item.ID, Success: true, Item: item})
	}
	return okResult(outcomes, "")
}

func manageItemsUpdate(ctx context.Context, svc interfaces.ItemService, raw []map[string]interface{}) *mcp.CallToolResult {
	if len(raw) == 0 {
		return validationResult("update requires a non-empty items array")
	}

	outcomes := make([]opOutcome, 0, len(raw))
	for _, entry := range raw {
		var req models.UpdateItemRequest
		if err := rebind(entry, &req); err != nil {
			outcomes = append(outcomes, outcomeErr("", models.ValidationErr("invalid item entry: %v", err)))
			continue
		}
		if req.ID == "" {
			outcomes = append(outcomes, outcomeErr("", models.ValidationErr("update entries require an id")))
			continue
		}
		item, err := svc.UpdateItem(ctx, &req)
		if err != nil {
			outcomes = append(outcomes, outcomeErr(req.ID, err))
			continue
		}
		outcomes = append(outcomes, opOutcome{ID: item.ID, Success: true, Item: item})
	}
	return okResult(outcomes, "")
}

func manageItemsDelete(ctx context.Context, svc interfaces.ItemService, ids []string) *mcp.CallToolResult {
	if len(ids) == 0 {
		return validationResult("delete requires a non-empty ids array")
	}

	outcomes := make([]opOutcome, 0, len(ids))
	for _, id := range ids {
		if err := svc.DeleteItem(ctx, id); err != nil {
			outcomes = append(outcomes, outcomeErr(id, err))
			continue
		}
		outcomes = append(outcomes, opOutcome{ID: id, Success: true})
	}
	return okResult(outcomes, "")
}

// handleQueryItems implements the query_items tool
func handleQueryItems(svc interfaces.ItemService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		operation, err := request.RequireString("operation")
		if err != nil {
			return validationResult("operation parameter is required"), nil
		}

		switch operation {
		case "get":
			id := request.GetString("id", "")
			if id == "" {
				return validationResult("get requires an id"), nil
			}
			item, err := svc.GetItem(ctx, id)
			if err != nil {
				return errResult(err), nil
			}
			return okResult(item, ""), nil

		case "search":
			filter, verr := searchFilterFromRequest(request)
			if verr != nil {
				return errResult(verr), nil
			}
			items, err := svc.SearchItems(ctx, filter)
			if err != nil {
				return errResult(err), nil
			}
			return okResult(items, ""), nil

		case "overview":
			id := request.GetString("id", "")
			if id == "" {
				return validationResult("overview requires an id"), nil
			}
			overview, err := svc.Overview(ctx, id)
			if err != nil {
				return errResult(err), nil
			}
			return okResult(overview, ""), nil

		case "export":
			id := request.GetString("id", "")
			if id == "" {
				return validationResult("export requires an id"), nil
			}
			export, err := svc.Export(ctx, id)
			if err != nil {
				return errResult(err), nil
			}
			return okResult(export, ""), nil

		default:
			return validationResult("unknown operation %q (valid: get, search, overview, export)", operation), nil
		}
	}
}

func searchFilterFromRequest(request mcp.CallToolRequest) (models.ItemFilter, error) {
	filter := models.ItemFilter{
		TagSubstring:  request.GetString("tag", ""),
		TitleContains: request.GetString("title", ""),
		Limit:         request.GetInt("limit", 50),
		Offset:        request.GetInt("offset", 0),
	}
	if v := request.GetString("role", ""); v != "" {
		role, err := models.ParseRole(v)
		if err != nil {
			return filter, models.ValidationErr("%v", err)
		}
		filter.Role = &role
	}
	if v := request.GetString("priority", ""); v != "" {
		priority, err := models.ParsePriority(v)
		if err != nil {
			return filter, models.ValidationErr("%v", err)
		}
		filter.Priority = &priority
	}
	if v := request.GetString("parentId", ""); v != "" {
		filter.ParentID = &v
	}
	if v := request.GetInt("depth", -1); v >= 0 {
		filter.Depth = &v
	}
	return filter, nil
}

// handleCreateWorkTree implements the create_work_tree tool
func handleCreateWorkTree(svc interfaces.ItemService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req models.WorkTreeRequest
		if err := request.BindArguments(&req); err != nil {
			return validationResult("invalid arguments: %v", err), nil
		}
		if req.Root.Title == "" {
			return validationResult("root.title is required"), nil
		}

		result, err := svc.CreateWorkTree(ctx, &req)
		if err != nil {
			logger.Warn().Err(err).Msg("create_work_tree failed")
			return errResult(err), nil
		}
		return okResult(result, "work tree created"), nil
	}
}

// handleGetContext implements the get_context tool
func handleGetContext(svc interfaces.ItemService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		itemID := request.GetString("itemId", "")
		if itemID == "" {
			board, err := svc.BoardContext(ctx)
			if err != nil {
				return errResult(err), nil
			}
			return okResult(board, ""), nil
		}

		itemCtx, err := svc.ItemContext(ctx, itemID)
		if err != nil {
			return errResult(err), nil
		}
		return okResult(itemCtx, ""), nil
	}
}
