package main

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/ordino/internal/common"
	"github.com/ternarybob/ordino/internal/interfaces"
	"github.com/ternarybob/ordino/internal/models"
)

// handleManageNotes implements the manage_notes tool
func handleManageNotes(storage interfaces.StorageManager, items interfaces.ItemService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		operation, err := request.RequireString("operation")
		if err != nil {
			return validationResult("operation parameter is required"), nil
		}
		itemID, err := request.RequireString("itemId")
		if err != nil || itemID == "" {
			return validationResult("itemId parameter is required"), nil
		}
		key, err := request.RequireString("key")
		if err != nil || key == "" {
			return validationResult("key parameter is required"), nil
		}

		switch operation {
		case "upsert":
			if !models.ValidNoteKey(key) {
				return validationResult("invalid note key %q (kebab-case required)", key), nil
			}
			role, perr := models.ParseNoteRole(request.GetString("role", ""))
			if perr != nil {
				return validationResult("%v", perr), nil
			}
			body := request.GetString("body", "")
			if body == "" {
				return validationResult("body is required for upsert"), nil
			}

			// Surface a not-found before the write for a clean error code.
			if _, err := items.GetItem(ctx, itemID); err != nil {
				return errResult(err), nil
			}

			now := time.Now().UTC()
			note, err := storage.Notes().UpsertNote(ctx, &models.Note{
				ID:         common.NewNoteID(),
				ItemID:     itemID,
				Key:        key,
				Role:       role,
				Body:       body,
				CreatedAt:  now,
				ModifiedAt: now,
			})
			if err != nil {
				logger.Warn().Err(err).Str("item_id", itemID).Str("key", key).Msg("Note upsert failed")
				return errResult(err), nil
			}
			return okResult(note, ""), nil

		case "delete":
			if err := storage.Notes().DeleteNote(ctx, itemID, key); err != nil {
				return errResult(err), nil
			}
			return okResult(map[string]string{"itemId": itemID, "key": key}, "note deleted"), nil

		default:
			return validationResult("unknown operation %q (valid: upsert, delete)", operation), nil
		}
	}
}

// handleQueryNotes implements the query_notes tool
func handleQueryNotes(storage interfaces.StorageManager, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		operation, err := request.RequireString("operation")
		if err != nil {
			return validationResult("operation parameter is required"), nil
		}
		itemID, err := request.RequireString("itemId")
		if err != nil || itemID == "" {
			return validationResult("itemId parameter is required"), nil
		}

		switch operation {
		case "get":
			key := request.GetString("key", "")
			if key == "" {
				return validationResult("get requires a key"), nil
			}
			note, err := storage.Notes().GetNote(ctx, itemID, key)
			if err != nil {
				return errResult(err), nil
			}
			return okResult(note, ""), nil

		case "list":
			var role *models.NoteRole
			if v := request.GetString("role", ""); v != "" {
				parsed, perr := models.ParseNoteRole(v)
				if perr != nil {
					return validationResult("%v", perr), nil
				}
				role = &parsed
			}
			notes, err := storage.Notes().ListNotes(ctx, itemID, role)
			if err != nil {
				return errResult(err), nil
			}
			return okResult(notes, ""), nil

		default:
			return validationResult("unknown operation %q (valid: get, list)", operation), nil
		}
	}
}
