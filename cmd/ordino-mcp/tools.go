package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createManageItemsTool returns the manage_items tool definition
func createManageItemsTool() mcp.Tool {
	return mcp.NewTool("manage_items",
		mcp.WithDescription("Create, update or delete work items. Items form a tree up to four levels deep (project > epic > feature > task)."),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description("One of: create, update, delete"),
		),
		mcp.WithArray("items",
			mcp.Description("For create/update: array of item objects. Create accepts {title, summary?, tags?, priority?, parentId?}; update accepts {id, title?, summary?, tags?, priority?, statusLabel?}"),
		),
		mcp.WithArray("ids",
			mcp.WithStringItems(),
			mcp.Description("For delete: item IDs to remove (subtrees, notes and dependencies go with them)"),
		),
	)
}

// createQueryItemsTool returns the query_items tool definition
func createQueryItemsTool() mcp.Tool {
	return mcp.NewTool("query_items",
		mcp.WithDescription("Read work items: get one, search by filters, hierarchical overview, or full subtree export"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description("One of: get, search, overview, export"),
		),
		mcp.WithString("id",
			mcp.Description("Item ID (required for get, overview, export)"),
		),
		mcp.WithString("tag",
			mcp.Description("Search: tag substring filter"),
		),
		mcp.WithString("role",
			mcp.Description("Search: role filter (queue, work, review, terminal, blocked)"),
		),
		mcp.WithString("priority",
			mcp.Description("Search: priority filter (low, medium, high, critical)"),
		),
		mcp.WithString("parentId",
			mcp.Description("Search: direct-children filter"),
		),
		mcp.WithNumber("depth",
			mcp.Description("Search: tree depth filter (0-3)"),
		),
		mcp.WithString("title",
			mcp.Description("Search: title substring filter"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Search: max results (default 50)"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Search: pagination offset"),
		),
	)
}

// createManageNotesTool returns the manage_notes tool definition
func createManageNotesTool() mcp.Tool {
	return mcp.NewTool("manage_notes",
		mcp.WithDescription("Upsert or delete notes on a work item. Notes are keyed per item; upserting an existing key replaces the body."),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description("One of: upsert, delete"),
		),
		mcp.WithString("itemId",
			mcp.Required(),
			mcp.Description("Owning work item ID"),
		),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Kebab-case note key, unique per item"),
		),
		mcp.WithString("role",
			mcp.Description("Note phase: queue, work or review (required for upsert)"),
		),
		mcp.WithString("body",
			mcp.Description("Note text (required for upsert)"),
		),
	)
}

// createQueryNotesTool returns the query_notes tool definition
func createQueryNotesTool() mcp.Tool {
	return mcp.NewTool("query_notes",
		mcp.WithDescription("Read notes on a work item, one by key or all optionally filtered by phase"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description("One of: get, list"),
		),
		mcp.WithString("itemId",
			mcp.Required(),
			mcp.Description("Owning work item ID"),
		),
		mcp.WithString("key",
			mcp.Description("Note key (required for get)"),
		),
		mcp.WithString("role",
			mcp.Description("List: phase filter (queue, work, review)"),
		),
	)
}

// createManageDependenciesTool returns the manage_dependencies tool definition
func createManageDependenciesTool() mcp.Tool {
	return mcp.NewTool("manage_dependencies",
		mcp.WithDescription("Create or delete dependency edges. Create accepts an explicit list or a pattern (linear, fan-out, fan-in); the whole batch is atomic and cycle-checked."),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description("One of: create, delete"),
		),
		mcp.WithArray("dependencies",
			mcp.Description("Create: explicit edges [{fromItemId, toItemId, type?, unblockAt?}]"),
		),
		mcp.WithString("pattern",
			mcp.Description("Create shortcut: linear, fan-out or fan-in"),
		),
		mcp.WithArray("taskIds",
			mcp.WithStringItems(),
			mcp.Description("linear: chain of item IDs, each blocking the next"),
		),
		mcp.WithString("source",
			mcp.Description("fan-out: blocking item ID"),
		),
		mcp.WithArray("targets",
			mcp.WithStringItems(),
			mcp.Description("fan-out: dependent item IDs"),
		),
		mcp.WithArray("sources",
			mcp.WithStringItems(),
			mcp.Description("fan-in: blocking item IDs"),
		),
		mcp.WithString("target",
			mcp.Description("fan-in: dependent item ID"),
		),
		mcp.WithString("id",
			mcp.Description("Delete: dependency ID"),
		),
		mcp.WithString("fromItemId",
			mcp.Description("Delete: edge origin (paired with toItemId)"),
		),
		mcp.WithString("toItemId",
			mcp.Description("Delete: edge destination"),
		),
		mcp.WithString("type",
			mcp.Description("Delete: narrow (fromItemId,toItemId) to one type"),
		),
		mcp.WithString("deleteAllFor",
			mcp.Description("Delete: remove every edge touching this item ID"),
		),
	)
}

// createQueryDependenciesTool returns the query_dependencies tool definition
func createQueryDependenciesTool() mcp.Tool {
	return mcp.NewTool("query_dependencies",
		mcp.WithDescription("Read dependency edges for an item, optionally expanding the reachable graph breadth-first"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("itemId",
			mcp.Required(),
			mcp.Description("Item ID to scope the query"),
		),
		mcp.WithString("direction",
			mcp.Description("incoming, outgoing, or omit for both"),
		),
		mcp.WithString("type",
			mcp.Description("Filter: blocks, is-blocked-by, relates-to"),
		),
		mcp.WithBoolean("graph",
			mcp.Description("Expand the transitive dependency graph (BFS) instead of direct edges only"),
		),
	)
}

// createAdvanceItemTool returns the advance_item tool definition
func createAdvanceItemTool() mcp.Tool {
	return mcp.NewTool("advance_item",
		mcp.WithDescription("Apply lifecycle triggers to work items. Triggers: start, complete, block, hold, resume, cancel. Forward transitions are gated by required notes and blocking dependencies."),
		mcp.WithArray("transitions",
			mcp.Required(),
			mcp.Description("Batch of {itemId, trigger, summary?}"),
		),
	)
}

// createGetNextItemTool returns the get_next_item tool definition
func createGetNextItemTool() mcp.Tool {
	return mcp.NewTool("get_next_item",
		mcp.WithDescription("Recommend workable items: not blocked, not terminal, all blocking dependencies satisfied, ordered by priority then age"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("parentId",
			mcp.Description("Scope to direct children of this item"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default 5)"),
		),
	)
}

// createGetBlockedItemsTool returns the get_blocked_items tool definition
func createGetBlockedItemsTool() mcp.Tool {
	return mcp.NewTool("get_blocked_items",
		mcp.WithDescription("List items that cannot progress, each with its unsatisfied blockers"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

// createGetNextStatusTool returns the get_next_status tool definition
func createGetNextStatusTool() mcp.Tool {
	return mcp.NewTool("get_next_status",
		mcp.WithDescription("Dry-run a trigger: resolve the target role and validate gates without writing anything"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("itemId",
			mcp.Required(),
			mcp.Description("Item ID"),
		),
		mcp.WithString("trigger",
			mcp.Required(),
			mcp.Description("One of: start, complete, block, hold, resume, cancel"),
		),
	)
}

// createWorkTreeTool returns the create_work_tree tool definition
func createWorkTreeTool() mcp.Tool {
	return mcp.NewTool("create_work_tree",
		mcp.WithDescription("Atomically create a root item plus children, dependencies between them and initial notes. Children are addressed by ref; 'root' addresses the root."),
		mcp.WithObject("root",
			mcp.Required(),
			mcp.Description("Root item {title, summary?, tags?, priority?, parentId?}"),
		),
		mcp.WithArray("children",
			mcp.Description("Child items [{ref, title, summary?, tags?, priority?}]"),
		),
		mcp.WithArray("dependencies",
			mcp.Description("Edges between refs [{fromRef, toRef, type?, unblockAt?}]"),
		),
		mcp.WithArray("notes",
			mcp.Description("Initial notes [{ref, key, role, body}]"),
		),
	)
}

// createCompleteTreeTool returns the complete_tree tool definition
func createCompleteTreeTool() mcp.Tool {
	return mcp.NewTool("complete_tree",
		mcp.WithDescription("Complete a batch of items (trigger 'complete'), applying cascades and cleanup per item"),
		mcp.WithArray("itemIds",
			mcp.Required(),
			mcp.WithStringItems(),
			mcp.Description("Item IDs to complete, in order"),
		),
		mcp.WithString("summary",
			mcp.Description("Completion summary recorded on each item"),
		),
	)
}

// createGetContextTool returns the get_context tool definition
func createGetContextTool() mcp.Tool {
	return mcp.NewTool("get_context",
		mcp.WithDescription("With an itemId: the item, its breadcrumbs, active note schema, expected notes and gate status. Without: a board summary of active, review, blocked and ready-to-start items."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("itemId",
			mcp.Description("Item ID (omit for the board summary)"),
		),
	)
}
