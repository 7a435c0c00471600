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

// graphBFSLimit bounds the breadth-first dependency walk.
const graphBFSLimit = 200

type dependencyEntry struct {
	FromItemID string `json:"fromItemId"`
	ToItemID   string `json:"toItemId"`
	Type       string `json:"type"`
	UnblockAt  string `json:"unblockAt"`
}

type manageDependenciesArgs struct {
	Operation    string            `json:"operation"`
	Dependencies []dependencyEntry `json:"dependencies"`
	Pattern      string            `json:"pattern"`
	TaskIDs      []string          `json:"taskIds"`
	Source       string            `json:"source"`
	Targets      []string          `json:"targets"`
	Sources      []string          `json:"sources"`
	Target       string            `json:"target"`
	ID           string            `json:"id"`
	FromItemID   string            `json:"fromItemId"`
	ToItemID     string            `json:"toItemId"`
	Type         string            `json:"type"`
	DeleteAllFor string            `json:"deleteAllFor"`
}

// handleManageDependencies implements the manage_dependencies tool
func handleManageDependencies(storage interfaces.StorageManager, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args manageDependenciesArgs
		if err := request.BindArguments(&args); err != nil {
			return validationResult("invalid arguments: %v", err), nil
		}

		switch args.Operation {
		case "create":
			entries, err := expandDependencyEntries(&args)
			if err != nil {
				return errResult(err), nil
			}
			deps, err := createDependencies(ctx, storage, entries)
			if err != nil {
				logger.Warn().Err(err).Msg("Dependency batch rejected")
				return errResult(err), nil
			}
			return okResult(deps, "dependencies created"), nil

		case "delete":
			return deleteDependencies(ctx, storage, &args), nil

		default:
			return validationResult("unknown operation %q (valid: create, delete)", args.Operation), nil
		}
	}
}

// expandDependencyEntries turns a pattern shortcut into explicit edges, or
// passes the explicit list through.
func expandDependencyEntries(args *manageDependenciesArgs) ([]dependencyEntry, error) {
	switch args.Pattern {
	case "":
		if len(args.Dependencies) == 0 {
			return nil, models.ValidationErr("create requires dependencies or a pattern")
		}
		return args.Dependencies, nil

	case "linear":
		if len(args.TaskIDs) < 2 {
			return nil, models.ValidationErr("linear pattern requires at least two taskIds")
		}
		entries := make([]dependencyEntry, 0, len(args.TaskIDs)-1)
		for i := 0; i < len(args.TaskIDs)-1; i++ {
			entries = append(entries, dependencyEntry{FromItemID: args.TaskIDs[i], ToItemID: args.TaskIDs[i+1]})
		}
		return entries, nil

	case "fan-out":
		if args.Source == "" || len(args.Targets) == 0 {
			return nil, models.ValidationErr("fan-out pattern requires source and targets")
		}
		entries := make([]dependencyEntry, 0, len(args.Targets))
		for _, target := range args.Targets {
			entries = append(entries, dependencyEntry{FromItemID: args.Source, ToItemID: target})
		}
		return entries, nil

	case "fan-in":
		if args.Target == "" || len(args.Sources) == 0 {
			return nil, models.ValidationErr("fan-in pattern requires sources and target")
		}
		entries := make([]dependencyEntry, 0, len(args.Sources))
		for _, source := range args.Sources {
			entries = append(entries, dependencyEntry{FromItemID: source, ToItemID: args.Target})
		}
		return entries, nil

	default:
		return nil, models.ValidationErr("unknown pattern %q (valid: linear, fan-out, fan-in)", args.Pattern)
	}
}

// createDependencies inserts a batch atomically: the first violation (cycle,
// duplicate, missing endpoint) rolls the whole batch back.
func createDependencies(ctx context.Context, storage interfaces.StorageManager, entries []dependencyEntry) ([]*models.Dependency, error) {
	deps := make([]*models.Dependency, 0, len(entries))
	err := storage.RunInTransaction(ctx, func(tx interfaces.Transaction) error {
		for _, entry := range entries {
			if entry.FromItemID == "" || entry.ToItemID == "" {
				return models.ValidationErr("dependency entries require fromItemId and toItemId")
			}
			depType, err := models.ParseDependencyType(entry.Type)
			if err != nil {
				return models.ValidationErr("%v", err)
			}

			dep := &models.Dependency{
				ID:         common.NewDependencyID(),
				FromItemID: entry.FromItemID,
				ToItemID:   entry.ToItemID,
				Type:       depType,
				CreatedAt:  time.Now().UTC(),
			}
			if entry.UnblockAt != "" {
				role, err := models.ParseRole(entry.UnblockAt)
				if err != nil {
					return models.ValidationErr("%v", err)
				}
				dep.UnblockAt = &role
			}

			if err := tx.Dependencies().CreateDependency(ctx, dep); err != nil {
				return err
			}
			deps = append(deps, dep)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deps, nil
}

func deleteDependencies(ctx context.Context, storage interfaces.StorageManager, args *manageDependenciesArgs) *mcp.CallToolResult {
	switch {
	case args.ID != "":
		if err := storage.Dependencies().DeleteDependency(ctx, args.ID); err != nil {
			return errResult(err)
		}
		return okResult(map[string]int{"deleted": 1}, "")

	case args.DeleteAllFor != "":
		n, err := storage.Dependencies().DeleteDependenciesForItem(ctx, args.DeleteAllFor)
		if err != nil {
			return errResult(err)
		}
		return okResult(map[string]int{"deleted": n}, "")

	case args.FromItemID != "" && args.ToItemID != "":
		var depType *models.DependencyType
		if args.Type != "" {
			parsed, err := models.ParseDependencyType(args.Type)
			if err != nil {
				return validationResult("%v", err)
			}
			depType = &parsed
		}
		n, err := storage.Dependencies().DeleteDependencyBetween(ctx, args.FromItemID, args.ToItemID, depType)
		if err != nil {
			return errResult(err)
		}
		if n == 0 {
			return errResult(models.NotFoundErr("no dependency between %s and %s", args.FromItemID, args.ToItemID))
		}
		return okResult(map[string]int{"deleted": n}, "")

	default:
		return validationResult("delete requires id, (fromItemId, toItemId) or deleteAllFor")
	}
}

// dependencyGraph is the BFS expansion returned by query_dependencies.
type dependencyGraph struct {
	Items map[string]*models.WorkItem `json:"items"`
	Edges []*models.Dependency        `json:"edges"`
}

// handleQueryDependencies implements the query_dependencies tool
func handleQueryDependencies(storage interfaces.StorageManager, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		itemID, err := request.RequireString("itemId")
		if err != nil || itemID == "" {
			return validationResult("itemId parameter is required"), nil
		}

		var depType *models.DependencyType
		if v := request.GetString("type", ""); v != "" {
			parsed, perr := models.ParseDependencyType(v)
			if perr != nil {
				return validationResult("%v", perr), nil
			}
			depType = &parsed
		}

		if request.GetBool("graph", false) {
			graph, err := walkDependencyGraph(ctx, storage, itemID, depType)
			if err != nil {
				return errResult(err), nil
			}
			return okResult(graph, ""), nil
		}

		var deps []*models.Dependency
		switch direction := request.GetString("direction", ""); direction {
		case "incoming":
			deps, err = storage.Dependencies().ListTo(ctx, itemID)
		case "outgoing":
			deps, err = storage.Dependencies().ListFrom(ctx, itemID)
		case "":
			deps, err = storage.Dependencies().ListForItem(ctx, itemID)
		default:
			return validationResult("unknown direction %q (valid: incoming, outgoing)", direction), nil
		}
		if err != nil {
			return errResult(err), nil
		}

		if depType != nil {
			filtered := deps[:0]
			for _, dep := range deps {
				if dep.Type == *depType {
					filtered = append(filtered, dep)
				}
			}
			deps = filtered
		}
		return okResult(deps, ""), nil
	}
}

// walkDependencyGraph expands the dependency graph reachable from itemID
// breadth-first, in both directions, bounded by graphBFSLimit nodes.
func walkDependencyGraph(ctx context.Context, storage interfaces.StorageManager, itemID string, depType *models.DependencyType) (*dependencyGraph, error) {
	graph := &dependencyGraph{Items: map[string]*models.WorkItem{}}
	seenEdges := map[string]bool{}

	queue := []string{itemID}
	visited := map[string]bool{}
	for len(queue) > 0 && len(visited) < graphBFSLimit {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true

		item, err := storage.Items().GetItem(ctx, current)
		if err != nil {
			if models.AsDomainError(err).Code == models.CodeNotFound {
				continue
			}
			return nil, err
		}
		graph.Items[current] = item

		edges, err := storage.Dependencies().ListForItem(ctx, current)
		if err != nil {
			return nil, err
		}
		for _, edge := range edges {
			if depType != nil && edge.Type != *depType {
				continue
			}
			if !seenEdges[edge.ID] {
				seenEdges[edge.ID] = true
				graph.Edges = append(graph.Edges, edge)
			}
			queue = append(queue, edge.FromItemID, edge.ToItemID)
		}
	}

	if len(graph.Items) == 0 {
		return nil, models.NotFoundErr("work item %s not found", itemID)
	}
	return graph, nil
}
