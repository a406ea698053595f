package workspace

import "context"

type workspaceContextKey struct{}

// ContextWithWorkspace stores the workspace in context.
func ContextWithWorkspace(ctx context.Context, ws *Workspace) context.Context {
	return context.WithValue(ctx, workspaceContextKey{}, ws)
}

// FromContext extracts the workspace from context.
func FromContext(ctx context.Context) *Workspace {
	ws, _ := ctx.Value(workspaceContextKey{}).(*Workspace)
	return ws
}
