package provider

import "context"

// WebClient is the narrow surface the provider consumes from the scripted
// browser session. The implementation lives in pkg/webui; the facade only
// cares about reading and writing a flat settings map.
type WebClient interface {
	RetrieveSettings(ctx context.Context, orgID string) (map[string]any, error)
	UpdateSettings(ctx context.Context, orgID string, data map[string]any) error
}
