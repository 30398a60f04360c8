package plugin

import (
	"context"

	"github.com/Stavily/06-Plugins/pluginapi"
)

// Transport carries one request envelope to a plugin instance and returns
// its response envelope. Implementations serialize calls so the plugin
// never sees more than one outstanding request.
type Transport interface {
	Call(ctx context.Context, req *pluginapi.RequestEnvelope) (*pluginapi.ResponseEnvelope, error)
	Close(ctx context.Context) error
}
