package repo

import (
	"github.com/Stavily/06-Plugins/internal/ctrl"
	"github.com/google/wire"
)

var DefaultSet = wire.NewSet(
	NewPlugins,
	wire.Bind(new(ctrl.PluginRepository), new(*Plugins)),
)
