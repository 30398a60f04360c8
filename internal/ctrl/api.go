//go:generate mockgen -destination=./mock/mock_api.go -package=mock_ctrl . PluginManager

package ctrl

import (
	plugin "github.com/Stavily/06-Plugins/internal/plugin"
)

type PluginManager interface {
	Get(name string) (*plugin.Client, error)
	List() []*plugin.Client
}
