//go:generate mockgen -destination=./mock/mock_repository.go -package=mock_ctrl . PluginRepository
package ctrl

import (
	"context"

	"github.com/Stavily/06-Plugins/internal/entity"
	pluginapi "github.com/Stavily/06-Plugins/pluginapi"
)

type PluginRepository interface {
	List(ctx context.Context) ([]*entity.Plugin, error)
	ListByKind(ctx context.Context, kind pluginapi.Capability) ([]*entity.Plugin, error)
	Find(ctx context.Context, id entity.PluginId) (*entity.Plugin, error)
	Save(ctx context.Context, plugin *entity.Plugin)
}
