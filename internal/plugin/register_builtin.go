package plugin

import (
	"github.com/Stavily/06-Plugins/internal/actions/emailnotify"
	"github.com/Stavily/06-Plugins/internal/actions/shellcmd"
	"github.com/Stavily/06-Plugins/internal/triggers/diskspace"
	"github.com/Stavily/06-Plugins/internal/triggers/memusage"
	pluginapi "github.com/Stavily/06-Plugins/pluginapi"
)

func init() {
	RegisterBuiltin("disk-space-monitor", func(_ pluginapi.Config) (*pluginapi.Runtime, error) {
		return pluginapi.NewRuntime(diskspace.New())
	})
	RegisterBuiltin("memory-monitor", func(_ pluginapi.Config) (*pluginapi.Runtime, error) {
		return pluginapi.NewRuntime(memusage.New())
	})
	RegisterBuiltin("email-notification", func(_ pluginapi.Config) (*pluginapi.Runtime, error) {
		return pluginapi.NewRuntime(emailnotify.New())
	})
	RegisterBuiltin("shell-command", func(_ pluginapi.Config) (*pluginapi.Runtime, error) {
		return pluginapi.NewRuntime(shellcmd.New())
	})
}
