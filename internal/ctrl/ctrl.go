package ctrl

import (
	"errors"

	"github.com/google/wire"

	plugin "github.com/Stavily/06-Plugins/internal/plugin"
)

var DefaultSet = wire.NewSet(
	NewBootstrapController,
	NewPollController,
	NewDispatchController,
	NewHealthMonitorController,
)

// isProcessFault reports whether err means the plugin process itself is
// gone or unresponsive, as opposed to an error the plugin returned.
func isProcessFault(err error) bool {
	var timeout *plugin.TimeoutError
	var exited *plugin.ProcessExitedError
	return errors.As(err, &timeout) || errors.As(err, &exited)
}
