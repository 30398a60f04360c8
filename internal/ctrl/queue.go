//go:generate mockgen -destination=./mock/mock_queue.go -package=mock_ctrl . EventQueue
package ctrl

import pluginapi "github.com/Stavily/06-Plugins/pluginapi"

type EventQueue interface {
	Enqueue(event *pluginapi.TriggerEvent)
	Dequeue() <-chan *pluginapi.TriggerEvent
}
