// Package transport feeds upstream messages into the engine. Each
// transport runs until its context is cancelled and routes data messages
// to HandleMessage and control messages to HandleCommand.
package transport

import (
	"log/slog"

	"github.com/distopia/districtview/internal/logger"
)

// Handler consumes decoded payloads. *engine.Engine satisfies it.
type Handler interface {
	HandleMessage(data []byte) (bool, error)
	HandleCommand(data []byte) error
}

// Observer counts transport activity.
type Observer interface {
	MessageReceived(transport, topic string)
	Reconnected(transport string)
}

type nopObserver struct{}

func (nopObserver) MessageReceived(string, string) {}
func (nopObserver) Reconnected(string)             {}

// router sends one payload to the right handler method. Handler errors are
// logged and never stop the transport.
type router struct {
	name    string
	data    string
	control string
	h       Handler
	log     *slog.Logger
	obs     Observer
}

func newRouter(name, data, control string, h Handler, log *slog.Logger, obs Observer) router {
	if log == nil {
		log = logger.Discard()
	}
	if obs == nil {
		obs = nopObserver{}
	}
	return router{name: name, data: data, control: control, h: h, log: log.With("transport", name), obs: obs}
}

func (r router) deliver(topic string, payload []byte) {
	switch topic {
	case r.data:
		r.obs.MessageReceived(r.name, topic)
		if _, err := r.h.HandleMessage(payload); err != nil {
			r.log.Debug("message_failed", "topic", topic, "error", err)
		}
	case r.control:
		r.obs.MessageReceived(r.name, topic)
		if err := r.h.HandleCommand(payload); err != nil {
			r.log.Debug("command_failed", "topic", topic, "error", err)
		}
	default:
		r.log.Debug("message_ignored", "topic", topic)
	}
}
