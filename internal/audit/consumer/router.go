// Package consumer ingests audit entries published by sibling services on
// Kafka and appends them through the audit service.
package consumer

import (
	"context"
	"log/slog"

	"custos/internal/platform/kafka/consumer"
)

// TopicHandler handles messages from one topic.
type TopicHandler interface {
	Handle(ctx context.Context, msg *consumer.Message) error
}

// Router dispatches polled messages to the handler registered for their
// topic. Messages on unregistered topics are committed and dropped so a
// stray subscription cannot wedge the group.
type Router struct {
	handlers map[string]TopicHandler
	logger   *slog.Logger
}

func NewRouter(logger *slog.Logger) *Router {
	return &Router{
		handlers: make(map[string]TopicHandler),
		logger:   logger,
	}
}

// Register adds a handler for a topic, replacing any previous one.
func (r *Router) Register(topic string, handler TopicHandler) {
	r.handlers[topic] = handler
}

func (r *Router) Handle(ctx context.Context, msg *consumer.Message) error {
	handler, ok := r.handlers[msg.Topic]
	if !ok {
		r.logger.Warn("no handler for topic, skipping message",
			"topic", msg.Topic,
			"key", string(msg.Key),
		)
		return nil
	}
	return handler.Handle(ctx, msg)
}
