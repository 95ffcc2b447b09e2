// Package metrics holds the prometheus collectors of the assistant.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EventsReceived counts inbound events by message kind
	EventsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assistant",
		Name:      "events_received_total",
		Help:      "Inbound chat events by message kind.",
	}, []string{"kind"})

	// EventsFiltered counts events dropped before dispatch by reason
	EventsFiltered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assistant",
		Name:      "events_filtered_total",
		Help:      "Inbound events ignored before dispatch, by reason.",
	}, []string{"reason"})

	// Dispatched counts handled events by route
	Dispatched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assistant",
		Name:      "dispatched_total",
		Help:      "Handled events by route (command, image, chat, transcribe, ping).",
	}, []string{"route"})

	// InferenceFailures counts failed model calls by kind
	InferenceFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assistant",
		Name:      "inference_failures_total",
		Help:      "Failed inference calls by kind (chat, image, transcription).",
	}, []string{"kind"})

	// ChunksSent counts delivered reply chunks
	ChunksSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "assistant",
		Name:      "chunks_sent_total",
		Help:      "Reply chunks delivered to the chat client.",
	})

	// RepliesBlocked counts replies suppressed by an output block-word
	RepliesBlocked = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "assistant",
		Name:      "replies_blocked_total",
		Help:      "Replies suppressed because they contained a block-word.",
	})

	// SendFailures counts transport failures
	SendFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "assistant",
		Name:      "send_failures_total",
		Help:      "Failed sends or attachment saves.",
	})
)

func init() {
	prometheus.MustRegister(
		EventsReceived,
		EventsFiltered,
		Dispatched,
		InferenceFailures,
		ChunksSent,
		RepliesBlocked,
		SendFailures,
	)
}

// Handler exposes the registered collectors in the prometheus text format
func Handler() http.Handler {
	return promhttp.Handler()
}
