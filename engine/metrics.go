package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var messagesScanned = promauto.NewCounter(prometheus.CounterOpts{
	Name: "linkgate_messages_scanned",
	Help: "Number of inbound messages run through the moderation decision",
})

var messagesDeleted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "linkgate_messages_deleted",
	Help: "Number of messages deleted for matching a block rule",
})

var watchmanScans = promauto.NewCounter(prometheus.CounterOpts{
	Name: "linkgate_watchman_scans",
	Help: "Number of watchman window rescans",
})

var deleteFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "linkgate_delete_failures",
	Help: "Number of deletions rejected at the messaging boundary",
})

var permissionDenials = promauto.NewCounter(prometheus.CounterOpts{
	Name: "linkgate_permission_denials",
	Help: "Number of deletions abandoned for missing permissions",
})
