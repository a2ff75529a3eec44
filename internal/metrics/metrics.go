package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weddingpool_events_created_total",
		Help: "Number of events created.",
	})
	EventsJoined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weddingpool_events_joined_total",
		Help: "Number of successful access-code redemptions, including repeats.",
	})
	BetsPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weddingpool_bets_placed_total",
		Help: "Number of bets placed or updated.",
	})
	CategoriesSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weddingpool_categories_settled_total",
		Help: "Number of categories settled.",
	})
	TotalsCorrected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weddingpool_totals_corrected_total",
		Help: "Participant totals corrected by the reconciliation pass.",
	})
)
