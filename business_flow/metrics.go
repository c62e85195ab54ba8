package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reviewsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_reviews_created_total",
			Help: "Total number of reviews submitted",
		},
	)

	complaintsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_complaints_total",
			Help: "Total number of complaints filed partitioned by type",
		},
		[]string{"type"},
	)

	accreditationTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_accreditation_transitions_total",
			Help: "Accreditation status changes partitioned by target status",
		},
		[]string{"to"},
	)

	newsletterEmailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_newsletter_emails_total",
			Help: "Newsletter emails attempted partitioned by outcome",
		},
		[]string{"outcome"},
	)
)
