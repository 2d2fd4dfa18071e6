package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JoinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waitlist_joins_total",
		Help: "Total number of waiting list joins, by resulting entry status",
	}, []string{"status"})

	JoinsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waitlist_joins_failed_total",
		Help: "Total number of rejected waiting list joins",
	}, []string{"reason"})

	OffersIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "waitlist_offers_issued_total",
		Help: "Total number of ticket offers issued to waiting users",
	})

	OffersExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "waitlist_offers_expired_total",
		Help: "Total number of ticket offers that lapsed unperformed",
	})

	OffersReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "waitlist_offers_released_total",
		Help: "Total number of ticket offers released early by users",
	})

	TicketsPurchasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "waitlist_tickets_purchased_total",
		Help: "Total number of offers converted into tickets",
	})

	PurchasesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waitlist_purchases_failed_total",
		Help: "Total number of failed purchase attempts",
	}, []string{"reason"})

	EventsCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "waitlist_events_cancelled_total",
		Help: "Total number of cancelled events",
	})

	SchedulerJobsFiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_jobs_fired_total",
		Help: "Total number of scheduled jobs fired successfully",
	}, []string{"kind"})

	SchedulerJobsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_jobs_failed_total",
		Help: "Total number of scheduled job handler failures",
	}, []string{"kind"})

	NotificationsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waitlist_notifications_sent_total",
		Help: "Total number of user notifications recorded",
	}, []string{"event_type"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
