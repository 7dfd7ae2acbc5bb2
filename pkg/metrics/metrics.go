package metrics

import (
  "github.com/prometheus/client_golang/prometheus"
  "github.com/prometheus/client_golang/prometheus/promhttp"
  "net/http"
)

var (
  // Horizon metrics
  HorizonRequests = prometheus.NewCounterVec(
    prometheus.CounterOpts{
      Name: "compass_horizon_requests_total",
      Help: "Total Horizon API requests",
    },
    []string{"endpoint", "status"},
  )
  HorizonLatency = prometheus.NewHistogramVec(
    prometheus.HistogramOpts{
      Name:    "compass_horizon_request_duration_seconds",
      Help:    "Horizon API request duration",
      Buckets: prometheus.DefBuckets,
    },
    []string{"endpoint"},
  )

  // Portfolio metrics
  PortfolioFetches = prometheus.NewCounter(
    prometheus.CounterOpts{
      Name: "compass_portfolio_fetches_total",
      Help: "Total portfolio fetches",
    })
  PortfolioErrors = prometheus.NewCounter(
    prometheus.CounterOpts{
      Name: "compass_portfolio_errors_total",
      Help: "Portfolio fetch errors",
    })
  PortfolioLatency = prometheus.NewHistogram(
    prometheus.HistogramOpts{
      Name:    "compass_portfolio_fetch_duration_seconds",
      Help:    "Time to assemble one portfolio",
      Buckets: prometheus.DefBuckets,
    })

  // Opportunity metrics
  OpportunityMatches = prometheus.NewCounter(
    prometheus.CounterOpts{
      Name: "compass_opportunity_matches_total",
      Help: "Total opportunities matched against portfolios",
    })
  OpportunityErrors = prometheus.NewCounter(
    prometheus.CounterOpts{
      Name: "compass_opportunity_errors_total",
      Help: "Opportunity matching errors",
    })

  // Agent metrics
  AgentChecks = prometheus.NewCounterVec(
    prometheus.CounterOpts{
      Name: "compass_agent_checks_total",
      Help: "Total agent check cycles",
    },
    []string{"agent"},
  )
  AgentErrors = prometheus.NewCounterVec(
    prometheus.CounterOpts{
      Name: "compass_agent_errors_total",
      Help: "Agent check errors",
    },
    []string{"agent"},
  )
  AlertsEmitted = prometheus.NewCounterVec(
    prometheus.CounterOpts{
      Name: "compass_alerts_emitted_total",
      Help: "Alerts emitted onto the alert stream",
    },
    []string{"type", "priority"},
  )

  // Notifier metrics
  NotificationsSent = prometheus.NewCounterVec(
    prometheus.CounterOpts{
      Name: "compass_notifications_sent_total",
      Help: "Notifications delivered per channel",
    },
    []string{"channel"},
  )
  NotificationErrors = prometheus.NewCounterVec(
    prometheus.CounterOpts{
      Name: "compass_notification_errors_total",
      Help: "Notification delivery errors per channel",
    },
    []string{"channel"},
  )

  // API metrics
  APIRequestDuration = prometheus.NewHistogramVec(
    prometheus.HistogramOpts{
      Name:    "api_request_duration_seconds",
      Help:    "API request duration",
      Buckets: prometheus.DefBuckets,
    },
    []string{"method", "endpoint", "status"},
  )
  APIRequestTotal = prometheus.NewCounterVec(
    prometheus.CounterOpts{
      Name: "api_requests_total",
      Help: "Total API requests",
    },
    []string{"method", "endpoint", "status"},
  )
  WSClients = prometheus.NewGauge(
    prometheus.GaugeOpts{
      Name: "compass_ws_clients",
      Help: "Connected alert-stream websocket clients",
    })

  // Redis metrics
  RedisOperationDuration = prometheus.NewHistogramVec(
    prometheus.HistogramOpts{
      Name:    "redis_operation_duration_seconds",
      Help:    "Redis operation duration",
      Buckets: prometheus.DefBuckets,
    },
    []string{"operation", "status"},
  )
  RedisErrors = prometheus.NewCounterVec(
    prometheus.CounterOpts{
      Name: "redis_errors_total",
      Help: "Total Redis errors",
    },
    []string{"operation"},
  )
)

func init() {
  // MustRegister panics if registration fails (e.g. duplicate)
  prometheus.MustRegister(
    HorizonRequests, HorizonLatency,
    PortfolioFetches, PortfolioErrors, PortfolioLatency,
    OpportunityMatches, OpportunityErrors,
    AgentChecks, AgentErrors, AlertsEmitted,
    NotificationsSent, NotificationErrors,
    APIRequestDuration, APIRequestTotal, WSClients,
    RedisOperationDuration, RedisErrors,
  )
}

// Handler exposes the default registry over HTTP.
func Handler() http.Handler {
  return promhttp.Handler()
}
