// Package metrics объявляет метрики Prometheus сервиса.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QuotaRejected отказы бесплатным пользователям из-за исчерпанного лимита.
	QuotaRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "patriot_desa",
		Name:      "quota_rejected_total",
		Help:      "Chat requests rejected because the daily free quota is exhausted.",
	})

	// ChatStreams завершенные потоки ответа по результату.
	ChatStreams = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "patriot_desa",
		Name:      "chat_streams_total",
		Help:      "Completion streams relayed to clients by result.",
	}, []string{"result"})

	// UpstreamErrors ошибки API модели по HTTP-статусу.
	UpstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "patriot_desa",
		Name:      "completion_upstream_errors_total",
		Help:      "Non-2xx responses from the completion API.",
	}, []string{"status"})

	// WebhookEvents уведомления платежного шлюза по исходу обработки.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "patriot_desa",
		Name:      "webhook_events_total",
		Help:      "Payment gateway notifications by outcome.",
	}, []string{"outcome"})

	// SubscriptionsDowngraded истекшие премиум-подписки, переведенные на бесплатный тариф.
	SubscriptionsDowngraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "patriot_desa",
		Name:      "subscriptions_downgraded_total",
		Help:      "Expired premium subscriptions downgraded to free.",
	}, []string{"source"})
)
