package rabbitmq

// Ключи маршрутизации событий о подписке.
const (
	RoutingActivated = "subscription.activated"
	RoutingExpired   = "subscription.expired"
)

// QueueConfig очередь и ключ, по которому она привязана к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues очереди, которые читает сервис уведомлений.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notifications.subscription_activated", RoutingKey: RoutingActivated},
		{QueueName: "notifications.subscription_expired", RoutingKey: RoutingExpired},
	}
}
