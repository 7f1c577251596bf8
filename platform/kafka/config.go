package kafka

// Config содержит конфигурацию для подключения к Kafka
// Разбирается caarlos0/env как вложенная структура конфигурации сервиса
type Config struct {
	// Brokers - список брокеров Kafka через запятую: "broker1:9092,broker2:9092"
	//   - локальная разработка (go run): localhost:19092
	//   - запуск в Docker: kafka:9092
	// Пустой список означает, что события только пишутся в лог.
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	// TopicPrefix - префикс топиков: каждый тип события публикуется в TopicPrefix + тип,
	// например inventory.stock.reserved
	TopicPrefix string `env:"KAFKA_TOPIC_PREFIX" envDefault:"inventory."`
}

// Enabled сообщает, заданы ли брокеры
func (c Config) Enabled() bool {
	return len(c.Brokers) > 0
}
