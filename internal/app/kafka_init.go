package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/messaging/kafka"
)

// initKafkaProducer поднимает Kafka producer для публикации outbox-событий.
// Пустой список брокеров не ошибка: сервис работает без Kafka, события
// накапливаются в outbox до появления publisher-а.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	if strings.TrimSpace(brokers) == "" {
		return nil, nil
	}

	brokerList := splitBrokers(brokers)
	producer, err := kafka.NewProducer(brokerList)
	if err != nil {
		logger.WithError(err).Warn("не удалось создать kafka producer")
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer инициализирован")
	return producer, nil
}

func splitBrokers(brokers string) []string {
	parts := strings.Split(brokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("ошибка при закрытии kafka producer")
		return
	}
	logger.Info("kafka producer закрыт")
}
