package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-reminders/internal/config"
	"github.com/ukydev/fleet-reminders/internal/db"
	"github.com/ukydev/fleet-reminders/internal/lock"
	"github.com/ukydev/fleet-reminders/internal/metrics"
	"github.com/ukydev/fleet-reminders/internal/notify"
	"github.com/ukydev/fleet-reminders/internal/reminders"
	"github.com/ukydev/fleet-reminders/internal/scheduler"
)

// app holds the long-lived collaborators built from configuration.
type app struct {
	store     *db.Store
	registry  *prometheus.Registry
	publisher notify.Publisher
	job       *scheduler.Job
	closers   []func()
}

func newApp(cfg *config.Config, logger *log.Logger) (*app, error) {
	store, err := db.Open(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	a := &app{store: store}
	a.closers = append(a.closers, func() { _ = store.Close(context.Background()) })

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(a.registry)

	locker, closeLocker := newLocker(cfg)
	a.closers = append(a.closers, closeLocker)

	a.publisher, err = newPublisher(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.publisher.Close)

	generator := reminders.NewGenerator(store.Vehicles, store.Maintenance, store.Reminders, logger, rec)
	runner := reminders.NewRunner(store.Rules, generator,
		reminders.WithLocker(locker, cfg.LockTTL),
		reminders.WithLogger(logger),
		reminders.WithMetrics(rec),
	)
	a.job = scheduler.NewJob(runner, a.publisher, cfg.RunTimeout, logger)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newLocker selects the pass lock. Redis is needed when several instances
// serve the same database.
func newLocker(cfg *config.Config) (lock.Locker, func()) {
	if cfg.LockBackend == config.LockBackendRedis {
		client := lock.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
		return lock.NewRedisLocker(client, "fleet-reminders:"), func() { _ = client.Close() }
	}
	return lock.NewLocalLocker(), func() {}
}

func newPublisher(cfg *config.Config, logger log.FieldLogger) (notify.Publisher, error) {
	if cfg.MQTTBroker == "" {
		logger.Info("MQTT_BROKER not set, reminder events disabled")
		return notify.NopPublisher{}, nil
	}
	pub, err := notify.NewMQTTPublisher(notify.MQTTConfig{
		Broker:      cfg.MQTTBroker,
		ClientID:    cfg.MQTTClientID,
		TopicPrefix: cfg.MQTTTopicPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	logger.WithField("broker", cfg.MQTTBroker).Info("Publishing reminder events over MQTT")
	return pub, nil
}
