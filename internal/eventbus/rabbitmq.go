// Package eventbus repurposes the teacher's RabbitMQ connection pool into
// a project-status-changed fanout: instead of dispatching fuzzing tasks to
// worker queues, it broadcasts a lightweight notification whenever a
// project's status advances, so the gateway can keep a live status cache
// without polling the database on every request.
package eventbus

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ConnectionPoolSize is deliberately small: this pipeline has a handful of
// agent processes, not the teacher's fleet of fuzzing workers.
const ConnectionPoolSize = 3

// RabbitMQ hands out channels from a small pool of monitored connections,
// grounded on crs-scheduler's internal/messaging.RabbitMQ.
type RabbitMQ interface {
	GetChannel() (*amqp.Channel, error)
}

type rabbitMQImpl struct {
	logger      *zap.Logger
	rabbitmqURL string
	context     context.Context
	connections []*mqConnection
	mu          sync.Mutex
}

type mqConnection struct {
	conn      *amqp.Connection
	closeChan chan *amqp.Error
	logger    *zap.Logger

	closed bool
	mu     sync.Mutex
}

// Params is the fx.In bundle NewRabbitMQ needs.
type Params struct {
	fx.In

	RabbitMQURL string `name:"rabbitMQURL"`
	Logger      *zap.Logger
	Lifecycle   fx.Lifecycle
}

// NewRabbitMQ starts a small pool of monitored AMQP connections and tears
// it down on fx shutdown.
func NewRabbitMQ(p Params) RabbitMQ {
	mqCtx, cancel := context.WithCancel(context.Background())

	svc := &rabbitMQImpl{
		logger:      p.Logger,
		rabbitmqURL: p.RabbitMQURL,
		context:     mqCtx,
		connections: make([]*mqConnection, 0, ConnectionPoolSize),
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			svc.logger.Info("initializing rabbitmq connection pool", zap.Int("pool_size", ConnectionPoolSize))
			for range ConnectionPoolSize {
				conn, err := svc.newConnection()
				if err != nil {
					svc.logger.Error("failed to create initial rabbitmq connection", zap.Error(err))
					return err
				}
				svc.mu.Lock()
				svc.connections = append(svc.connections, conn)
				svc.mu.Unlock()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return nil
		},
	})
	return svc
}

func (r *rabbitMQImpl) newConnection() (*mqConnection, error) {
	conn, err := amqp.Dial(r.rabbitmqURL)
	if err != nil {
		return nil, err
	}
	mc := &mqConnection{conn: conn, closeChan: make(chan *amqp.Error), logger: r.logger}
	go mc.monitor(r.context)
	return mc, nil
}

func (c *mqConnection) monitor(ctx context.Context) {
	c.conn.NotifyClose(c.closeChan)
	select {
	case err := <-c.closeChan:
		c.logger.Warn("rabbitmq connection closed", zap.Error(err))
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
	case <-ctx.Done():
	}
	c.conn.Close()
}

func (r *rabbitMQImpl) activeConnection() (*mqConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	candidates := make([]*mqConnection, 0, len(r.connections))
	for _, c := range r.connections {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if !closed {
			candidates = append(candidates, c)
		}
	}

	if len(candidates) < ConnectionPoolSize {
		needed := ConnectionPoolSize - len(candidates)
		for range needed {
			conn, err := r.newConnection()
			if err != nil {
				r.logger.Warn("failed to refill rabbitmq connection pool", zap.Error(err))
				continue
			}
			r.connections = append(r.connections, conn)
			candidates = append(candidates, conn)
		}
	}

	if len(candidates) == 0 {
		return nil, errors.New("no active rabbitmq connections")
	}
	return candidates[rand.Intn(len(candidates))], nil
}

// GetChannel spins briefly until a channel from an active connection is
// available, bounded at 30s (short relative to the teacher's 5 minutes,
// since this pipeline treats the event bus as advisory, not load-bearing).
func (r *rabbitMQImpl) GetChannel() (*amqp.Channel, error) {
	ctx, cancel := context.WithTimeout(r.context, 30*time.Second)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil, errors.New("timed out acquiring rabbitmq channel")
		default:
			conn, err := r.activeConnection()
			if err != nil {
				continue
			}
			ch, err := conn.conn.Channel()
			if err != nil {
				continue
			}
			return ch, nil
		}
	}
}
