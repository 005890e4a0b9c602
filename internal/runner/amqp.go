package runner

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"

	"kairoi/internal/engine"
)

// runAmqp implements the AMQP back-end (§4.3), mirroring
// original_source/src/processor/amqp.rs: open-or-reuse a cached connection
// for the rule's DSN, passively verify the exchange, publish the job
// identifier as the message body, and evict the cached connection on any
// failure so the next attempt opens a fresh one. Must only be called from
// an AMQP worker goroutine; the connection cache is not safe for concurrent
// use from multiple goroutines against the *same* DSN without that
// serialization (§5 "a small set of dedicated worker threads that own the
// connection cache").
func (p *Pool) runAmqp(ctx context.Context, execution Execution) {
	if len(execution.Rule.RunnerArgs) != 3 {
		p.report(ctx, execution, engine.OutcomeFailed, "InvalidAmqpRunnerArgs")
		return
	}
	dsn, exchange, routingKey := execution.Rule.RunnerArgs[0], execution.Rule.RunnerArgs[1], execution.Rule.RunnerArgs[2]

	ch, err := p.amqpChannel(dsn)
	if err != nil {
		p.cfg.Logger.Debug("amqp connection failed", "job", execution.Job.ID, "error", err)
		p.report(ctx, execution, engine.OutcomeFailed, "ConnectionFailed")

		return
	}

	if err := ch.ExchangeDeclarePassive(exchange, "topic", true, false, false, false, nil); err != nil {
		p.cache.evict(dsn)
		p.cfg.Logger.Debug("amqp exchange invalid", "job", execution.Job.ID, "exchange", exchange, "error", err)
		p.report(ctx, execution, engine.OutcomeFailed, "InvalidExchange")

		return
	}

	err = ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		Body: []byte(execution.Job.ID),
	})
	if err != nil {
		p.cache.evict(dsn)
		p.cfg.Logger.Debug("amqp publish failed", "job", execution.Job.ID, "error", err)
		p.report(ctx, execution, engine.OutcomeFailed, "PublishingFailed")

		return
	}

	p.cfg.Logger.Debug("amqp runner published", "job", execution.Job.ID, "exchange", exchange)
	p.report(ctx, execution, engine.OutcomeExecuted, "")
}

func (p *Pool) amqpChannel(dsn string) (*amqp.Channel, error) {
	if ch, ok := p.cache.get(dsn); ok {
		return ch, nil
	}

	conn, err := amqp.Dial(dsn)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	p.cache.put(dsn, conn, ch)

	return ch, nil
}
