package service

import (
	"context"
	"sync"
	"time"

	"github.com/vbncursed/vkr/pass-service/internal/logger"
	"github.com/vbncursed/vkr/pass-service/internal/models"
)

const defaultPushTimeout = 30 * time.Second

// Dispatcher рассылает push устройствам пропуска в фоне; результат только логируется
type Dispatcher struct {
	registrations RegistrationRepository
	notifier      Notifier
	timeout       time.Duration
	wg            sync.WaitGroup
}

func NewDispatcher(registrations RegistrationRepository, notifier Notifier, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultPushTimeout
	}
	return &Dispatcher{registrations: registrations, notifier: notifier, timeout: timeout}
}

// Dispatch не ждёт отправки: push живёт дольше запроса, но сохраняет поля логгера
func (d *Dispatcher) Dispatch(ctx context.Context, rec models.PassRecord) {
	if d.notifier == nil || d.registrations == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		if err := d.push(ctx, rec); err != nil {
			logger.GetLogger(ctx).WithError(err).Warn("push dispatch failed")
		}
	}()
}

func (d *Dispatcher) push(ctx context.Context, rec models.PassRecord) error {
	tokens, err := d.registrations.ListPushTokens(ctx, rec.ID)
	if err != nil {
		return err
	}
	log := logger.GetLogger(ctx).WithField("devices", len(tokens))
	if len(tokens) == 0 {
		log.Debug("no registered devices")
		return nil
	}
	if err := d.notifier.Notify(ctx, rec.PassTypeID, tokens); err != nil {
		return err
	}
	log.Info("push dispatched")
	return nil
}

func (d *Dispatcher) Wait() { d.wg.Wait() }
