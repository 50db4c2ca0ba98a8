package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vbncursed/vkr/pass-service/internal/logger"
	"github.com/vbncursed/vkr/pass-service/internal/models"
)

// RegisterDevice подписывает устройство на push по пропуску; true, если регистрация новая
func (s *Service) RegisterDevice(ctx context.Context, deviceLibraryID string, key models.PassKey, token, pushToken string) (bool, error) {
	if strings.TrimSpace(deviceLibraryID) == "" || strings.TrimSpace(pushToken) == "" {
		return false, fmt.Errorf("%w: device and push token required", ErrInvalidInput)
	}
	rec, err := s.authorize(ctx, key, token)
	if err != nil {
		return false, err
	}
	created, err := s.registrations.UpsertRegistration(ctx, models.Registration{
		ID:              uuid.New(),
		PassID:          rec.ID,
		DeviceLibraryID: deviceLibraryID,
		PushToken:       pushToken,
		CreatedAt:       s.now(),
	})
	if err != nil {
		return false, err
	}
	logger.GetLogger(withPassFields(ctx, key)).WithFields(logrus.Fields{
		"device":  deviceLibraryID,
		"created": created,
	}).Info("device registered")
	return created, nil
}

func (s *Service) UnregisterDevice(ctx context.Context, deviceLibraryID string, key models.PassKey, token string) error {
	rec, err := s.authorize(ctx, key, token)
	if err != nil {
		return err
	}
	removed, err := s.registrations.DeleteRegistration(ctx, rec.ID, deviceLibraryID)
	if err != nil {
		return err
	}
	logger.GetLogger(withPassFields(ctx, key)).WithFields(logrus.Fields{
		"device":  deviceLibraryID,
		"removed": removed,
	}).Info("device unregistered")
	return nil
}

// UpdatedSerials отдаёт серийные номера, обновлённые после тега since.
// Тег это UpdatedAt в unix-микросекундах, пустой тег отдаёт все пропуски.
func (s *Service) UpdatedSerials(ctx context.Context, deviceLibraryID, passTypeID, since string) (UpdatedSerialsResult, error) {
	var sinceT time.Time
	if since != "" {
		n, err := strconv.ParseInt(since, 10, 64)
		if err != nil {
			return UpdatedSerialsResult{}, fmt.Errorf("%w: passesUpdatedSince", ErrInvalidInput)
		}
		sinceT = time.UnixMicro(n).UTC()
	}
	recs, err := s.registrations.ListUpdatedPasses(ctx, deviceLibraryID, passTypeID, sinceT)
	if err != nil {
		return UpdatedSerialsResult{}, err
	}
	res := UpdatedSerialsResult{SerialNumbers: make([]string, 0, len(recs))}
	var last time.Time
	for _, r := range recs {
		res.SerialNumbers = append(res.SerialNumbers, r.SerialNumber)
		if r.UpdatedAt.After(last) {
			last = r.UpdatedAt
		}
	}
	if len(recs) > 0 {
		res.LastUpdated = strconv.FormatInt(last.UnixMicro(), 10)
	}
	return res, nil
}

// RecordDeviceLogs пишет в лог сообщения устройств
func (s *Service) RecordDeviceLogs(ctx context.Context, messages []string) {
	log := logger.GetLogger(ctx).WithField("source", "device")
	for _, m := range messages {
		log.Info(m)
	}
}
