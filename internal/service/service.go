package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vbncursed/vkr/pass-service/internal/lock"
	"github.com/vbncursed/vkr/pass-service/internal/logger"
	"github.com/vbncursed/vkr/pass-service/internal/models"
	"github.com/vbncursed/vkr/pass-service/internal/pkpass"
)

// Deps зависимости Service, создаются один раз при старте
type Deps struct {
	Passes        PassRepository
	Registrations RegistrationRepository
	Bundles       BundleStore
	Credentials   CredentialStore
	Builder       Builder
	Notifier      Notifier
	Locker        lock.Locker
	Clock         Clock
	Tokens        TokenSource
	WebServiceURL string
	PushTimeout   time.Duration
}

// Service реализует use case'ы пропусков: выпуск, обновление, выдачу, регистрации
type Service struct {
	passes        PassRepository
	registrations RegistrationRepository
	bundles       BundleStore
	credentials   CredentialStore
	builder       Builder
	locker        lock.Locker
	clock         Clock
	tokens        TokenSource
	dispatcher    *Dispatcher
	webServiceURL string
}

func New(d Deps) *Service {
	if d.Builder == nil {
		d.Builder = BundleBuilder{}
	}
	if d.Locker == nil {
		d.Locker = lock.NewKeyedMutex()
	}
	if d.Clock == nil {
		d.Clock = RealClock{}
	}
	if d.Tokens == nil {
		d.Tokens = RandomTokens{}
	}
	return &Service{
		passes:        d.Passes,
		registrations: d.Registrations,
		bundles:       d.Bundles,
		credentials:   d.Credentials,
		builder:       d.Builder,
		locker:        d.Locker,
		clock:         d.Clock,
		tokens:        d.Tokens,
		dispatcher:    NewDispatcher(d.Registrations, d.Notifier, d.PushTimeout),
		webServiceURL: d.WebServiceURL,
	}
}

// Wait ждёт завершения фоновых push
func (s *Service) Wait() { s.dispatcher.Wait() }

func (s *Service) now() time.Time {
	// microseconds: the precision Postgres keeps
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

// PassURL абсолютный URL выдачи пропуска
func (s *Service) PassURL(rec models.PassRecord) string {
	return fmt.Sprintf("%s/v1/passes/%s/%s?authenticationToken=%s",
		s.webServiceURL,
		url.PathEscape(rec.PassTypeID),
		url.PathEscape(rec.SerialNumber),
		url.QueryEscape(rec.AuthenticationToken))
}

// CreatePass выпускает пропуск из шаблона. Существующая запись сохраняет токен;
// если содержимое не изменилось, ничего не пишется.
func (s *Service) CreatePass(ctx context.Context, template []byte) (CreateResult, error) {
	p, err := pkpass.Read(template)
	if err != nil {
		return CreateResult{}, err
	}
	key := models.PassKey{PassTypeID: p.PassTypeIdentifier(), SerialNumber: p.SerialNumber()}
	if key.PassTypeID == "" || key.SerialNumber == "" {
		return CreateResult{}, pkpass.Validate(p)
	}
	ctx = withPassFields(ctx, key)
	log := logger.GetLogger(ctx)

	creds, err := s.credentials.Load(key.PassTypeID)
	if err != nil {
		return CreateResult{}, err
	}

	unlock, err := s.locker.Lock(ctx, key.String())
	if err != nil {
		return CreateResult{}, fmt.Errorf("lock %s: %w", key, err)
	}
	defer unlock()

	rec, err := s.passes.GetPass(ctx, key)
	exists := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return CreateResult{}, err
	}

	token := rec.AuthenticationToken
	if !exists {
		if token, err = s.tokens.NewToken(); err != nil {
			return CreateResult{}, fmt.Errorf("token: %w", err)
		}
	}
	if err := p.SetWebServiceURL(s.webServiceURL); err != nil {
		return CreateResult{}, err
	}
	if err := p.SetAuthenticationToken(token); err != nil {
		return CreateResult{}, err
	}
	if err := pkpass.Validate(p); err != nil {
		return CreateResult{}, err
	}

	hash := pkpass.Hash(p)
	if exists && rec.Hash == hash {
		log.Debug("create: content unchanged")
		return CreateResult{Record: rec, PassURL: s.PassURL(rec), Changed: false}, nil
	}

	bundle, err := s.builder.Build(p, creds)
	if err != nil {
		return CreateResult{}, fmt.Errorf("build: %w", err)
	}

	now := s.now()
	if !exists {
		rec = models.PassRecord{
			ID:                  uuid.New(),
			PassTypeID:          key.PassTypeID,
			SerialNumber:        key.SerialNumber,
			AuthenticationToken: token,
			Hash:                hash,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := s.commit(ctx, key, nil, bundle, func() error { return s.passes.InsertPass(ctx, rec) }); err != nil {
			return CreateResult{}, err
		}
		log.WithField("hash", hash).Info("pass created")
		return CreateResult{Record: rec, PassURL: s.PassURL(rec), Changed: true}, nil
	}

	prev, err := s.bundles.Read(ctx, key.PassTypeID, key.SerialNumber)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warn("create: stored bundle missing, writing a fresh one")
	case err != nil:
		return CreateResult{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	oldHash := rec.Hash
	if err := s.commit(ctx, key, prev, bundle, func() error {
		return s.passes.UpdatePassHash(ctx, key, oldHash, hash, now)
	}); err != nil {
		return CreateResult{}, err
	}
	rec.Hash, rec.UpdatedAt = hash, now
	log.WithField("hash", hash).Info("pass replaced from template")
	s.dispatcher.Dispatch(ctx, rec)
	return CreateResult{Record: rec, PassURL: s.PassURL(rec), Changed: true}, nil
}

// UpdatePass перезаписывает первый штрихкод и expirationDate
func (s *Service) UpdatePass(ctx context.Context, cmd UpdateCommand) (UpdateResult, error) {
	key := cmd.Key
	ctx = withPassFields(ctx, key)
	log := logger.GetLogger(ctx)

	unlock, err := s.locker.Lock(ctx, key.String())
	if err != nil {
		return UpdateResult{}, fmt.Errorf("lock %s: %w", key, err)
	}
	defer unlock()

	rec, err := s.passes.GetPass(ctx, key)
	if err != nil {
		return UpdateResult{}, err
	}

	prev, err := s.bundles.Read(ctx, key.PassTypeID, key.SerialNumber)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	p, err := pkpass.Read(prev)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("%w: stored bundle: %v", ErrStorage, err)
	}
	creds, err := s.credentials.Load(key.PassTypeID)
	if err != nil {
		return UpdateResult{}, err
	}

	if !p.HasBarcode() && (cmd.BarcodeMessage != "" || cmd.BarcodeAltText != "") {
		log.Debug("update: pass has no barcode, barcode fields ignored")
	}
	if err := p.SetBarcode(cmd.BarcodeMessage, cmd.BarcodeAltText); err != nil {
		return UpdateResult{}, err
	}
	if err := p.SetExpirationDate(cmd.ExpirationDate); err != nil {
		return UpdateResult{}, err
	}
	if err := pkpass.Validate(p); err != nil {
		return UpdateResult{}, err
	}

	hash := pkpass.Hash(p)
	if hash == rec.Hash {
		log.Debug("update: content unchanged")
		return UpdateResult{Record: rec, Changed: false}, nil
	}

	bundle, err := s.builder.Build(p, creds)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("build: %w", err)
	}
	now := s.now()
	oldHash := rec.Hash
	if err := s.commit(ctx, key, prev, bundle, func() error {
		return s.passes.UpdatePassHash(ctx, key, oldHash, hash, now)
	}); err != nil {
		return UpdateResult{}, err
	}
	rec.Hash, rec.UpdatedAt = hash, now
	log.WithField("hash", hash).Info("pass updated")
	s.dispatcher.Dispatch(ctx, rec)
	return UpdateResult{Record: rec, Changed: true}, nil
}

// commit пишет бандл, затем запись; при сбое записи возвращает прежний бандл
func (s *Service) commit(ctx context.Context, key models.PassKey, prev, bundle []byte, persist func() error) error {
	if err := s.bundles.Write(ctx, key.PassTypeID, key.SerialNumber, bundle); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if err := persist(); err != nil {
		if prev != nil {
			if rerr := s.bundles.Write(context.WithoutCancel(ctx), key.PassTypeID, key.SerialNumber, prev); rerr != nil {
				logger.GetLogger(ctx).WithError(rerr).Error("restore previous bundle failed")
			}
		}
		return err
	}
	return nil
}

// FetchPass отдаёт бандл по токену. Неизвестный ключ и чужой токен дают
// ErrUnauthorized; NotModified, если updatedAt не строго позже ifModifiedSince.
func (s *Service) FetchPass(ctx context.Context, key models.PassKey, token string, ifModifiedSince *time.Time) (FetchResult, error) {
	rec, err := s.authorize(ctx, key, token)
	if err != nil {
		return FetchResult{}, err
	}
	if ifModifiedSince != nil && !rec.UpdatedAt.After(*ifModifiedSince) {
		return FetchResult{UpdatedAt: rec.UpdatedAt, NotModified: true}, nil
	}
	data, err := s.bundles.Read(ctx, key.PassTypeID, key.SerialNumber)
	if err != nil {
		return FetchResult{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return FetchResult{Data: data, UpdatedAt: rec.UpdatedAt}, nil
}

func (s *Service) authorize(ctx context.Context, key models.PassKey, token string) (models.PassRecord, error) {
	if token == "" {
		return models.PassRecord{}, ErrUnauthorized
	}
	rec, err := s.passes.GetPassByToken(ctx, key, token)
	if errors.Is(err, ErrNotFound) {
		return models.PassRecord{}, ErrUnauthorized
	}
	return rec, err
}

func withPassFields(ctx context.Context, key models.PassKey) context.Context {
	return logger.WithFields(ctx, logrus.Fields{
		"pass_type_id":  key.PassTypeID,
		"serial_number": key.SerialNumber,
	})
}
