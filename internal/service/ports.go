package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vbncursed/vkr/pass-service/internal/crypto"
	"github.com/vbncursed/vkr/pass-service/internal/models"
	"github.com/vbncursed/vkr/pass-service/internal/pkpass"
)

// Clock абстрагирует время для тестируемости
type Clock interface {
	Now() time.Time
}

// TokenSource генерирует authenticationToken для новых пропусков
type TokenSource interface {
	NewToken() (string, error)
}

// PassRepository порт хранения записей пропусков по (passTypeId, serialNumber)
type PassRepository interface {
	// ErrNotFound, если записи нет
	GetPass(ctx context.Context, key models.PassKey) (models.PassRecord, error)
	// ErrNotFound, если не совпал ключ или токен
	GetPassByToken(ctx context.Context, key models.PassKey, token string) (models.PassRecord, error)
	// ErrConflict, если ключ уже занят
	InsertPass(ctx context.Context, rec models.PassRecord) error
	// CAS по expectedHash, иначе ErrConflict
	UpdatePassHash(ctx context.Context, key models.PassKey, expectedHash, newHash string, updatedAt time.Time) error
}

// RegistrationRepository порт регистраций устройств
type RegistrationRepository interface {
	ListPushTokens(ctx context.Context, passID uuid.UUID) ([]string, error)
	// true, если регистрация создана
	UpsertRegistration(ctx context.Context, reg models.Registration) (bool, error)
	DeleteRegistration(ctx context.Context, passID uuid.UUID, deviceLibraryID string) (bool, error)
	// пропуски типа passTypeID на устройстве, обновлённые строго после since
	ListUpdatedPasses(ctx context.Context, deviceLibraryID, passTypeID string, since time.Time) ([]models.PassRecord, error)
}

// BundleStore хранит подписанный бандл каждого пропуска
type BundleStore interface {
	Write(ctx context.Context, passTypeID, serialNumber string, data []byte) error
	Read(ctx context.Context, passTypeID, serialNumber string) ([]byte, error)
}

// CredentialStore отдаёт ключи подписи по типу пропуска
type CredentialStore interface {
	Load(passTypeID string) (*crypto.Credentials, error)
}

// Builder собирает подписанный бандл
type Builder interface {
	Build(p *pkpass.Pass, signer pkpass.Signer) ([]byte, error)
}

// Notifier шлёт тихий push на токены устройств в topic
type Notifier interface {
	Notify(ctx context.Context, topic string, tokens []string) error
}

// CreateResult результат CreatePass; Changed=false, если хеш не изменился
type CreateResult struct {
	Record  models.PassRecord
	PassURL string
	Changed bool
}

// UpdateCommand заменяет все три поля целиком; пустое значение очищает поле
type UpdateCommand struct {
	Key            models.PassKey
	BarcodeMessage string
	BarcodeAltText string
	ExpirationDate string
}

type UpdateResult struct {
	Record  models.PassRecord
	Changed bool
}

// FetchResult бандл для выдачи; при NotModified Data пустой
type FetchResult struct {
	Data        []byte
	UpdatedAt   time.Time
	NotModified bool
}

type UpdatedSerialsResult struct {
	SerialNumbers []string
	LastUpdated   string
}
