package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vbncursed/vkr/pass-service/internal/models"
	"github.com/vbncursed/vkr/pass-service/internal/service"
)

const uniqueViolation = "23505"

// Store адаптер Postgres, реализующий порты service.*
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

// Ping проверяет доступность БД
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func scanPass(row pgx.Row) (models.PassRecord, error) {
	var r models.PassRecord
	err := row.Scan(&r.ID, &r.PassTypeID, &r.SerialNumber, &r.AuthenticationToken, &r.Hash, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.PassRecord{}, service.ErrNotFound
	}
	r.CreatedAt, r.UpdatedAt = r.CreatedAt.UTC(), r.UpdatedAt.UTC()
	return r, err
}

// PassRepository
func (s *Store) GetPass(ctx context.Context, key models.PassKey) (models.PassRecord, error) {
	return scanPass(s.pool.QueryRow(ctx,
		`SELECT `+passColumns+` FROM `+tablePasses+` WHERE `+colPassTypeID+`=$1 AND `+colSerialNumber+`=$2`,
		key.PassTypeID, key.SerialNumber))
}

func (s *Store) GetPassByToken(ctx context.Context, key models.PassKey, token string) (models.PassRecord, error) {
	return scanPass(s.pool.QueryRow(ctx,
		`SELECT `+passColumns+` FROM `+tablePasses+` WHERE `+colPassTypeID+`=$1 AND `+colSerialNumber+`=$2 AND `+colAuthToken+`=$3`,
		key.PassTypeID, key.SerialNumber, token))
}

// InsertPass возвращает ErrConflict, если ключ занят
func (s *Store) InsertPass(ctx context.Context, r models.PassRecord) error {
	cmd := `INSERT INTO ` + tablePasses + ` (` + passColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := s.pool.Exec(ctx, cmd,
		r.ID, r.PassTypeID, r.SerialNumber, r.AuthenticationToken, r.Hash, r.CreatedAt, r.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return service.ErrConflict
	}
	return err
}

// UpdatePassHash меняет хеш, только пока он равен expectedHash; ErrNotFound/ErrConflict
func (s *Store) UpdatePassHash(ctx context.Context, key models.PassKey, expectedHash, newHash string, updatedAt time.Time) error {
	cmd := `UPDATE ` + tablePasses + ` SET ` + colHash + `=$1, ` + colUpdatedAt + `=$2
            WHERE ` + colPassTypeID + `=$3 AND ` + colSerialNumber + `=$4 AND ` + colHash + `=$5`
	tag, err := s.pool.Exec(ctx, cmd, newHash, updatedAt, key.PassTypeID, key.SerialNumber, expectedHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM "+tablePasses+" WHERE "+colPassTypeID+"=$1 AND "+colSerialNumber+"=$2)",
		key.PassTypeID, key.SerialNumber).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return service.ErrNotFound
	}
	return service.ErrConflict
}

// RegistrationRepository
func (s *Store) ListPushTokens(ctx context.Context, passID uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT `+colPushToken+` FROM `+tableRegistrations+` WHERE `+colPassID+`=$1 ORDER BY `+colPushToken,
		passID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// UpsertRegistration сохраняет push-токен устройства.
// xmax = 0 только у только что вставленной строки.
func (s *Store) UpsertRegistration(ctx context.Context, r models.Registration) (bool, error) {
	cmd := `INSERT INTO ` + tableRegistrations + ` (` + colID + `, ` + colPassID + `, ` + colDeviceLibraryID + `, ` + colPushToken + `, ` + colCreatedAt + `)
            VALUES ($1,$2,$3,$4,$5)
            ON CONFLICT (` + colPassID + `, ` + colDeviceLibraryID + `) DO UPDATE SET ` + colPushToken + `=EXCLUDED.` + colPushToken + `
            RETURNING (xmax = 0)`
	var created bool
	err := s.pool.QueryRow(ctx, cmd, r.ID, r.PassID, r.DeviceLibraryID, r.PushToken, r.CreatedAt).Scan(&created)
	return created, err
}

func (s *Store) DeleteRegistration(ctx context.Context, passID uuid.UUID, deviceLibraryID string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM `+tableRegistrations+` WHERE `+colPassID+`=$1 AND `+colDeviceLibraryID+`=$2`,
		passID, deviceLibraryID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) ListUpdatedPasses(ctx context.Context, deviceLibraryID, passTypeID string, since time.Time) ([]models.PassRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT p.`+colID+`, p.`+colPassTypeID+`, p.`+colSerialNumber+`, p.`+colAuthToken+`, p.`+colHash+`, p.`+colCreatedAt+`, p.`+colUpdatedAt+`
            FROM `+tablePasses+` p JOIN `+tableRegistrations+` r ON r.`+colPassID+` = p.`+colID+`
            WHERE r.`+colDeviceLibraryID+`=$1 AND p.`+colPassTypeID+`=$2 AND p.`+colUpdatedAt+` > $3
            ORDER BY p.`+colSerialNumber,
		deviceLibraryID, passTypeID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.PassRecord
	for rows.Next() {
		r, err := scanPass(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
