package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"warehouse-service/internal/fulfillment"
)

const maxSessionUpdateAttempts = 5

// Valores de la marca de confirmación
const (
	claimCompleting = "completing"
	claimCompleted  = "completed"
)

// stringGetter lo cumplen tanto *redis.Client como *redis.Tx
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// SessionStore persiste las sesiones de escaneo entre requests
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return fmt.Sprintf("scan_session:%s", id)
}

func claimKey(id string) string {
	return fmt.Sprintf("scan_session:%s:claim", id)
}

func (s *SessionStore) Save(ctx context.Context, session *fulfillment.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get devuelve fulfillment.ErrSessionNotFound si la sesión no existe o expiró
func (s *SessionStore) Get(ctx context.Context, id string) (*fulfillment.Session, error) {
	return s.load(ctx, s.client, id)
}

// Update aplica fn sobre la sesión con WATCH/MULTI, reintentando si otra
// escritura llegó entre la lectura y el EXEC. Si fn falla la sesión no cambia.
// Una sesión reclamada por Claim ya no acepta cambios.
func (s *SessionStore) Update(ctx context.Context, id string, fn func(*fulfillment.Session) error) (*fulfillment.Session, error) {
	key := sessionKey(id)
	var updated *fulfillment.Session

	txf := func(tx *redis.Tx) error {
		claimed, err := tx.Exists(ctx, claimKey(id)).Result()
		if err != nil {
			return fmt.Errorf("failed to check session claim: %w", err)
		}
		if claimed > 0 {
			return fmt.Errorf("session %s: %w", id, fulfillment.ErrSessionClaimed)
		}

		session, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(session); err != nil {
			return err
		}

		data, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("failed to encode session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		updated = session
		return nil
	}

	for attempt := 0; attempt < maxSessionUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key, claimKey(id))
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed to update session %s: too much contention", id)
}

// Claim marca la sesión para confirmarla. Solo una llamada gana mientras la
// marca exista; las demás reciben ErrSessionClaimed.
func (s *SessionStore) Claim(ctx context.Context, id string) error {
	ok, err := s.client.SetNX(ctx, claimKey(id), claimCompleting, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to claim session: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %s: %w", id, fulfillment.ErrSessionClaimed)
	}
	return nil
}

// Release quita la marca de una confirmación que no llegó a escribirse
func (s *SessionStore) Release(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, claimKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to release session claim: %w", err)
	}
	return nil
}

// Finish borra la sesión confirmada y deja la marca como completed hasta que
// expire, así una copia vieja de la sesión no puede volver a reclamarse.
func (s *SessionStore) Finish(ctx context.Context, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, claimKey(id), claimCompleted, s.ttl)
		pipe.Del(ctx, sessionKey(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	return nil
}

func (s *SessionStore) load(ctx context.Context, cmd stringGetter, id string) (*fulfillment.Session, error) {
	data, err := cmd.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fulfillment.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session fulfillment.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}
