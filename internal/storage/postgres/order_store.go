package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/helpdesk/internal/domain"
)

const (
	opTimeout     = 5 * time.Second
	notifyChannel = "orders_changed"

	// serverNowJSON строит отметку времени хранилища в том же виде, что и domain.Timestamp.
	serverNowJSON = `jsonb_build_object(
		'seconds', floor(extract(epoch FROM now()))::bigint,
		'nanoseconds', (extract(microseconds FROM now())::bigint % 1000000) * 1000
	)`

	// serverFieldsJSON: объект {field: serverNow} для ключей из массива.
	serverFieldsJSON = `(SELECT COALESCE(jsonb_object_agg(k, ` + serverNowJSON + `), '{}'::jsonb) FROM unnest($3::text[]) AS k)`
)

// Watch держит LISTEN orders_changed на отдельном соединении пула и после
// каждого уведомления перечитывает отфильтрованную выборку.
func (s *Store) Watch(ctx context.Context, status domain.OrderStatus, onSnapshot func([]domain.DocumentSnapshot), onError func(error)) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("postgres store is not initialized")
	}

	watchCtx, cancel := context.WithCancel(ctx)
	key, err := s.registerWatcher(cancel)
	if err != nil {
		cancel()
		return err
	}

	conn, err := s.pool.Acquire(watchCtx)
	if err != nil {
		s.unregisterWatcher(key)
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	if _, err := conn.Exec(watchCtx, "LISTEN "+notifyChannel); err != nil {
		conn.Release()
		s.unregisterWatcher(key)
		return fmt.Errorf("listen %s: %w", notifyChannel, err)
	}

	go func() {
		defer s.unregisterWatcher(key)
		defer func() {
			unlistenCtx, cancelUnlisten := context.WithTimeout(context.Background(), time.Second)
			_, _ = conn.Exec(unlistenCtx, "UNLISTEN "+notifyChannel)
			cancelUnlisten()
			conn.Release()
		}()

		err := s.listen(watchCtx, conn.Conn(), status, onSnapshot)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			// Отмена вызывающей стороной.
		case watchCtx.Err() != nil:
			if onError != nil {
				onError(ErrStoreClosed)
			}
		default:
			if onError != nil {
				onError(err)
			}
		}
	}()
	return nil
}

func (s *Store) listen(ctx context.Context, conn *pgx.Conn, status domain.OrderStatus, onSnapshot func([]domain.DocumentSnapshot)) error {
	for {
		snap, err := s.query(ctx, status)
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if onSnapshot != nil {
			onSnapshot(snap)
		}

		if _, err := conn.WaitForNotification(ctx); err != nil {
			return fmt.Errorf("wait for %s notification: %w", notifyChannel, err)
		}
	}
}

func (s *Store) query(ctx context.Context, status domain.OrderStatus) ([]domain.DocumentSnapshot, error) {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := s.pool.Query(queryCtx, `
		SELECT id, doc
		FROM orders
		WHERE doc->>'status' = $1
		ORDER BY id
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("query orders by status: %w", err)
	}
	defer rows.Close()

	result := make([]domain.DocumentSnapshot, 0)
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		doc, err := decodeDocument(raw)
		if err != nil {
			// Документ, который не читается как JSON-объект, отдаём пустым: mapper отбракует его.
			log.WithField("component", "postgres-store").WithError(err).WithField("order_id", id).Warn("undecodable order document")
			doc = domain.Document{}
		}
		result = append(result, domain.DocumentSnapshot{ID: id, Data: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return result, nil
}

// Get возвращает документ или ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (domain.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM orders WHERE id = $1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}
	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedRecord, err)
	}
	return doc, nil
}

// Update одним UPDATE сливает fields в doc. Предусловия проверяются в WHERE
// того же оператора, поэтому конкурирующие записи перечитывают строку.
func (s *Store) Update(ctx context.Context, id string, fields domain.Document, conds ...domain.Precondition) error {
	plain, serverFields, err := encodeFields(fields)
	if err != nil {
		return err
	}
	guard, err := encodePreconditions(conds)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var updated, exists bool
	err = s.pool.QueryRow(ctx, `
		WITH updated AS (
			UPDATE orders
			SET doc = doc || $2::jsonb || `+serverFieldsJSON+`,
			    updated_at = NOW()
			WHERE id = $1 AND doc @> $4::jsonb
			RETURNING id
		)
		SELECT EXISTS (SELECT 1 FROM updated), EXISTS (SELECT 1 FROM orders WHERE id = $1)
	`, id, plain, serverFields, guard).Scan(&updated, &exists)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	switch {
	case updated:
		return nil
	case !exists:
		return domain.ErrNotFound
	default:
		return domain.ErrPreconditionFailed
	}
}

// Create вставляет документ под новым UUID.
func (s *Store) Create(ctx context.Context, doc domain.Document) (string, error) {
	plain, serverFields, err := encodeFields(doc)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	id := uuid.NewString()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO orders (id, doc)
		VALUES ($1, $2::jsonb || `+serverFieldsJSON+`)
	`, id, plain, serverFields)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("order id %s already exists: %w", id, err)
		}
		return "", fmt.Errorf("insert order: %w", err)
	}
	return id, nil
}

func (s *Store) registerWatcher(cancel context.CancelFunc) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}
	s.nextID++
	s.watchers[s.nextID] = cancel
	return s.nextID, nil
}

func (s *Store) unregisterWatcher(key uint64) {
	s.mu.Lock()
	cancel, ok := s.watchers[key]
	delete(s.watchers, key)
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// encodeFields делит поля на обычные (JSON-объект) и поля с серверным временем.
func encodeFields(fields domain.Document) ([]byte, []string, error) {
	plain := make(map[string]any, len(fields))
	serverFields := make([]string, 0)
	for k, v := range fields {
		switch t := v.(type) {
		case time.Time:
			plain[k] = domain.TimestampFromTime(t)
		case domain.OrderStatus:
			plain[k] = string(t)
		default:
			if domain.IsServerTimestamp(v) {
				serverFields = append(serverFields, k)
				continue
			}
			plain[k] = v
		}
	}
	body, err := json.Marshal(plain)
	if err != nil {
		return nil, nil, fmt.Errorf("encode order fields: %w", err)
	}
	return body, serverFields, nil
}

func encodePreconditions(conds []domain.Precondition) ([]byte, error) {
	guard := make(map[string]any, len(conds))
	for _, c := range conds {
		if status, ok := c.Equals.(domain.OrderStatus); ok {
			guard[c.Field] = string(status)
			continue
		}
		guard[c.Field] = c.Equals
	}
	body, err := json.Marshal(guard)
	if err != nil {
		return nil, fmt.Errorf("encode preconditions: %w", err)
	}
	return body, nil
}

func decodeDocument(raw []byte) (domain.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode order document: %w", err)
	}
	return domain.Document(doc), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.DocumentStore = (*Store)(nil)
