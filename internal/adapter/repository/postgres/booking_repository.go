package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/srgjo27/puja_booking/internal/core/domain"
)

//go:embed schema.sql
var schema string

// EnsureSchema creates the booking tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

const uniqueViolation pq.ErrorCode = "23505"

type BookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `
	id, number, customer_id, agent_id, event_date, venue, commercials, rates, status, version,
	created_at, request_expires_at, confirmed_at, settlement, cancellation, payment, payout
`

func (r *BookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	row, err := toRow(booking)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO bookings (` + bookingColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err = tx.ExecContext(ctx, query,
		booking.ID, booking.Number, booking.CustomerID, row.agentID, booking.EventDate,
		row.venue, row.commercials, row.rates, booking.Status,
		booking.CreatedAt, booking.RequestExpiresAt, row.confirmedAt,
		row.settlement, row.cancellation, row.payment, row.payout)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateBooking, pqErr.Constraint)
		}
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	if err := appendHistory(ctx, tx, booking.ID, booking.History, 0); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	booking.Version = 1
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	var (
		b           domain.Booking
		agentID     uuid.NullUUID
		confirmedAt sql.NullTime
		venue       []byte
		commercials []byte
		rates       []byte
		settlement  []byte
		cancel      []byte
		payment     []byte
		payout      []byte
	)

	err := r.db.QueryRowContext(ctx, query, bookingID).Scan(
		&b.ID, &b.Number, &b.CustomerID, &agentID, &b.EventDate, &venue, &commercials, &rates,
		&b.Status, &b.Version, &b.CreatedAt, &b.RequestExpiresAt, &confirmedAt,
		&settlement, &cancel, &payment, &payout,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}

	if agentID.Valid {
		id := agentID.UUID
		b.AgentID = &id
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		b.ConfirmedAt = &t
	}

	if err := json.Unmarshal(venue, &b.Venue); err != nil {
		return nil, fmt.Errorf("decode venue: %w", err)
	}
	if err := json.Unmarshal(commercials, &b.Commercials); err != nil {
		return nil, fmt.Errorf("decode commercials: %w", err)
	}
	if b.Rates, err = decodeOptional[domain.RateSheet](rates); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	if b.Settlement, err = decodeOptional[domain.MoneyBreakdown](settlement); err != nil {
		return nil, fmt.Errorf("decode settlement: %w", err)
	}
	if b.Cancellation, err = decodeOptional[domain.CancellationRecord](cancel); err != nil {
		return nil, fmt.Errorf("decode cancellation: %w", err)
	}
	if b.Payment, err = decodeOptional[domain.PaymentRecord](payment); err != nil {
		return nil, fmt.Errorf("decode payment: %w", err)
	}
	if b.Payout, err = decodeOptional[domain.PayoutRecord](payout); err != nil {
		return nil, fmt.Errorf("decode payout: %w", err)
	}

	if b.History, err = r.history(ctx, bookingID); err != nil {
		return nil, err
	}

	return &b, nil
}

func (r *BookingRepository) history(ctx context.Context, bookingID uuid.UUID) ([]domain.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT seq, status, action, actor_id, actor_role, at
	FROM booking_status_history
	WHERE booking_id = $1
	ORDER BY seq
	`, bookingID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []domain.HistoryEntry
	for rows.Next() {
		var h domain.HistoryEntry
		if err := rows.Scan(&h.Seq, &h.Status, &h.Action, &h.ActorID, &h.ActorRole, &h.At); err != nil {
			return nil, err
		}
		out = append(out, h)
	}

	return out, rows.Err()
}

// Update writes the booking only if its stored version is still expectedVersion, and appends
// the history entries recorded since.
func (r *BookingRepository) Update(ctx context.Context, booking *domain.Booking, expectedVersion int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	row, err := toRow(booking)
	if err != nil {
		return err
	}

	query := `
	UPDATE bookings
	SET agent_id = $3, commercials = $4, rates = $5, status = $6, version = version + 1,
		confirmed_at = $7, settlement = $8, cancellation = $9, payment = $10, payout = $11
	WHERE id = $1 AND version = $2
	`

	res, err := tx.ExecContext(ctx, query,
		booking.ID, expectedVersion, row.agentID, row.commercials, row.rates, booking.Status,
		row.confirmedAt, row.settlement, row.cancellation, row.payment, row.payout)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, booking.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrBookingNotFound
		}
		return domain.ErrVersionConflict
	}

	var stored int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM booking_status_history WHERE booking_id = $1`, booking.ID).Scan(&stored); err != nil {
		return err
	}
	if len(booking.History) < stored {
		return fmt.Errorf("booking %s: history is append-only", booking.ID)
	}

	if err := appendHistory(ctx, tx, booking.ID, booking.History, stored); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	booking.Version = expectedVersion + 1
	return nil
}

func appendHistory(ctx context.Context, tx *sql.Tx, bookingID uuid.UUID, entries []domain.HistoryEntry, after int) error {
	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO booking_status_history (booking_id, seq, status, action, actor_id, actor_role, at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare history statement: %w", err)
	}

	defer stmt.Close()

	for _, h := range entries {
		if h.Seq <= after {
			continue
		}
		if _, err := stmt.ExecContext(ctx, bookingID, h.Seq, h.Status, h.Action, h.ActorID, h.ActorRole, h.At); err != nil {
			return fmt.Errorf("failed to insert history entry %d: %w", h.Seq, err)
		}
	}

	return nil
}

func (r *BookingRepository) ListExpiredRequests(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `
	SELECT id FROM bookings
	WHERE status = $1 AND request_expires_at < $2
	ORDER BY request_expires_at
	LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, domain.BookingRequested, now, limit)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// bookingRow holds the column values that need encoding. JSON goes over the wire as text so
// lib/pq does not send it as bytea.
type bookingRow struct {
	agentID      uuid.NullUUID
	confirmedAt  sql.NullTime
	venue        string
	commercials  string
	rates        sql.NullString
	settlement   sql.NullString
	cancellation sql.NullString
	payment      sql.NullString
	payout       sql.NullString
}

func toRow(b *domain.Booking) (bookingRow, error) {
	var row bookingRow

	if b.AgentID != nil {
		row.agentID = uuid.NullUUID{UUID: *b.AgentID, Valid: true}
	}
	if b.ConfirmedAt != nil {
		row.confirmedAt = sql.NullTime{Time: *b.ConfirmedAt, Valid: true}
	}

	venue, err := json.Marshal(b.Venue)
	if err != nil {
		return row, err
	}
	commercials, err := json.Marshal(b.Commercials)
	if err != nil {
		return row, err
	}
	row.venue = string(venue)
	row.commercials = string(commercials)

	optional := []struct {
		dst *sql.NullString
		v   any
		set bool
	}{
		{&row.rates, b.Rates, b.Rates != nil},
		{&row.settlement, b.Settlement, b.Settlement != nil},
		{&row.cancellation, b.Cancellation, b.Cancellation != nil},
		{&row.payment, b.Payment, b.Payment != nil},
		{&row.payout, b.Payout, b.Payout != nil},
	}
	for _, o := range optional {
		if !o.set {
			continue
		}
		raw, err := json.Marshal(o.v)
		if err != nil {
			return row, err
		}
		*o.dst = sql.NullString{String: string(raw), Valid: true}
	}

	return row, nil
}

func decodeOptional[T any](raw []byte) (*T, error) {
	if raw == nil {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
