package tickets

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"ticketly/internal/events"
	"ticketly/internal/seats"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	lockEventSQL   = `SELECT \* FROM "events" WHERE id = \$1 ORDER BY "events"\."id" LIMIT .+ FOR UPDATE`
	updateEventSQL = `UPDATE "events" SET "available_seats"=\$1,"revenue"=revenue \+ \$2,"seats_map"=\$3::jsonb,` +
		`"version"=version \+ 1,"updated_at"=\$4 WHERE \(?id = \$5 AND version = \$6\)?`
	insertTicketSQL = `INSERT INTO "tickets"`
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	return db, mock
}

// eventRow is a 5 seat event (rows of 3 and 2) with seat 0-0 sold.
func eventRow(id uuid.UUID, version int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "status", "date_time", "seats_amount", "available_seats",
		"seats_map", "ticket_types", "revenue", "version",
	}).AddRow(
		id.String(), "Jazz Night", "active", time.Now().Add(48*time.Hour), 5, 4,
		`[[1,0,0],[0,0]]`, `[{"tier":"general","name":"Regular","price":"50","capacity":0}]`, "50", version,
	)
}

// reserveSeats prices the seats at 50 each against the locked event.
func reserveSeats(userID uuid.UUID, idemKey string, keys ...seats.SeatKey) PrepareFunc {
	return func(event *events.Event) (*Reservation, error) {
		m, err := event.SeatsMap.Reserve(keys)
		if err != nil {
			return nil, err
		}
		id := uuid.New()
		ticket := &Ticket{
			ID:          id,
			Reference:   newReference(id, time.Now()),
			EventID:     event.ID,
			UserID:      userID,
			TicketType:  seats.TierGeneral,
			SeatsNumber: seats.KeyStrings(keys),
			Price:       decimal.NewFromInt(int64(50 * len(keys))),
			Quantity:    len(keys),
			Status:      StatusPaid,
		}
		if idemKey != "" {
			ticket.IdempotencyKey = &idemKey
		}
		return &Reservation{Ticket: ticket, SeatsMap: m}, nil
	}
}

func TestRepositoryBook(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)
	eventID, userID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(lockEventSQL).WillReturnRows(eventRow(eventID, 3))
	mock.ExpectExec(updateEventSQL).
		WithArgs(2, decimal.NewFromInt(100), `[[1,1,1],[0,0]]`, sqlmock.AnyArg(), eventID, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(insertTicketSQL).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
	mock.ExpectCommit()

	ticket, err := repo.Book(context.Background(), eventID,
		reserveSeats(userID, "", seats.SeatKey{Row: 0, Col: 1}, seats.SeatKey{Row: 0, Col: 2}))
	require.NoError(t, err)
	assert.Equal(t, []string{"0-1", "0-2"}, ticket.SeatsNumber)
	assert.True(t, ticket.Price.Equal(decimal.NewFromInt(100)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryBook_VersionConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)
	eventID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(lockEventSQL).WillReturnRows(eventRow(eventID, 7))
	mock.ExpectExec(updateEventSQL).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Book(context.Background(), eventID, reserveSeats(uuid.New(), "", seats.SeatKey{Row: 1, Col: 0}))
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryBook_DuplicateTicket(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)
	eventID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(lockEventSQL).WillReturnRows(eventRow(eventID, 1))
	mock.ExpectExec(updateEventSQL).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(insertTicketSQL).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_tickets_reference"})
	mock.ExpectRollback()

	_, err := repo.Book(context.Background(), eventID, reserveSeats(uuid.New(), "", seats.SeatKey{Row: 1, Col: 1}))
	assert.ErrorIs(t, err, ErrDuplicateTicket)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryBook_TakenSeatRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)
	eventID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(lockEventSQL).WillReturnRows(eventRow(eventID, 1))
	mock.ExpectRollback()

	_, err := repo.Book(context.Background(), eventID, reserveSeats(uuid.New(), "", seats.SeatKey{Row: 0, Col: 0}))
	assert.ErrorIs(t, err, seats.ErrSeatTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryBook_EventNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockEventSQL).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.Book(context.Background(), uuid.New(), func(*events.Event) (*Reservation, error) {
		return nil, errors.New("prepare must not run")
	})
	assert.ErrorIs(t, err, events.ErrEventNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryFindByIdempotencyKey(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "tickets" WHERE user_id = $1 AND idempotency_key = $2`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByIdempotencyKey(context.Background(), userID, "checkout-1")
	assert.ErrorIs(t, err, ErrTicketNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
