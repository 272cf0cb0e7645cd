package subscription

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ngolub/subscriptions/pkg/pg"
)

// querier is the subset of pgx operations the stores need; satisfied by both
// *pgxpool.Pool and pgx.Tx so the same methods run inside and outside InTx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txCtxKey struct{}

func withTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txCtxKey{}, tx)
}

func querierFrom(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx, ok := ctx.Value(txCtxKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

// PgSubscriptionStore is the pgxpool-backed SubscriptionStore. It relies on
// the partial unique index over (subscriber_id, plan_id) for non-deleted rows
// to enforce the one-row-per-plan invariant at the storage level.
type PgSubscriptionStore struct {
	pool *pgxpool.Pool
}

func NewPgSubscriptionStore(pool *pgxpool.Pool) *PgSubscriptionStore {
	return &PgSubscriptionStore{pool: pool}
}

const subscriptionColumns = `id, subscriber_id, plan_id, coupon_id, status, driver,
	recurring_payment_id, expire_at, suspended_at, created_at, updated_at, deleted_at`

func (s *PgSubscriptionStore) Create(ctx context.Context, sub *Subscription) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO subscriptions (
			id, subscriber_id, plan_id, coupon_id, status, driver,
			recurring_payment_id, expire_at, suspended_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := querierFrom(ctx, s.pool).Exec(ctx, query,
		sub.ID,
		sub.SubscriberID,
		sub.PlanID,
		nullable(sub.CouponID),
		string(sub.Status),
		sub.Driver,
		nullable(sub.RecurringPaymentID),
		sub.ExpireAt,
		sub.SuspendedAt,
		now,
		now,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return fmt.Errorf("subscriber %s already has a row for plan %s: %w", sub.SubscriberID, sub.PlanID, err)
		}
		return err
	}
	sub.CreatedAt = now
	sub.UpdatedAt = now
	return nil
}

func (s *PgSubscriptionStore) Update(ctx context.Context, id uuid.UUID, upd SubscriptionUpdate) error {
	set := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if upd.Status != nil {
		set = append(set, "status = "+arg(string(*upd.Status)))
	}
	if upd.RecurringPaymentID != nil {
		set = append(set, "recurring_payment_id = "+arg(nullable(*upd.RecurringPaymentID)))
	}
	if upd.CouponID != nil {
		set = append(set, "coupon_id = "+arg(nullable(*upd.CouponID)))
	}
	if upd.Driver != nil {
		set = append(set, "driver = "+arg(*upd.Driver))
	}
	if upd.ClearExpireAt {
		set = append(set, "expire_at = NULL")
	} else if upd.ExpireAt != nil {
		set = append(set, "expire_at = "+arg(*upd.ExpireAt))
	}
	if upd.ClearSuspendedAt {
		set = append(set, "suspended_at = NULL")
	} else if upd.SuspendedAt != nil {
		set = append(set, "suspended_at = "+arg(*upd.SuspendedAt))
	}
	set = append(set, "updated_at = NOW()")

	query := "UPDATE subscriptions SET " + strings.Join(set, ", ") +
		" WHERE id = " + arg(id) + " AND deleted_at IS NULL"
	tag, err := querierFrom(ctx, s.pool).Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.Join(ErrSubscriptionNotFound, fmt.Errorf("subscription %s", id))
	}
	return nil
}

func (s *PgSubscriptionStore) ByID(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1 AND deleted_at IS NULL`
	return s.scanOne(querierFrom(ctx, s.pool).QueryRow(ctx, query, id))
}

func (s *PgSubscriptionStore) ByRecurringPaymentID(ctx context.Context, profileID string) (*Subscription, error) {
	if profileID == "" {
		return nil, nil
	}
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
		WHERE recurring_payment_id = $1 AND deleted_at IS NULL`
	return s.scanOne(querierFrom(ctx, s.pool).QueryRow(ctx, query, profileID))
}

func (s *PgSubscriptionStore) BySubscriberAndPlan(ctx context.Context, subscriberID uuid.UUID, planID string, statuses ...Status) (*Subscription, error) {
	args := []any{subscriberID, planID}
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
		WHERE subscriber_id = $1 AND plan_id = $2 AND deleted_at IS NULL`
	if len(statuses) > 0 {
		values := make([]string, len(statuses))
		for i, st := range statuses {
			values[i] = string(st)
		}
		args = append(args, values)
		query += " AND status = ANY($3)"
	}
	return s.scanOne(querierFrom(ctx, s.pool).QueryRow(ctx, query, args...))
}

// InTx runs fn inside one database transaction; store calls made with the
// context fn receives join that transaction.
func (s *PgSubscriptionStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(withTx(ctx, tx))
	})
}

func (s *PgSubscriptionStore) scanOne(row pgx.Row) (*Subscription, error) {
	var (
		sub               Subscription
		couponID, profile *string
		status            string
	)
	err := row.Scan(
		&sub.ID,
		&sub.SubscriberID,
		&sub.PlanID,
		&couponID,
		&status,
		&sub.Driver,
		&profile,
		&sub.ExpireAt,
		&sub.SuspendedAt,
		&sub.CreatedAt,
		&sub.UpdatedAt,
		&sub.DeletedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	sub.Status = Status(status)
	if couponID != nil {
		sub.CouponID = *couponID
	}
	if profile != nil {
		sub.RecurringPaymentID = *profile
	}
	return &sub, nil
}

// PgTransactionStore appends ledger rows. It honors the transaction started
// by PgSubscriptionStore.InTx when sharing its context.
type PgTransactionStore struct {
	pool *pgxpool.Pool
}

func NewPgTransactionStore(pool *pgxpool.Pool) *PgTransactionStore {
	return &PgTransactionStore{pool: pool}
}

func (s *PgTransactionStore) Append(ctx context.Context, tx *Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO transactions (id, subscription_id, amount, status, payer_id, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := querierFrom(ctx, s.pool).Exec(ctx, query,
		tx.ID,
		tx.SubscriptionID,
		tx.Amount.String(),
		tx.Status,
		nullable(tx.PayerID),
		nullable(tx.Message),
		tx.CreatedAt,
	)
	return err
}

// BySubscription returns the ledger for one subscription, oldest first.
func (s *PgTransactionStore) BySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]Transaction, error) {
	query := `
		SELECT id, subscription_id, amount, status, payer_id, message, created_at
		FROM transactions WHERE subscription_id = $1 ORDER BY created_at
	`
	rows, err := querierFrom(ctx, s.pool).Query(ctx, query, subscriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var (
			tx               Transaction
			amount           string
			payerID, message *string
		)
		if err := rows.Scan(&tx.ID, &tx.SubscriptionID, &amount, &tx.Status, &payerID, &message, &tx.CreatedAt); err != nil {
			return nil, err
		}
		tx.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("malformed amount %q on transaction %s: %w", amount, tx.ID, err)
		}
		if payerID != nil {
			tx.PayerID = *payerID
		}
		if message != nil {
			tx.Message = *message
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
