package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/revu/internal/pkg/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB provides operations with postgresql
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates DB instance
func NewDB(pool *pgxpool.Pool) (*DB, error) {
	res := &DB{pool: pool}
	return res, nil
}

// InsertReview inserts one review into DB
func (db *DB) InsertReview(ctx context.Context, r *persistence.Review) error {
	rows, err := db.pool.Query(ctx, `INSERT INTO reviews(id, company_id, branch_id, client_id,
	customer_name, customer_mobile, rating, classification,
	audio_url, transcript, final_text, degraded, written_text,
	inv_job_card, inv_number, inv_date, inv_vin, inv_recipient_name, inv_recipient_mobile, inv_file_url,
	created)
	VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		r.ID, r.CompanyID, r.BranchID, r.ClientID,
		r.CustomerName, r.CustomerMobile, r.Rating, r.Classification,
		r.AudioURL, r.Transcript, r.FinalText, r.Degraded, r.WrittenText,
		r.Invoice.JobCardNumber, r.Invoice.InvoiceNumber, r.Invoice.InvoiceDate, r.Invoice.VIN,
		r.Invoice.RecipientName, r.Invoice.RecipientMobile, r.Invoice.FileURL,
		r.Created,
	)
	if err != nil {
		return fmt.Errorf("can't insert review: %w", err)
	}
	defer rows.Close()
	return nil
}

const reviewFields = `id, company_id, branch_id, client_id,
	customer_name, customer_mobile, rating, classification,
	audio_url, transcript, final_text, degraded, written_text,
	inv_job_card, inv_number, inv_date, inv_vin, inv_recipient_name, inv_recipient_mobile, inv_file_url,
	created`

// LoadReview loads one review from DB
func (db *DB) LoadReview(ctx context.Context, id string) (*persistence.Review, error) {
	var res persistence.Review
	err := db.pool.QueryRow(ctx, `SELECT `+reviewFields+` FROM reviews WHERE id = $1`, id).
		Scan(&res.ID, &res.CompanyID, &res.BranchID, &res.ClientID,
			&res.CustomerName, &res.CustomerMobile, &res.Rating, &res.Classification,
			&res.AudioURL, &res.Transcript, &res.FinalText, &res.Degraded, &res.WrittenText,
			&res.Invoice.JobCardNumber, &res.Invoice.InvoiceNumber, &res.Invoice.InvoiceDate, &res.Invoice.VIN,
			&res.Invoice.RecipientName, &res.Invoice.RecipientMobile, &res.Invoice.FileURL,
			&res.Created)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load review: %w", err)
	}
	return &res, nil
}

// ListReviews loads reviews by filter, newest first
func (db *DB) ListReviews(ctx context.Context, filter *persistence.ListFilter) ([]*persistence.Review, error) {
	q := `SELECT ` + reviewFields + ` FROM reviews WHERE 1 = 1`
	args := []interface{}{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		q += fmt.Sprintf(" AND "+cond, len(args))
	}
	if filter != nil {
		if filter.CompanyID != "" {
			add("company_id = $%d", filter.CompanyID)
		}
		if filter.BranchID != "" {
			add("branch_id = $%d", filter.BranchID)
		}
		if filter.ClientID != "" {
			add("client_id = $%d", filter.ClientID)
		}
		if !filter.From.IsZero() {
			add("created >= $%d", filter.From)
		}
		if !filter.To.IsZero() {
			add("created < $%d", filter.To)
		}
	}
	q += ` ORDER BY created DESC`
	rows, err := db.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't load reviews: %w", err)
	}
	defer rows.Close()
	res := []*persistence.Review{}
	for rows.Next() {
		var r persistence.Review
		if err := rows.Scan(&r.ID, &r.CompanyID, &r.BranchID, &r.ClientID,
			&r.CustomerName, &r.CustomerMobile, &r.Rating, &r.Classification,
			&r.AudioURL, &r.Transcript, &r.FinalText, &r.Degraded, &r.WrittenText,
			&r.Invoice.JobCardNumber, &r.Invoice.InvoiceNumber, &r.Invoice.InvoiceDate, &r.Invoice.VIN,
			&r.Invoice.RecipientName, &r.Invoice.RecipientMobile, &r.Invoice.FileURL,
			&r.Created); err != nil {
			return nil, fmt.Errorf("can't scan review: %w", err)
		}
		res = append(res, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("can't load reviews: %w", err)
	}
	return res, nil
}

// LockEmailTable marks the email as being sent.
// It is used to guarantee not to send the emails twice
func (db *DB) LockEmailTable(ctx context.Context, id, msgType string) error {
	rows, err := db.pool.Exec(ctx, `INSERT INTO email_lock(id, msg_type, status, created)
	VALUES($1, $2, 1, $3)
	ON CONFLICT(id, msg_type) DO UPDATE SET status = 1 WHERE email_lock.status = 0`,
		id, msgType, time.Now())
	if err != nil {
		return fmt.Errorf("can't lock email table: %w", err)
	}
	if rows.RowsAffected() != 1 {
		return fmt.Errorf("can't lock email table, already sent")
	}
	return nil
}

// UnLockEmailTable resets (value 0) or completes (value 2) the email lock
func (db *DB) UnLockEmailTable(ctx context.Context, id, msgType string, value *int) error {
	_, err := db.pool.Exec(ctx, `UPDATE email_lock SET status = $3 WHERE id = $1 AND msg_type = $2`,
		id, msgType, *value)
	if err != nil {
		return fmt.Errorf("can't unlock email table: %w", err)
	}
	return nil
}

// Live returns no error if db is reachable and initialized
func (db *DB) Live(ctx context.Context) error {
	var exists bool
	if err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT FROM pg_tables WHERE tablename = 'reviews')`).Scan(&exists); err != nil {
		return fmt.Errorf("can't check table: %w", err)
	}
	if !exists {
		return fmt.Errorf("no migration done")
	}
	return nil
}
