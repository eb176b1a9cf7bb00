package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/finance-events/internal/models"
)

// ListPendingReminders возвращает встречи, по которым напоминание ещё не отправлено.
// Дата и время отдаются строками "YYYY-MM-DD" и "HH:MM"; отсутствующие значения - пустые строки.
func (s *Storage) ListPendingReminders(ctx context.Context) ([]models.Appointment, error) {
	const op = "storage.ListPendingReminders"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT id, user_id, title, description,
			      TO_CHAR(appointment_date, 'YYYY-MM-DD'), TO_CHAR(appointment_time, 'HH24:MI'),
			      location, category, reminder_sent, created_at, updated_at
			  FROM appointments
			  WHERE reminder_sent = FALSE
			  ORDER BY appointment_date NULLS LAST, appointment_time NULLS LAST, id`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var res []models.Appointment
	for rows.Next() {
		var (
			a        models.Appointment
			date, tm sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.Title, &a.Description, &date, &tm,
			&a.Location, &a.Category, &a.ReminderSent, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.Date = nullString(date)
		a.Time = nullString(tm)
		res = append(res, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// ClaimReminder атомарно помечает напоминание отправленным.
// Возвращает false, если встречу уже забрал другой запуск сканера.
func (s *Storage) ClaimReminder(ctx context.Context, id string) (bool, error) {
	const op = "storage.ClaimReminder"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}

	query := `UPDATE appointments
			  SET reminder_sent = TRUE, updated_at = NOW()
			  WHERE id = $1 AND reminder_sent = FALSE`
	res, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}

// CreateAppointment сохраняет встречу. Пустые Date и Time сохраняются как NULL.
func (s *Storage) CreateAppointment(ctx context.Context, a models.Appointment) error {
	const op = "storage.CreateAppointment"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `INSERT INTO appointments (id, user_id, title, description, appointment_date, appointment_time,
			      location, category, reminder_sent)
			  VALUES ($1, $2, $3, $4, NULLIF($5, '')::date, NULLIF($6, '')::time, $7, $8, $9)`
	if _, err := s.DB.ExecContext(ctx, query, a.ID, a.UserID, a.Title, a.Description, a.Date, a.Time,
		a.Location, a.Category, a.ReminderSent); err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return nil
}
