package enrollment

import (
	"context"
	"fmt"
	"time"

	"github.com/irsalhamdi/coursepay/validate"
	"github.com/jmoiron/sqlx"
)

// Grant gives userID access to courseName, inserting an active
// enrollment if none exists. The unique index on (user_id, course_name)
// makes the insert the idempotency guard: a concurrent or repeated
// grant hits the conflict clause and reports created=false instead of
// producing a second row.
func Grant(ctx context.Context, db sqlx.ExtContext, userID string, courseName string, source Source) (created bool, err error) {
	const q = `
	INSERT INTO enrollments
		(enrollment_id, user_id, course_name, status, source, progress, enrolled_at)
	VALUES
		(:enrollment_id, :user_id, :course_name, :status, :source, :progress, :enrolled_at)
	ON CONFLICT (user_id, course_name) DO NOTHING`

	enr := Enrollment{
		ID:         validate.GenerateID(),
		UserID:     userID,
		CourseName: courseName,
		Status:     Active,
		Source:     source,
		Progress:   0,
		EnrolledAt: time.Now().UTC(),
	}

	res, err := sqlx.NamedExecContext(ctx, db, q, enr)
	if err != nil {
		return false, fmt.Errorf("granting course[%s] to user[%s]: %w", courseName, userID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected by grant: %w", err)
	}

	return n == 1, nil
}

func ListByUser(ctx context.Context, db sqlx.ExtContext, userID string) ([]Enrollment, error) {
	const q = `SELECT * FROM enrollments WHERE user_id = $1 ORDER BY enrolled_at`

	enrs := []Enrollment{}
	if err := sqlx.SelectContext(ctx, db, &enrs, q, userID); err != nil {
		return nil, fmt.Errorf("selecting enrollments of user[%s]: %w", userID, err)
	}

	return enrs, nil
}

// HasAccess reports whether userID can open courseName, either through a
// direct enrollment or through the premium pass.
func HasAccess(ctx context.Context, db sqlx.ExtContext, userID string, courseName string) (bool, error) {
	const q = `
	SELECT EXISTS (
		SELECT 1 FROM enrollments
		WHERE user_id = $1 AND course_name IN ($2, $3)
	)`

	var ok bool
	if err := sqlx.GetContext(ctx, db, &ok, q, userID, courseName, PremiumPass); err != nil {
		return false, fmt.Errorf("checking access of user[%s] to course[%s]: %w", userID, courseName, err)
	}

	return ok, nil
}
