package repository

import "context"

// CreatePreRegistration сохраняет почту из формы предрегистрации.
// Повторная почта возвращает ErrAlreadyExists.
func (s *Storage) CreatePreRegistration(ctx context.Context, email string) error {
	const op = "storage.CreatePreRegistration"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	if _, err := s.conn(ctx).ExecContext(ctx,
		`INSERT INTO pre_registrations (email) VALUES ($1)`, email); err != nil {
		return wrapErr(op, err)
	}
	return nil
}
