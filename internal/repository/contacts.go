package repository

import "github.com/sysu-ecnc-dev/ed-roster/backend/internal/domain"

// GetContactByName 找不到时返回 sql.ErrNoRows，由调用方决定如何处理
func (r *Repository) GetContactByName(name string) (*domain.Contact, error) {
	query := `
		SELECT email, phone, preferred, updated_at, version
		FROM contacts WHERE name = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	contact := &domain.Contact{
		Name: name,
	}

	dst := []any{&contact.Email, &contact.Phone, &contact.Preferred, &contact.UpdatedAt, &contact.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, name).Scan(dst...); err != nil {
		return nil, err
	}

	return contact, nil
}

// UpsertContact 按姓名插入或覆盖联系方式，成功后回填 UpdatedAt 和 Version
func (r *Repository) UpsertContact(contact *domain.Contact) error {
	query := `
		INSERT INTO contacts (name, email, phone, preferred)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			preferred = EXCLUDED.preferred,
			updated_at = NOW(),
			version = contacts.version + 1
		RETURNING updated_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{contact.Name, contact.Email, contact.Phone, string(contact.Preferred)}
	dst := []any{&contact.UpdatedAt, &contact.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return err
	}

	return nil
}

// GetContactsByNames 批量查询，用于给交换候选补充联系方式，没有记录的姓名不会出现在结果中
func (r *Repository) GetContactsByNames(names []string) (map[string]*domain.Contact, error) {
	contacts := make(map[string]*domain.Contact)
	if len(names) == 0 {
		return contacts, nil
	}

	query := `
		SELECT name, email, phone, preferred, updated_at, version
		FROM contacts WHERE name = ANY($1)
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		contact := &domain.Contact{}
		dst := []any{&contact.Name, &contact.Email, &contact.Phone, &contact.Preferred, &contact.UpdatedAt, &contact.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		contacts[contact.Name] = contact
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return contacts, nil
}
