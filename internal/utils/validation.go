package utils

import (
	"errors"
	"strings"

	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/domain"
)

var (
	ErrContactNameRequired     = errors.New("a clinician name is required")
	ErrContactUnreachable      = errors.New("an email or a phone number is required")
	ErrContactInvalidPreferred = errors.New("preferred must be one of email, phone or text")
	ErrContactEmailRequired    = errors.New("an email is required when email is preferred")
	ErrContactPhoneRequired    = errors.New("a phone number is required when phone or text is preferred")
)

// NormalizeName 折叠多余的空白，与解析排班时对医生姓名的处理一致，否则按姓名查不到
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// ValidateContact 检查联系方式是否足以联系到对方，并且首选方式确实有对应的联系方式
func ValidateContact(c *domain.Contact) error {
	if c.Name == "" {
		return ErrContactNameRequired
	}

	switch c.Preferred {
	case domain.ContactPreferenceEmail, domain.ContactPreferencePhone, domain.ContactPreferenceText:
	default:
		return ErrContactInvalidPreferred
	}

	if c.Email == "" && c.Phone == "" {
		return ErrContactUnreachable
	}
	if c.Preferred == domain.ContactPreferenceEmail && c.Email == "" {
		return ErrContactEmailRequired
	}
	if c.Preferred != domain.ContactPreferenceEmail && c.Phone == "" {
		return ErrContactPhoneRequired
	}

	return nil
}
