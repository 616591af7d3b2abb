package seed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/utils"
)

var contactColumns = []string{"name", "email", "phone", "preferred"}

// ContactUpserter 是 repository 中导入联系方式需要用到的部分
type ContactUpserter interface {
	UpsertContact(contact *domain.Contact) error
}

type Result struct {
	Imported int
	Skipped  int
}

// ImportContacts 从 CSV 导入联系方式，第一行必须是表头 name,email,phone,preferred（顺序不限）。
// 不合法的行会被跳过并记录日志，写入数据库失败则立即返回
func ImportContacts(r io.Reader, store ContactUpserter) (Result, error) {
	var result Result

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	// 读取表头
	headers, err := reader.Read()
	if err != nil {
		return result, fmt.Errorf("读取表头失败: %w", err)
	}

	index := make(map[string]int)
	for i, header := range headers {
		index[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, column := range contactColumns {
		if _, ok := index[column]; !ok {
			return result, fmt.Errorf("表头中缺少 %s 列", column)
		}
	}

	line := 1
	for {
		record, err := reader.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, fmt.Errorf("第 %d 行读取失败: %w", line, err)
		}

		field := func(column string) string {
			i := index[column]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		contact := &domain.Contact{
			Name:      utils.NormalizeName(field("name")),
			Email:     field("email"),
			Phone:     field("phone"),
			Preferred: domain.ContactPreference(strings.ToLower(field("preferred"))),
		}
		if err := utils.ValidateContact(contact); err != nil {
			slog.Warn("跳过不合法的联系方式", "line", line, "name", contact.Name, "error", err)
			result.Skipped++
			continue
		}

		if err := store.UpsertContact(contact); err != nil {
			return result, fmt.Errorf("第 %d 行写入失败: %w", line, err)
		}
		result.Imported++
	}

	return result, nil
}
