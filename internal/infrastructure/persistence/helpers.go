package persistence

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/citesignal-backend/internal/domain/repository"
)

func fromNullUUID(v uuid.NullUUID) *uuid.UUID {
	if !v.Valid {
		return nil
	}
	id := v.UUID
	return &id
}

func toNullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func fromNullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// paginate дописывает LIMIT/OFFSET с очередными номерами параметров.
func paginate(query string, args []interface{}, limit, offset int) (string, []interface{}) {
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike экранирует спецсимволы LIKE в пользовательском запросе.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var (
	_ repository.IncidentRepository        = (*IncidentRepository)(nil)
	_ repository.UserRepository            = (*UserRepository)(nil)
	_ repository.ReferenceRepository       = (*ReferenceRepository)(nil)
	_ repository.PhotoRepository           = (*PhotoRepository)(nil)
	_ repository.IncidentHistoryRepository = (*IncidentHistoryRepository)(nil)
	_ repository.NotificationRepository    = (*NotificationRepository)(nil)
	_ repository.ReportRepository          = (*ReportRepository)(nil)
	_ repository.Transactor                = (*Transactor)(nil)
)
