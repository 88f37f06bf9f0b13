package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/leojay-net/chatshop/internal/util"
	"github.com/leojay-net/chatshop/pkg/domain"
)

// ChatSessionModel is the GORM row for one session. History lives in a JSON
// column, matching the append-only message list it stores.
type ChatSessionModel struct {
	ID         string         `gorm:"primaryKey"`
	Email      string         `gorm:"not null;index;uniqueIndex:idx_email_session_key"`
	SessionKey string         `gorm:"not null;index;uniqueIndex:idx_email_session_key"`
	History    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"not null"`
	UpdatedAt  time.Time      `gorm:"not null"`
}

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&ChatSessionModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// GetOrCreate returns or creates the session for (email, sessionKey).
func (s *GormStore) GetOrCreate(ctx context.Context, email, sessionKey string) (domain.ChatSession, bool, error) {
	if sessionKey != "" {
		var row ChatSessionModel
		err := s.db.WithContext(ctx).
			Where("email = ? AND session_key = ?", email, sessionKey).
			First(&row).Error
		if err == nil {
			session, convErr := rowToSession(row)
			return session, false, convErr
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ChatSession{}, false, fmt.Errorf("load session: %w", err)
		}
	} else {
		sessionKey = util.NewSessionKey()
	}
	now := time.Now().UTC()
	row := ChatSessionModel{
		ID:         util.NewID(),
		Email:      email,
		SessionKey: sessionKey,
		History:    datatypes.JSON([]byte("[]")),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.ChatSession{}, false, fmt.Errorf("create session: %w", err)
	}
	session, err := rowToSession(row)
	return session, true, err
}

// AppendMessage appends one message to an existing session's history.
func (s *GormStore) AppendMessage(ctx context.Context, email, sessionKey string, msg domain.Message) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row ChatSessionModel
		err := tx.Where("email = ? AND session_key = ?", email, sessionKey).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		var history []domain.Message
		if len(row.History) > 0 {
			if err := json.Unmarshal(row.History, &history); err != nil {
				return fmt.Errorf("decode history: %w", err)
			}
		}
		history = append(history, msg)
		encoded, err := json.Marshal(history)
		if err != nil {
			return fmt.Errorf("encode history: %w", err)
		}
		return tx.Model(&row).
			Updates(map[string]any{
				"history":    datatypes.JSON(encoded),
				"updated_at": time.Now().UTC(),
			}).Error
	})
}

// List returns matching sessions, oldest first.
func (s *GormStore) List(ctx context.Context, filter Filter) ([]domain.ChatSession, error) {
	query := s.db.WithContext(ctx).Model(&ChatSessionModel{}).Order("created_at ASC")
	if filter.Email != "" {
		query = query.Where("email = ?", filter.Email)
	}
	if filter.SessionKey != "" {
		query = query.Where("session_key = ?", filter.SessionKey)
	}
	var rows []ChatSessionModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	sessions := make([]domain.ChatSession, 0, len(rows))
	for _, row := range rows {
		session, err := rowToSession(row)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// Delete removes matching sessions and reports the count.
func (s *GormStore) Delete(ctx context.Context, filter Filter) (int64, error) {
	if filter.Empty() {
		return 0, ErrFilterRequired
	}
	query := s.db.WithContext(ctx)
	if filter.Email != "" {
		query = query.Where("email = ?", filter.Email)
	}
	if filter.SessionKey != "" {
		query = query.Where("session_key = ?", filter.SessionKey)
	}
	result := query.Delete(&ChatSessionModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func rowToSession(row ChatSessionModel) (domain.ChatSession, error) {
	var history []domain.Message
	if len(row.History) > 0 {
		if err := json.Unmarshal(row.History, &history); err != nil {
			return domain.ChatSession{}, fmt.Errorf("decode history: %w", err)
		}
	}
	return domain.ChatSession{
		Email:      row.Email,
		SessionKey: row.SessionKey,
		History:    history,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}
