package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/patriot-desa/internal/migrations"
	"github.com/magabrotheeeer/patriot-desa/internal/models"
)

// TestDataFactory создает тестовые данные напрямую в БД.
type TestDataFactory struct {
	storage *Storage
}

func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает профиль с бесплатной подпиской и возвращает его ID.
func (f *TestDataFactory) CreateUser(t *testing.T, email, role string) string {
	t.Helper()
	var r *string
	if role != "" {
		r = &role
	}
	id, err := f.storage.CreateProfile(context.Background(), models.Profile{
		Email:             email,
		PasswordHash:      "hashedpassword",
		Name:              "Test " + email,
		Role:              r,
		DailyUsageResetAt: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	return id
}

// MakePremium переводит профиль на премиум до expiry.
func (f *TestDataFactory) MakePremium(t *testing.T, userID string, expiry time.Time) {
	t.Helper()
	_, err := f.storage.DB.Exec(`UPDATE profiles SET subscription_status = 'premium', subscription_expiry = $2 WHERE id = $1`,
		userID, expiry)
	require.NoError(t, err)
	_, err = f.storage.DB.Exec(`UPDATE subscriptions SET plan = 'premium', end_date = $2 WHERE user_id = $1`,
		userID, expiry)
	require.NoError(t, err)
}

// CreateChatWithMessages создает чат и сообщения по очереди.
func (f *TestDataFactory) CreateChatWithMessages(t *testing.T, userID string, texts ...string) (*models.Chat, []*models.ChatMessage) {
	t.Helper()
	ctx := context.Background()
	chat, err := f.storage.CreateChat(ctx, userID, models.DefaultChatTitle)
	require.NoError(t, err)

	msgs := make([]*models.ChatMessage, 0, len(texts))
	for i, text := range texts {
		role := models.MessageRoleUser
		if i%2 == 1 {
			role = models.MessageRoleAssistant
		}
		m, err := f.storage.CreateMessage(ctx, models.ChatMessage{ChatID: chat.ID, Role: role, Message: text})
		require.NoError(t, err)
		msgs = append(msgs, m)
	}
	return chat, msgs
}

// TestVerification общие проверки состояния БД.
type TestVerification struct {
	storage *Storage
}

func NewTestVerification(storage *Storage) *TestVerification {
	return &TestVerification{storage: storage}
}

// VerifyUsage проверяет счетчик использования.
func (v *TestVerification) VerifyUsage(t *testing.T, userID string, expected int) {
	t.Helper()
	var count int
	err := v.storage.DB.QueryRow("SELECT usage_count FROM profiles WHERE id = $1", userID).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, expected, count)
}

// VerifyPlan проверяет статус в профиле и план в строке подписки.
func (v *TestVerification) VerifyPlan(t *testing.T, userID, expected string) {
	t.Helper()
	var status, plan string
	err := v.storage.DB.QueryRow(`SELECT p.subscription_status, s.plan
		FROM profiles p JOIN subscriptions s ON s.user_id = p.id WHERE p.id = $1`, userID).
		Scan(&status, &plan)
	require.NoError(t, err)
	require.Equal(t, expected, status)
	require.Equal(t, expected, plan)
}

// VerifyMessageCount проверяет количество сообщений в чате.
func (v *TestVerification) VerifyMessageCount(t *testing.T, chatID string, expected int) {
	t.Helper()
	var count int
	err := v.storage.DB.QueryRow("SELECT COUNT(*) FROM chat_messages WHERE chat_id = $1", chatID).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, expected, count)
}

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(3*time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	var storage *Storage
	for range 10 {
		storage, err = New(connStr)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err, "failed to create storage after retries")

	projectRoot, err := filepath.Abs("../../..")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, filepath.Join(projectRoot, "migrations")))
	require.NoError(t, CheckDatabaseReady(storage))

	cleanup := func() {
		if storage != nil {
			_ = storage.Close()
		}
		_ = pgContainer.Terminate(ctx)
	}
	return storage, cleanup
}
