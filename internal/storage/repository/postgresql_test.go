package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/patriot-desa/internal/models"
)

func TestStorage_Profiles(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	verify := NewTestVerification(storage)

	t.Run("создание и чтение", func(t *testing.T) {
		id := factory.CreateUser(t, "kades@desa.id", models.RoleAparatur)

		p, err := storage.GetProfile(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "kades@desa.id", p.Email)
		assert.Equal(t, models.RoleAparatur, p.RoleName())
		assert.Equal(t, models.StatusFree, p.SubscriptionStatus)
		verify.VerifyPlan(t, id, models.StatusFree)

		byEmail, err := storage.GetProfileByEmail(ctx, "kades@desa.id")
		require.NoError(t, err)
		assert.Equal(t, id, byEmail.ID)
	})

	t.Run("повторная почта", func(t *testing.T) {
		factory.CreateUser(t, "dup@desa.id", "")
		_, err := storage.CreateProfile(ctx, models.Profile{Email: "dup@desa.id", PasswordHash: "x"})
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("профиль не найден", func(t *testing.T) {
		_, err := storage.GetProfileByEmail(ctx, "nobody@desa.id")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("обновление своего профиля", func(t *testing.T) {
		id := factory.CreateUser(t, "update@desa.id", "")
		name := "Budi"
		role := models.RoleBumdes
		p, err := storage.UpdateProfile(ctx, id, models.ProfileUpdate{Name: &name, Role: &role})
		require.NoError(t, err)
		assert.Equal(t, "Budi", p.Name)
		assert.Equal(t, models.RoleBumdes, p.RoleName())
		assert.Equal(t, "", p.PhoneNumber)
	})

	t.Run("изменение администратором", func(t *testing.T) {
		id := factory.CreateUser(t, "admin-edit@desa.id", models.RoleUmum)
		status := models.StatusPremium
		count := 3
		p, err := storage.AdminUpdateProfile(ctx, id, models.UserUpdate{SubscriptionStatus: &status, UsageCount: &count})
		require.NoError(t, err)
		assert.Equal(t, models.StatusPremium, p.SubscriptionStatus)
		assert.Equal(t, 3, p.UsageCount)

		require.NoError(t, storage.ResetUsage(ctx, id))
		verify.VerifyUsage(t, id, 0)
	})

	t.Run("удаление", func(t *testing.T) {
		id := factory.CreateUser(t, "delete@desa.id", "")
		require.NoError(t, storage.DeleteProfile(ctx, id))
		assert.ErrorIs(t, storage.DeleteProfile(ctx, id), ErrNotFound)
	})
}

func TestStorage_AtomicUsageReservation(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	id := NewTestDataFactory(storage).CreateUser(t, "race@desa.id", models.RoleUmum)

	const limit = 5
	errQuota := errors.New("quota")
	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0

	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := storage.Atomic(ctx, func(ctx context.Context) error {
				p, err := storage.GetProfileForUpdate(ctx, id)
				if err != nil {
					return err
				}
				if p.UsageCount >= limit {
					return errQuota
				}
				return storage.SetUsage(ctx, id, p.UsageCount+1, p.DailyUsageResetAt)
			})
			if err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limit, granted)
	NewTestVerification(storage).VerifyUsage(t, id, limit)

	require.NoError(t, storage.DecrementUsage(ctx, id))
	NewTestVerification(storage).VerifyUsage(t, id, limit-1)
}

func TestStorage_SubscriptionLifecycle(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	verify := NewTestVerification(storage)

	id := factory.CreateUser(t, "premium@desa.id", models.RoleBumdes)
	expiry := time.Now().AddDate(0, 1, 0)
	amount := 99000.0

	require.NoError(t, storage.ApplySubscriptionChange(ctx, models.SubscriptionChange{
		UserID:        id,
		Status:        models.StatusPremium,
		Expiry:        &expiry,
		AmountPaid:    &amount,
		LastPaymentID: "trx-1",
	}))
	verify.VerifyPlan(t, id, models.StatusPremium)

	p, err := storage.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "trx-1", p.LastPaymentID)
	require.NotNil(t, p.SubscriptionExpiry)
	assert.WithinDuration(t, expiry, *p.SubscriptionExpiry, time.Second)

	t.Run("истекшие понижаются, активные нет", func(t *testing.T) {
		expired := factory.CreateUser(t, "expired@desa.id", models.RoleUmum)
		factory.MakePremium(t, expired, time.Now().Add(-time.Hour))

		downgraded, err := storage.DowngradeExpired(ctx, time.Now())
		require.NoError(t, err)
		require.Len(t, downgraded, 1)
		assert.Equal(t, expired, downgraded[0].ID)
		verify.VerifyPlan(t, expired, models.StatusFree)
		verify.VerifyPlan(t, id, models.StatusPremium)

		again, err := storage.DowngradeExpired(ctx, time.Now())
		require.NoError(t, err)
		assert.Empty(t, again)
	})
}

func TestStorage_PaymentEventsIdempotent(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	id := NewTestDataFactory(storage).CreateUser(t, "pay@desa.id", "")

	ev := models.PaymentEvent{
		EventKey:          "trx-42",
		OrderID:           "ONETIME-" + id,
		TransactionStatus: "settlement",
		UserID:            id,
		Payload:           json.RawMessage(`{"transaction_id":"trx-42"}`),
	}
	inserted, err := storage.InsertPaymentEvent(ctx, ev)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = storage.InsertPaymentEvent(ctx, ev)
	require.NoError(t, err)
	assert.False(t, inserted)

	t.Run("откат транзакции не оставляет событие", func(t *testing.T) {
		boom := errors.New("boom")
		err := storage.Atomic(ctx, func(ctx context.Context) error {
			ok, err := storage.InsertPaymentEvent(ctx, models.PaymentEvent{EventKey: "trx-43"})
			require.NoError(t, err)
			require.True(t, ok)
			return boom
		})
		require.ErrorIs(t, err, boom)

		ok, err := storage.InsertPaymentEvent(ctx, models.PaymentEvent{EventKey: "trx-43"})
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestStorage_Chats(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	verify := NewTestVerification(storage)

	owner := factory.CreateUser(t, "owner@desa.id", models.RoleAparatur)
	stranger := factory.CreateUser(t, "stranger@desa.id", models.RoleUmum)

	chat, msgs := factory.CreateChatWithMessages(t, owner, "q1", "a1", "q2", "a2")

	t.Run("чужой чат не виден", func(t *testing.T) {
		_, err := storage.GetChat(ctx, stranger, chat.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, storage.DeleteChat(ctx, stranger, chat.ID), ErrNotFound)
	})

	t.Run("сообщения по порядку", func(t *testing.T) {
		list, err := storage.ListMessages(ctx, chat.ID)
		require.NoError(t, err)
		require.Len(t, list, 4)
		assert.Equal(t, "q1", list[0].Message)
		assert.Equal(t, "a2", list[3].Message)
	})

	t.Run("переименование", func(t *testing.T) {
		renamed, err := storage.RenameChat(ctx, owner, chat.ID, "Dana Desa")
		require.NoError(t, err)
		assert.Equal(t, "Dana Desa", renamed.Title)

		chats, err := storage.ListChats(ctx, owner)
		require.NoError(t, err)
		require.Len(t, chats, 1)
	})

	t.Run("редактирование обрезает хвост", func(t *testing.T) {
		updated, err := storage.UpdateMessage(ctx, chat.ID, msgs[0].ID, "q1 edited")
		require.NoError(t, err)
		assert.Equal(t, "q1 edited", updated.Message)

		n, err := storage.DeleteMessagesAfter(ctx, chat.ID, msgs[0].ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		verify.VerifyMessageCount(t, chat.ID, 1)
	})

	t.Run("удаление чата", func(t *testing.T) {
		require.NoError(t, storage.DeleteChat(ctx, owner, chat.ID))
		verify.VerifyMessageCount(t, chat.ID, 0)
	})
}

func TestStorage_AdminQueries(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	a := factory.CreateUser(t, "a@desa.id", models.RoleAparatur)
	factory.CreateUser(t, "b@desa.id", models.RoleBumdes)
	chat, _ := factory.CreateChatWithMessages(t, a, "q1", "a1")
	category := "keuangan"
	_, err := storage.CreateMessage(ctx, models.ChatMessage{ChatID: chat.ID, Role: models.MessageRoleUser, Message: "q2", Category: &category})
	require.NoError(t, err)

	stats, err := storage.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 1, stats.Aparatur)
	assert.Equal(t, 1, stats.Bumdes)
	assert.Equal(t, 2, stats.TotalQuestions)

	growth, err := storage.UserGrowth(ctx)
	require.NoError(t, err)
	require.Len(t, growth, 12)
	assert.Equal(t, 2, growth[11].Users)

	dist, err := storage.QueryDistribution(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.CategoryCount{
		{Category: "keuangan", Count: 1},
		{Category: "lainnya", Count: 1},
	}, dist)

	require.NoError(t, storage.CreateActivity(ctx, models.ActivityLog{UserID: &a, Action: "Login", Type: models.ActivityLogin}))
	require.NoError(t, storage.CreateActivity(ctx, models.ActivityLog{Action: "System", Type: models.ActivityAdminAction}))
	logs, err := storage.ListActivity(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	settings, err := storage.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, settings.MaxFreeQueries)

	settings.MaxFreeQueries = 10
	settings.MaintenanceMode = true
	saved, err := storage.UpsertSettings(ctx, *settings)
	require.NoError(t, err)
	assert.Equal(t, 10, saved.MaxFreeQueries)
	assert.True(t, saved.MaintenanceMode)

	require.NoError(t, storage.CreatePreRegistration(ctx, "early@desa.id"))
	assert.ErrorIs(t, storage.CreatePreRegistration(ctx, "early@desa.id"), ErrAlreadyExists)
}
