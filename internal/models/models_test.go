package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextMidnight(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "середина дня",
			now:  time.Date(2025, 3, 10, 14, 30, 0, 0, jakarta),
			want: time.Date(2025, 3, 11, 0, 0, 0, 0, jakarta),
		},
		{
			name: "ровно полночь переходит на следующие сутки",
			now:  time.Date(2025, 3, 10, 0, 0, 0, 0, jakarta),
			want: time.Date(2025, 3, 11, 0, 0, 0, 0, jakarta),
		},
		{
			name: "конец месяца",
			now:  time.Date(2025, 1, 31, 23, 59, 0, 0, jakarta),
			want: time.Date(2025, 2, 1, 0, 0, 0, 0, jakarta),
		},
		{
			name: "время в UTC считается в локальной зоне",
			now:  time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC),
			want: time.Date(2025, 3, 12, 0, 0, 0, 0, jakarta),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextMidnight(tt.now, jakarta)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestProfile_EffectiveStatus(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name        string
		profile     Profile
		wantStatus  string
		wantExpired bool
	}{
		{name: "free", profile: Profile{SubscriptionStatus: StatusFree}, wantStatus: StatusFree},
		{name: "active premium", profile: Profile{SubscriptionStatus: StatusPremium, SubscriptionExpiry: &future}, wantStatus: StatusPremium},
		{name: "premium without expiry", profile: Profile{SubscriptionStatus: StatusPremium}, wantStatus: StatusPremium},
		{name: "expired premium", profile: Profile{SubscriptionStatus: StatusPremium, SubscriptionExpiry: &past}, wantStatus: StatusFree, wantExpired: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.profile.EffectiveStatus(now))
			assert.Equal(t, tt.wantExpired, tt.profile.PremiumExpired(now))
		})
	}
}

func TestChatTitle(t *testing.T) {
	exactly50 := strings.Repeat("a", 50)
	long := strings.Repeat("b", 60)

	assert.Equal(t, "Apa itu BUMDes?", ChatTitle("  Apa itu BUMDes?  "))
	assert.Equal(t, exactly50, ChatTitle(exactly50))
	assert.Equal(t, strings.Repeat("b", 47)+"...", ChatTitle(long))
	assert.Equal(t, DefaultChatTitle, ChatTitle("   "))
}

func TestAppSettings_Defaults(t *testing.T) {
	assert.Equal(t, 5, AppSettings{}.FreeLimit())
	assert.Equal(t, int64(99000), AppSettings{}.Price())
	assert.Equal(t, 10, AppSettings{MaxFreeQueries: 10}.FreeLimit())
	assert.True(t, SelectableRole(RoleBumdes))
	assert.False(t, SelectableRole(RoleAdmin))
}
