package sl_test

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/patriot-desa/internal/lib/sl"
)

func TestErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "plain error", err: errors.New("something went wrong"), want: "something went wrong"},
		{name: "wrapped error", err: fmt.Errorf("repo.Get: %w", errors.New("no rows")), want: "repo.Get: no rows"},
		{name: "nil error", err: nil, want: "<nil>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attr := sl.Err(tt.err)
			assert.Equal(t, "error", attr.Key)
			assert.Equal(t, slog.StringValue(tt.want), attr.Value)
		})
	}
}

func TestUserID(t *testing.T) {
	attr := sl.UserID("abc")
	assert.Equal(t, "user_id", attr.Key)
	assert.Equal(t, "abc", attr.Value.String())
}
