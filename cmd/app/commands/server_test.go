package commands

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIgnoreCanceled(t *testing.T) {
	assert.NoError(t, ignoreCanceled(nil))
	assert.NoError(t, ignoreCanceled(context.Canceled))
	assert.NoError(t, ignoreCanceled(fmt.Errorf("relay: %w", context.Canceled)))

	boom := errors.New("boom")
	assert.ErrorIs(t, ignoreCanceled(boom), boom)
	assert.ErrorIs(t, ignoreCanceled(context.DeadlineExceeded), context.DeadlineExceeded)
}

func TestLoadContainer(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "mysql")
		t.Setenv("DB_CONNECTION_STRING", "user:password@tcp(localhost:3306)/esign")

		container, err := loadContainer()
		if assert.NoError(t, err) {
			assert.Equal(t, "mysql", container.Config().DBDriver)
		}
	})

	t.Run("Error_InvalidConfiguration", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "oracle")

		_, err := loadContainer()
		assert.ErrorContains(t, err, "invalid configuration")
	})
}
