package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDHelpers(t *testing.T) {
	assert.False(t, ToUUID(uuid.Nil).Valid)
	assert.False(t, ToNullUUID(nil).Valid)
	assert.Nil(t, FromNullUUID(pgtype.UUID{}))

	id := uuid.New()
	assert.True(t, ToUUID(id).Valid)

	back := FromNullUUID(ToNullUUID(&id))
	require.NotNil(t, back)
	assert.Equal(t, id, *back)
}

func TestTimeHelpers(t *testing.T) {
	assert.False(t, ToNullTime(nil).Valid)
	assert.Nil(t, FromNullTime(pgtype.Timestamptz{}))

	loc := time.FixedZone("CET", 3600)
	at := time.Date(2026, 3, 1, 20, 0, 0, 0, loc)

	back := FromNullTime(ToNullTime(&at))
	require.NotNil(t, back)
	assert.True(t, back.Equal(at))
	assert.Equal(t, time.UTC, back.Location())
}
