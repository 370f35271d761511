package memory

import (
	"context"
	"testing"

	"github.com/denismitr/shift/database"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollection(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("it keeps insertion order and returns copies", func(t *testing.T) {
		db := New()
		c := db.Collection("users")

		require.NoError(t, c.InsertOne(ctx, database.Document{"_id": "b", "name": "bar"}))
		require.NoError(t, c.InsertOne(ctx, database.Document{"_id": "a", "name": "foo"}))

		docs, err := c.Find(ctx, nil)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "b", docs[0]["_id"])
		assert.Equal(t, "a", docs[1]["_id"])

		docs[0]["name"] = "changed"

		again, err := c.Find(ctx, database.Filter{"_id": "b"})
		require.NoError(t, err)
		require.Len(t, again, 1)
		assert.Equal(t, "bar", again[0]["name"])
	})

	t.Run("it keeps string and numeric identities apart", func(t *testing.T) {
		db := New()
		c := db.Collection("users")

		require.NoError(t, c.InsertOne(ctx, database.Document{"_id": "1", "name": "string"}))
		require.NoError(t, c.InsertOne(ctx, database.Document{"_id": 1, "name": "number"}))
		require.NoError(t, c.InsertOne(ctx, database.Document{"_id": int64(1) << 53, "name": "big"}))
		require.NoError(t, c.InsertOne(ctx, database.Document{"_id": int64(1)<<53 + 1, "name": "bigger"}))

		require.NoError(t, c.ReplaceOne(ctx, database.Document{"_id": float64(1), "name": "replaced"}))

		docs, err := c.Find(ctx, nil)
		require.NoError(t, err)
		require.Len(t, docs, 4)
		assert.Equal(t, "string", docs[0]["name"])
		assert.Equal(t, "replaced", docs[1]["name"])
		assert.Equal(t, "big", docs[2]["name"])
		assert.Equal(t, "bigger", docs[3]["name"])
	})

	t.Run("it replaces by identity", func(t *testing.T) {
		db := New()
		c := db.Collection("users")
		require.NoError(t, c.InsertOne(ctx, database.Document{"_id": 1, "name": "foo"}))

		require.NoError(t, c.ReplaceOne(ctx, database.Document{"_id": 1, "full_name": "foo"}))

		docs, err := c.Find(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, []database.Document{{"_id": 1, "full_name": "foo"}}, docs)
	})

	t.Run("it fails to replace unknown documents", func(t *testing.T) {
		c := New().Collection("users")

		err := c.ReplaceOne(ctx, database.Document{"_id": 1})
		assert.True(t, errors.Is(err, database.ErrDocumentNotFound))

		err = c.ReplaceOne(ctx, database.Document{"name": "no id"})
		assert.True(t, errors.Is(err, database.ErrMissingDocumentID))
	})

	t.Run("it rejects duplicate identities", func(t *testing.T) {
		c := New().Collection("users")
		require.NoError(t, c.InsertOne(ctx, database.Document{"_id": "x"}))

		err := c.InsertOne(ctx, database.Document{"_id": "x"})
		assert.True(t, errors.Is(err, database.ErrDuplicateDocument))
	})
}

func TestDB_Version(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := New()

	v, err := db.ReadCurrentVersion(ctx)
	require.NoError(t, err)
	assert.True(t, v.IsBeginning())

	require.NoError(t, db.WriteCurrentVersion(ctx, database.NewVersion(2, "rename field Y to Z")))

	v, err = db.ReadCurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, database.NewVersion(2, "rename field Y to Z"), v)

	require.NoError(t, db.Close(ctx))

	_, err = db.ReadCurrentVersion(ctx)
	assert.True(t, errors.Is(err, database.ErrNotConnected))
}
