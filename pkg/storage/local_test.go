package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	d, err := NewLocal(t.TempDir(), "/media/")
	require.NoError(t, err)

	require.NoError(t, d.Put(ctx, "product-images/cover.jpg", []byte("jpeg")))

	ok, err := d.Exists(ctx, "product-images/cover.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := d.Get(ctx, "product-images/cover.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)
	assert.Equal(t, "/media/product-images/cover.jpg", d.URL("product-images/cover.jpg"))

	require.NoError(t, d.Delete(ctx, "product-images/cover.jpg"))
	require.NoError(t, d.Delete(ctx, "product-images/cover.jpg"))

	_, err = d.Get(ctx, "product-images/cover.jpg")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestLocal_RejectsEscapingPaths(t *testing.T) {
	d, err := NewLocal(t.TempDir(), "")
	require.NoError(t, err)

	err = d.Put(context.Background(), "../outside.txt", []byte("x"))
	require.Error(t, err)
}

func TestNew_UnknownDisk(t *testing.T) {
	_, err := New(context.Background(), Config{Disk: "ftp"})
	require.Error(t, err)
}
