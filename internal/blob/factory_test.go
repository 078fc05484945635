package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()

	fsStore, err := Open(ctx, Config{Root: t.TempDir()})
	require.NoError(t, err)
	require.Equal(t, DriverFilesystem, fsStore.Driver())

	mem, err := Open(ctx, Config{Driver: DriverMemory})
	require.NoError(t, err)
	require.Equal(t, DriverMemory, mem.Driver())

	s3Store, err := Open(ctx, Config{Driver: DriverS3, Root: "corpus", S3: S3Config{Bucket: "bkt", Region: "us-east-1", AccessKeyID: "AKIA", SecretAccessKey: "SECRET"}})
	require.NoError(t, err)
	require.Equal(t, DriverS3, s3Store.Driver())

	_, err = Open(ctx, Config{Driver: "ftp"})
	require.Error(t, err)
}

func TestDriversShareSemantics(t *testing.T) {
	ctx := context.Background()
	fsStore, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	for _, store := range []Store{fsStore, NewMemory(), NewMockS3ForTests("root")} {
		t.Run(string(store.Driver()), func(t *testing.T) {
			_, err := store.Put(ctx, "train/1/a.jpg", bytes.NewReader([]byte("one")), PutOptions{})
			require.NoError(t, err)
			_, err = store.Put(ctx, "train/10/b.jpg", bytes.NewReader([]byte("ten")), PutOptions{})
			require.NoError(t, err)

			_, err = store.Put(ctx, "train/1/a.jpg", bytes.NewReader([]byte("dup")), PutOptions{})
			require.True(t, errors.Is(err, ErrExists), "got %v", err)

			_, err = store.Put(ctx, "train/1/a.jpg", bytes.NewReader([]byte("uno")), PutOptions{Replace: true})
			require.NoError(t, err)
			_, rc, err := store.Get(ctx, "train/1/a.jpg")
			require.NoError(t, err)
			b, _ := io.ReadAll(rc)
			_ = rc.Close()
			require.Equal(t, "uno", string(b))

			list, err := store.List(ctx, "train/1")
			require.NoError(t, err)
			require.Len(t, list, 1)
			require.Equal(t, "a.jpg", Base(list[0].Key))

			_, err = store.Head(ctx, "train/2/none.jpg")
			require.True(t, errors.Is(err, ErrNotFound), "got %v", err)

			require.NoError(t, store.DeletePrefix(ctx, "train/1"))
			rest, err := store.List(ctx, "train")
			require.NoError(t, err)
			require.Len(t, rest, 1)
			require.Equal(t, "train/10/b.jpg", rest[0].Key)
		})
	}
}
