package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"trendzn-restful/apperrors"
	"trendzn-restful/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

func TestPrepareImage(t *testing.T) {
	img, err := PrepareImage("image", "Funny.PNG", bytes.NewReader(pngBytes), 1024)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Regexp(t, regexp.MustCompile(`^image-\d+-[0-9a-f-]{36}\.png$`), img.Name)

	other, err := PrepareImage("image", "Funny.PNG", bytes.NewReader(pngBytes), 1024)
	require.NoError(t, err)
	assert.NotEqual(t, img.Name, other.Name)
}

func TestPrepareImageRejects(t *testing.T) {
	cases := map[string]struct {
		name string
		data []byte
		max  int64
	}{
		"extension":     {"notes.txt", pngBytes, 1024},
		"content":       {"fake.png", []byte("<html><body>hi</body></html>"), 1024},
		"too large":     {"big.png", pngBytes, 8},
		"empty":         {"empty.png", nil, 1024},
		"mismatch type": {"pic.gif", pngBytes, 1024},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := PrepareImage("image", tc.name, bytes.NewReader(tc.data), tc.max)
			require.Error(t, err)
			assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
		})
	}
}

func TestObjectName(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	name := ObjectName("", ".gif", now)
	assert.True(t, strings.HasPrefix(name, "image-1700000000123-"))
	assert.True(t, strings.HasSuffix(name, ".gif"))
}

func TestLocalStoreSaveDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "")
	require.NoError(t, err)
	ctx := context.Background()

	img := &Image{Name: "image-1-abc.png", ContentType: "image/png", Data: pngBytes}
	obj, err := store.Save(ctx, img)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/image-1-abc.png", obj.URL)

	data, err := os.ReadFile(filepath.Join(dir, obj.Key))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	require.NoError(t, store.Delete(ctx, obj.Key))
	_, err = os.Stat(filepath.Join(dir, obj.Key))
	assert.True(t, os.IsNotExist(err))

	// Missing files are not an error.
	assert.NoError(t, store.Delete(ctx, obj.Key))
}

func TestLocalStoreKeepsKeysInsideDir(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(filepath.Join(dir, "uploads"), "/media/")
	require.NoError(t, err)

	obj, err := store.Save(context.Background(), &Image{Name: "../../escape.png", Data: pngBytes})
	require.NoError(t, err)
	assert.Equal(t, "escape.png", obj.Key)
	assert.Equal(t, "/media/escape.png", obj.URL)
	assert.FileExists(t, filepath.Join(dir, "uploads", "escape.png"))
}

type fakeS3 struct {
	objects map[string][]byte
	failPut error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failPut != nil {
		return nil, f.failPut
	}
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(in.Body)
	f.objects[aws.ToString(in.Key)] = buf.Bytes()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StoreSaveDelete(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	store := newS3Store(fake, config.StorageConfig{
		S3: config.S3Config{Bucket: "memes", Region: "eu-west-1"},
	})
	ctx := context.Background()

	obj, err := store.Save(ctx, &Image{Name: "image-1-x.png", ContentType: "image/png", Data: pngBytes})
	require.NoError(t, err)
	assert.Equal(t, "uploads/image-1-x.png", obj.Key)
	assert.Equal(t, "https://memes.s3.eu-west-1.amazonaws.com/uploads/image-1-x.png", obj.URL)
	assert.Equal(t, pngBytes, fake.objects[obj.Key])

	require.NoError(t, store.Delete(ctx, obj.Key))
	assert.Empty(t, fake.objects)
}

func TestS3StoreSaveError(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, failPut: errors.New("access denied")}
	store := newS3Store(fake, config.StorageConfig{S3: config.S3Config{Bucket: "memes"}})

	_, err := store.Save(context.Background(), &Image{Name: "a.png", Data: pngBytes})
	assert.ErrorContains(t, err, "access denied")
}

func TestS3BaseURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com", s3BaseURL(config.StorageConfig{PublicBaseURL: "https://cdn.example.com/"}))
	assert.Equal(t, "http://minio:9000/memes", s3BaseURL(config.StorageConfig{S3: config.S3Config{Bucket: "memes", Endpoint: "http://minio:9000"}}))
}
