package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(t.TempDir())

	require.NoError(t, s.Put(ctx, "runs/b.json", []byte(`{"b":1}`)))
	require.NoError(t, s.Put(ctx, "runs/a.json", []byte(`{"a":1}`)))

	got, err := s.Get(ctx, "runs/a.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(got))

	keys, err := s.List(ctx, "runs")
	require.NoError(t, err)
	assert.Equal(t, []string{"runs/a.json", "runs/b.json"}, keys)

	keys, err = s.List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(t.TempDir())

	for _, key := range []string{"", "/etc/passwd", "../outside.json", "runs/../../x"} {
		assert.Error(t, s.Put(ctx, key, []byte("x")), "key %q", key)
		_, err := s.Get(ctx, key)
		assert.Error(t, err, "key %q", key)
	}
	_, err := s.List(ctx, "../")
	assert.Error(t, err)
}

func TestLocalStoreOverwriteLeavesNoStagingFiles(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := NewLocalStore(root)

	require.NoError(t, s.Put(ctx, "runs/r.json", []byte("old")))
	require.NoError(t, s.Put(ctx, "runs/r.json", []byte("new")))

	got, err := s.Get(ctx, "runs/r.json")
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	entries, err := os.ReadDir(filepath.Join(root, "runs"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	keys, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"runs/r.json"}, keys)
}

func TestLocalStoreCanceledPut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewLocalStore(t.TempDir()).Put(ctx, "runs/x.json", nil), context.Canceled)
}

func TestParseS3URL(t *testing.T) {
	cases := []struct {
		in, bucket, prefix string
		wantErr            bool
	}{
		{"s3://reports", "reports", "", false},
		{"s3://reports/snipesync/", "reports", "snipesync", false},
		{"s3://reports/a/b", "reports", "a/b", false},
		{"s3:///nobucket", "", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			b, p, err := ParseS3URL(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.bucket, b)
			assert.Equal(t, tc.prefix, p)
		})
	}
}

func TestOpenLocal(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(context.Background(), dir, nil)
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, s)

	_, err = Open(context.Background(), "s3://bucket/x", nil)
	assert.Error(t, err)
}

type memS3 struct {
	objects map[string][]byte
}

func (m *memS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, _ := io.ReadAll(params.Body)
	m.objects[aws.ToString(params.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *memS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(m.objects[aws.ToString(params.Key)]))}, nil
}

func (m *memS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out := &s3.ListObjectsV2Output{}
	for k := range m.objects {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func TestS3StorePrefixesKeys(t *testing.T) {
	ctx := context.Background()
	mem := &memS3{objects: map[string][]byte{}}
	s := &S3Store{Client: mem, Bucket: "reports", Prefix: "snipesync"}

	require.NoError(t, s.Put(ctx, "run.json", []byte("{}")))
	assert.Contains(t, mem.objects, "snipesync/run.json")

	got, err := s.Get(ctx, "run.json")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(got))

	keys, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"run.json"}, keys)
}
