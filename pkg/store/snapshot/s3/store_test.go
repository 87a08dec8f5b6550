package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fin-tools/macro-sync/pkg/errs"
	"github.com/fin-tools/macro-sync/pkg/models/domain"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) GetObject(ctx context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetObjectOutput), args.Error(1)
}

func (m *mockAPI) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func testHandle() domain.StorageHandle {
	return domain.StorageHandle{Provider: Provider, Path: "books/Treasury_Yields.xlsx"}
}

func TestStore_Fetch(t *testing.T) {
	client := &mockAPI{}
	client.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return *in.Bucket == "macro" && *in.Key == "books/Treasury_Yields.xlsx"
	})).Return(&s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader([]byte("workbook bytes"))),
	}, nil)

	store := &Store{client: client, bucket: "macro"}
	data, err := store.Fetch(context.Background(), testHandle())

	require.NoError(t, err)
	assert.Equal(t, []byte("workbook bytes"), data)
	client.AssertExpectations(t)
}

func TestStore_Fetch_MissingKeyMapsToSheetNotFound(t *testing.T) {
	client := &mockAPI{}
	client.On("GetObject", mock.Anything, mock.Anything).Return(nil, &types.NoSuchKey{})

	store := &Store{client: client, bucket: "macro"}
	_, err := store.Fetch(context.Background(), testHandle())

	require.ErrorIs(t, err, errs.ErrSheetNotFound)
	assert.Contains(t, err.Error(), "s3://macro/books/Treasury_Yields.xlsx")
}

func TestStore_Fetch_Error(t *testing.T) {
	client := &mockAPI{}
	client.On("GetObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	store := &Store{client: client, bucket: "macro"}
	_, err := store.Fetch(context.Background(), testHandle())

	require.Error(t, err)
	assert.NotErrorIs(t, err, errs.ErrSheetNotFound)
	assert.Contains(t, err.Error(), "failed to fetch s3://macro/books/Treasury_Yields.xlsx")
}

func TestStore_Save(t *testing.T) {
	var captured *s3.PutObjectInput
	client := &mockAPI{}
	client.On("PutObject", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*s3.PutObjectInput)
		}).
		Return(&s3.PutObjectOutput{}, nil)

	store := &Store{client: client, bucket: "macro"}
	require.NoError(t, store.Save(context.Background(), testHandle(), []byte("updated workbook")))

	require.NotNil(t, captured)
	assert.Equal(t, "macro", *captured.Bucket)
	assert.Equal(t, "books/Treasury_Yields.xlsx", *captured.Key)
	assert.Equal(t, workbookContentType, *captured.ContentType)

	body, err := io.ReadAll(captured.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("updated workbook"), body)
}

func TestStore_Save_Error(t *testing.T) {
	client := &mockAPI{}
	client.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("slow down"))

	store := &Store{client: client, bucket: "macro"}
	err := store.Save(context.Background(), testHandle(), []byte("updated workbook"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save s3://macro/books/Treasury_Yields.xlsx")
}
