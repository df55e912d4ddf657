package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Get(ctx, "papers/1/plain.txt"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("期望 ErrObjectNotFound，实际 %v", err)
	}

	data := []byte("hello")
	if err := s.Put(ctx, "papers/1/plain.txt", data, "text/plain"); err != nil {
		t.Fatalf("Put 失败: %v", err)
	}
	data[0] = 'X'

	got, err := s.Get(ctx, "papers/1/plain.txt")
	if err != nil || string(got) != "hello" {
		t.Errorf("读取内容不符: %q %v", got, err)
	}
	if s.Len() != 1 {
		t.Errorf("期望 1 个对象，实际 %d", s.Len())
	}
}

func TestTranslateErr(t *testing.T) {
	err := minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}
	if !errors.Is(translateErr(err), ErrObjectNotFound) {
		t.Error("NoSuchKey 应转换为 ErrObjectNotFound")
	}
	other := errors.New("boom")
	if translateErr(other) != other {
		t.Error("其他错误应原样返回")
	}
}
