package metastore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type storeFactory func(t *testing.T) Store

func storeFactories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"sqlite": func(t *testing.T) Store {
			s, err := New(t.Context(), Config{Provider: "sqlite", DSN: ":memory:"})
			if err != nil {
				t.Fatalf("open sqlite store: %v", err)
			}
			return s
		},
		"dynamodb": func(t *testing.T) Store {
			return NewDynamoStore(newFakeDynamo(), "")
		},
	}
}

func TestStores_PutOverwrites(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			store := factory(t)
			defer store.Close()

			first := Item{ID: "uploads/videos/clip.mp4", FileType: "mp4", SizeKiB: 5120}
			second := Item{ID: "uploads/videos/clip.mp4", FileType: "mp4", SizeKiB: 0.0009765625}

			if err := store.Put(ctx, first); err != nil {
				t.Fatalf("first put: %v", err)
			}
			if err := store.Put(ctx, second); err != nil {
				t.Fatalf("second put: %v", err)
			}

			reader, ok := store.(Reader)
			if !ok {
				t.Fatalf("%s store does not implement Reader", name)
			}

			got, err := reader.Get(ctx, first.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got != second {
				t.Errorf("expected %+v, got %+v", second, got)
			}
		})
	}
}

func TestStores_GetMissing(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()

			_, err := store.(Reader).Get(t.Context(), "nope/missing.txt")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestSQLiteStore_SingleRowPerID(t *testing.T) {
	ctx := t.Context()
	s, err := New(ctx, Config{Provider: "sqlite"})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	item := Item{ID: "uploads/README", FileType: "None", SizeKiB: 1}
	for i := 0; i < 3; i++ {
		if err := s.Put(ctx, item); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.(*sqliteStore).Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 row, got %d", n)
	}
}

func TestMemoryStore_ListOrdered(t *testing.T) {
	ctx := t.Context()
	m := NewMemoryStore()

	for _, id := range []string{"b/2", "a/1", "c/3"} {
		if err := m.Put(ctx, Item{ID: id, FileType: "None"}); err != nil {
			t.Fatal(err)
		}
	}

	items := m.List()
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for i, want := range []string{"a/1", "b/2", "c/3"} {
		if items[i].ID != want {
			t.Errorf("item %d: expected %s, got %s", i, want, items[i].ID)
		}
	}
	if m.Puts() != 3 {
		t.Errorf("expected 3 puts, got %d", m.Puts())
	}
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMemoryStore()
	if err := m.Put(ctx, Item{ID: "a/b"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if m.Puts() != 0 {
		t.Errorf("expected no writes, got %d", m.Puts())
	}
}

func TestDynamoStore_ItemAttributes(t *testing.T) {
	fake := newFakeDynamo()
	s := NewDynamoStore(fake, "")

	err := s.Put(t.Context(), Item{ID: "uploads/videos/clip.mp4", FileType: "mp4", SizeKiB: 5120})
	if err != nil {
		t.Fatal(err)
	}

	if len(fake.inputs) != 1 {
		t.Fatalf("expected 1 PutItem call, got %d", len(fake.inputs))
	}
	in := fake.inputs[0]
	if *in.TableName != DefaultTable {
		t.Errorf("expected table %s, got %s", DefaultTable, *in.TableName)
	}

	wantS := map[string]string{"id": "uploads/videos/clip.mp4", "filetype": "mp4"}
	for attr, want := range wantS {
		s, ok := in.Item[attr].(*types.AttributeValueMemberS)
		if !ok {
			t.Errorf("%s: expected string attribute, got %T", attr, in.Item[attr])
			continue
		}
		if s.Value != want {
			t.Errorf("%s: expected %q, got %q", attr, want, s.Value)
		}
	}

	n, ok := in.Item["size"].(*types.AttributeValueMemberN)
	if !ok {
		t.Fatalf("size: expected number attribute, got %T", in.Item["size"])
	}
	if n.Value != "5120" {
		t.Errorf("size: expected 5120, got %s", n.Value)
	}
}

func TestDynamoStore_PropagatesError(t *testing.T) {
	fake := newFakeDynamo()
	fake.err = errors.New("ProvisionedThroughputExceededException")

	err := NewDynamoStore(fake, "Custom").Put(t.Context(), Item{ID: "a/b"})
	if !errors.Is(err, fake.err) {
		t.Fatalf("expected fake error, got %v", err)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		kib  float64
		want string
	}{
		{2, "2"},
		{5120, "5120"},
		{0.0009765625, "0.0009765625"},
		{1.5, "1.5"},
		{0, "0"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.kib); got != tt.want {
			t.Errorf("FormatSize(%v) = %s, want %s", tt.kib, got, tt.want)
		}
	}
}

func TestMigrateURL(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@localhost:5432/db?sslmode=disable": "pgx5://u:p@localhost:5432/db?sslmode=disable",
		"postgresql://localhost/db":                        "pgx5://localhost/db",
		"pgx5://localhost/db":                              "pgx5://localhost/db",
	}
	for in, want := range tests {
		if got := migrateURL(in); got != want {
			t.Errorf("migrateURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	if _, err := New(t.Context(), Config{Provider: "cassandra"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

type fakeDynamo struct {
	mu     sync.Mutex
	items  map[string]map[string]types.AttributeValue
	inputs []*dynamodb.PutItemInput
	err    error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	id := in.Item["id"].(*types.AttributeValueMemberS).Value
	f.items[id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := in.Key["id"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[id]}, nil
}
