package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cchalm/shopchat/internal/chat"
	"github.com/cchalm/shopchat/internal/store"
)

func newTestRepository(t *testing.T) (*Repository, *store.MemoryBackend) {
	t.Helper()
	backend := store.NewMemoryBackend()
	return New(store.NewAdapter(backend)), backend
}

func conversation(id string, lastUpdated int64) chat.Conversation {
	return chat.Conversation{
		ID:          id,
		Title:       "chat " + id,
		Messages:    []chat.Message{chat.UserMessage("q" + id)},
		LastUpdated: lastUpdated,
	}
}

func ids(convs []chat.Conversation) []string {
	out := []string{}
	for _, c := range convs {
		out = append(out, c.ID)
	}
	return out
}

func TestUpsert_Insert(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	repo.Upsert(ctx, conversation("a", 1))
	saved := repo.Upsert(ctx, conversation("b", 2))

	assert.Equal(t, []string{"b", "a"}, ids(saved))
	assert.Equal(t, []string{"b", "a"}, ids(repo.List(ctx)))
}

func TestUpsert_ReplacesSameID(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	repo.Upsert(ctx, conversation("a", 1))
	repo.Upsert(ctx, conversation("b", 2))
	updated := conversation("a", 3)
	updated.Messages = append(updated.Messages, chat.AssistantMessage("reply"))
	repo.Upsert(ctx, updated)

	list := repo.List(ctx)
	assert.Equal(t, []string{"a", "b"}, ids(list))
	assert.Len(t, list[0].Messages, 2)
}

func TestUpsert_Eviction(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	for i := 1; i <= 6; i++ {
		repo.Upsert(ctx, conversation(fmt.Sprint(i), int64(i*1000)))
	}

	list := repo.List(ctx)
	assert.Equal(t, []string{"6", "5", "4", "3", "2"}, ids(list))
	_, found := repo.FindByID(ctx, "1")
	assert.False(t, found)
}

func TestUpsert_MonotonicEviction(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	// Out-of-order timestamps: the retained set is always the most recent among everything ever inserted
	stamps := []int64{50, 10, 90, 30, 70, 20, 80, 60, 40, 100}
	for i, ts := range stamps {
		saved := repo.Upsert(ctx, conversation(fmt.Sprint(i), ts))
		assert.LessOrEqual(t, len(saved), chat.MaxConversations)
	}

	var got []int64
	for _, c := range repo.List(ctx) {
		got = append(got, c.LastUpdated)
	}
	assert.Equal(t, []int64{100, 90, 80, 70, 60}, got)
}

func TestUpsert_StoresCopy(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	c := conversation("a", 1)

	repo.Upsert(ctx, c)
	c.Messages[0] = chat.UserMessage("mutated")

	stored, found := repo.FindByID(ctx, "a")
	require.True(t, found)
	assert.Equal(t, "qa", stored.Messages[0].Text)
}

func TestFindByID(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	repo.Upsert(ctx, conversation("a", 1))

	c, found := repo.FindByID(ctx, "a")
	require.True(t, found)
	assert.Equal(t, "chat a", c.Title)

	_, found = repo.FindByID(ctx, "nope")
	assert.False(t, found)
}

func TestDelete(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	repo.Upsert(ctx, conversation("a", 1))
	repo.Upsert(ctx, conversation("b", 2))

	repo.Delete(ctx, "a")

	assert.Equal(t, []string{"b"}, ids(repo.List(ctx)))
}

func TestDelete_UnknownIDLeavesStoreUnchanged(t *testing.T) {
	repo, backend := newTestRepository(t)
	ctx := context.Background()
	repo.Upsert(ctx, conversation("a", 1))
	repo.Upsert(ctx, conversation("b", 2))

	before, err := backend.Read(ctx, store.DefaultKey)
	require.NoError(t, err)
	writes := backend.Writes()

	repo.Delete(ctx, "missing")

	after, err := backend.Read(ctx, store.DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, writes, backend.Writes())
}

func TestUpsert_KeepsRecordsWithUnknownRoles(t *testing.T) {
	repo, backend := newTestRepository(t)
	ctx := context.Background()
	raw := `[
		{"id":"1","title":"one","messages":[{"role":"user","parts":[{"text":"q1"}]}],"lastUpdated":1},
		{"id":"2","title":"two","messages":[{"role":"system","parts":[{"text":"x"}]},{"role":"user","parts":[{"text":"q2"}]}],"lastUpdated":2},
		{"id":"3","title":"three","messages":[{"role":"user","parts":[{"text":"q3"}]}],"lastUpdated":3}
	]`
	require.NoError(t, backend.Write(ctx, store.DefaultKey, []byte(raw)))

	require.Len(t, repo.List(ctx), 3)

	repo.Upsert(ctx, conversation("4", 4))

	assert.Equal(t, []string{"4", "3", "2", "1"}, ids(repo.List(ctx)))
}
