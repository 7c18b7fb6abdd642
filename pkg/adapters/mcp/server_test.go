package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dylansturg/weakevent/pkg/adapters/memory"
	"github.com/dylansturg/weakevent/pkg/domain"
)

type fakePublisher struct {
	notices []domain.Notice
	origins []string
	err     error
}

func (f *fakePublisher) Publish(_ context.Context, origin string, n domain.Notice) error {
	if f.err != nil {
		return f.err
	}
	f.origins = append(f.origins, origin)
	f.notices = append(f.notices, n)
	return nil
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestHandlePublish(t *testing.T) {
	pub := &fakePublisher{}
	srv := NewServer(pub, memory.NewHistory(8), "notices")

	result, err := srv.handlePublish(context.Background(), callRequest(map[string]any{
		"title": "deploy finished",
		"level": "warn",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	require.Len(t, pub.notices, 1)
	assert.Equal(t, "deploy finished", pub.notices[0].Title)
	assert.Equal(t, domain.LevelWarn, pub.notices[0].Level)
	assert.Equal(t, []string{"mcp"}, pub.origins)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "published")
}

func TestHandlePublish_Rejections(t *testing.T) {
	t.Run("missing title", func(t *testing.T) {
		pub := &fakePublisher{}
		srv := NewServer(pub, memory.NewHistory(8), "notices")

		result, err := srv.handlePublish(context.Background(), callRequest(map[string]any{}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Empty(t, pub.notices)
	})

	t.Run("unknown level", func(t *testing.T) {
		pub := &fakePublisher{}
		srv := NewServer(pub, memory.NewHistory(8), "notices")

		result, err := srv.handlePublish(context.Background(), callRequest(map[string]any{
			"title": "x",
			"level": "panic",
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})

	t.Run("publisher failure", func(t *testing.T) {
		pub := &fakePublisher{err: errors.New("connection refused")}
		srv := NewServer(pub, memory.NewHistory(8), "notices")

		result, err := srv.handlePublish(context.Background(), callRequest(map[string]any{
			"title": "x",
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)

		text, ok := result.Content[0].(mcp.TextContent)
		require.True(t, ok)
		assert.Contains(t, text.Text, "publish failed")
	})
}

func TestHandleRecent(t *testing.T) {
	history := memory.NewHistory(8)
	history.Add(domain.Notice{Title: "first"})
	history.Add(domain.Notice{Title: "second"})
	history.Add(domain.Notice{Title: "third"})

	srv := NewServer(&fakePublisher{}, history, "notices")

	resp, err := srv.handleRecent(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"count": float64(2),
	})
	require.NoError(t, err)

	require.Len(t, resp.Notices, 2)
	assert.Equal(t, "third", resp.Notices[0].Title)
	assert.Equal(t, "second", resp.Notices[1].Title)
	assert.Equal(t, uint64(3), resp.Total)
}
