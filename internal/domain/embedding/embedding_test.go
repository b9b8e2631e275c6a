package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	vector Vector
	err    error
	calls  int
	last   string
	block  bool
}

func (f *fakeProvider) EmbedDocument(_ context.Context, req DocumentRequest) (DocumentResponse, error) {
	f.calls++
	if f.err != nil {
		return DocumentResponse{}, f.err
	}
	resp := DocumentResponse{}
	for i := range req.Documents {
		resp.Data = append(resp.Data, Data{Vector: f.vector, Index: i})
	}
	return resp, nil
}

func (f *fakeProvider) ModelName() string {
	return "fake-model"
}

func (f *fakeProvider) EmbedSingle(ctx context.Context, req SingleRequest) (SingleResponse, error) {
	f.calls++
	f.last = req.Content
	if f.block {
		<-ctx.Done()
		return SingleResponse{}, ctx.Err()
	}
	if f.err != nil {
		return SingleResponse{}, f.err
	}
	return SingleResponse{Data: Data{Vector: f.vector}}, nil
}

func TestClientEmbed(t *testing.T) {
	p := &fakeProvider{vector: Vector{0.1, 0.2}}
	c := NewClient(p, time.Second, nil)

	v := c.Embed(context.Background(), "  black jacket ")
	assert.Equal(t, Vector{0.1, 0.2}, v)
	assert.Equal(t, "black jacket", p.last)
}

func TestClientEmbedEmptyInputSkipsProvider(t *testing.T) {
	p := &fakeProvider{vector: Vector{1}}
	c := NewClient(p, time.Second, nil)

	assert.Nil(t, c.Embed(context.Background(), "   "))
	assert.Equal(t, 0, p.calls)
}

func TestClientEmbedProviderError(t *testing.T) {
	c := NewClient(&fakeProvider{err: errors.New("boom")}, time.Second, nil)
	assert.Nil(t, c.Embed(context.Background(), "shoes"))
}

func TestClientEmbedEmptyVector(t *testing.T) {
	c := NewClient(&fakeProvider{}, time.Second, nil)
	assert.Nil(t, c.Embed(context.Background(), "shoes"))
}

func TestClientEmbedTimeout(t *testing.T) {
	c := NewClient(&fakeProvider{block: true}, 10*time.Millisecond, nil)

	start := time.Now()
	assert.Nil(t, c.Embed(context.Background(), "shoes"))
	assert.Less(t, time.Since(start), time.Second)
}

func TestClientWithoutProvider(t *testing.T) {
	c := NewClient(nil, time.Second, nil)
	assert.Nil(t, c.Embed(context.Background(), "shoes"))
}

func TestVectorCosine(t *testing.T) {
	s, err := Vector{1, 0}.Cosine(Vector{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, s, 1e-9)

	s, err = Vector{1, 0}.Cosine(Vector{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, s, 1e-9)

	s, err = Vector{0, 0}.Cosine(Vector{0, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, s)

	_, err = Vector{1}.Cosine(Vector{1, 2})
	assert.ErrorIs(t, err, ErrVectorLengthMismatch)
}

func TestProductText(t *testing.T) {
	text := ProductText("Black Jacket", "", "women", []string{"outerwear"}, []string{"winter", "warm"})
	assert.Equal(t, "Black Jacket women outerwear winter warm", text)
}

func TestClientEmbedBatch(t *testing.T) {
	p := &fakeProvider{vector: Vector{1, 0}}
	c := NewClient(p, time.Second, nil)

	vs := c.EmbedBatch(context.Background(), []string{"a", "b", "c"}, 2)
	require.Len(t, vs, 3)
	for _, v := range vs {
		assert.Equal(t, Vector{1, 0}, v)
	}
	assert.Equal(t, 2, p.calls)
	assert.Equal(t, "fake-model", c.Model())
}

func TestClientEmbedBatchFailureLeavesNil(t *testing.T) {
	c := NewClient(&fakeProvider{err: errors.New("quota")}, time.Second, nil)

	vs := c.EmbedBatch(context.Background(), []string{"a", "b"}, 10)
	require.Len(t, vs, 2)
	assert.Nil(t, vs[0])
	assert.Nil(t, vs[1])
}
