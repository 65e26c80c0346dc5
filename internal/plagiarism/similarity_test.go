package plagiarism

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sumLoop = "int total = 0 ; for ( int i = 0 ; i < n ; i ++ ) { total += i ; } return total ;"
	// sumLoop with total→acc, i→k, n→limit
	sumLoopRenamed = "int acc = 0 ; for ( int k = 0 ; k < limit ; k ++ ) { acc += k ; } return acc ;"
	helloWorld     = "public static void main ( String [ ] args ) { System.out.println ( \"hello\" ) ; if ( args.length > 0 ) { throw new IllegalArgumentException ( ) ; } }"
)

func TestScoreIdenticalSnippets(t *testing.T) {
	a := "int x = 1 ; return x ;"

	score, err := Score(a, a)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestScoreSelfIsZero(t *testing.T) {
	s, err := NewScorer(nil)
	require.NoError(t, err)

	for _, snippet := range []string{"x", "a b a b", sumLoop, helloWorld} {
		for _, dim := range []int{1, 8, 16, 64} {
			score, err := s.Score(snippet, snippet, dim)
			require.NoError(t, err)
			assert.Equal(t, 0.0, score, "snippet %q dim %d", snippet, dim)
		}
	}
}

func TestScoreDeterministic(t *testing.T) {
	s, err := NewScorer(nil)
	require.NoError(t, err)

	first, err := s.Score(sumLoop, helloWorld, 16)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := s.Score(sumLoop, helloWorld, 16)
		require.NoError(t, err)
		assert.InDelta(t, first, again, 1e-9)
	}
}

func TestScoreRenamedCloserThanUnrelated(t *testing.T) {
	s, err := NewScorer(nil)
	require.NoError(t, err)

	renamed, err := s.Score(sumLoop, sumLoopRenamed, 16)
	require.NoError(t, err)
	unrelated, err := s.Score(sumLoop, helloWorld, 16)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, renamed, 0.0)
	assert.Less(t, renamed, unrelated)
}

func TestGraphEmbeddingWidth(t *testing.T) {
	s, err := NewScorer(nil)
	require.NoError(t, err)

	for _, dim := range []int{1, 8, 16, 64} {
		emb, err := s.GraphEmbedding(sumLoop, dim)
		require.NoError(t, err)
		assert.Len(t, emb, dim)
	}
}

func TestScoreEmptySnippet(t *testing.T) {
	_, err := Score("", "int x ;")
	assert.ErrorIs(t, err, ErrEmptyGraph)

	_, err = Score("int x ;", "  \n ")
	assert.ErrorIs(t, err, ErrEmptyGraph)
}

func TestScoreInvalidDimension(t *testing.T) {
	s, err := NewScorer(nil)
	require.NoError(t, err)

	_, err = s.Score("a", "b", 0)
	assert.ErrorIs(t, err, ErrInvalidDimension)

	_, err = s.Score("a b", "a b", 2000000000)
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestManhattan(t *testing.T) {
	d, err := Manhattan([]float64{1, -2, 3}, []float64{0, 2, 3})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, d, 1e-12)

	_, err = Manhattan([]float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestScorerCacheDoesNotChangeResults(t *testing.T) {
	plain, err := NewScorer(nil)
	require.NoError(t, err)
	cached, err := NewScorer(nil, WithEmbeddingCache(8))
	require.NoError(t, err)

	want, err := plain.Score(sumLoop, helloWorld, 16)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := cached.Score(sumLoop, helloWorld, 16)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 2, cached.cache.Len())

	// a different width is a different entry
	_, err = cached.GraphEmbedding(sumLoop, 8)
	require.NoError(t, err)
	assert.Equal(t, 3, cached.cache.Len())
}

func TestEmbeddingCacheReturnsCopies(t *testing.T) {
	c, err := NewEmbeddingCache(2)
	require.NoError(t, err)

	c.Add("a b", 2, []float64{1, 2})
	got, ok := c.Get("a b", 2)
	require.True(t, ok)
	got[0] = 99

	again, ok := c.Get("a b", 2)
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2}, again)

	_, ok = c.Get("a b", 3)
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, VerdictIdentical, Classify(0, 0.3))
	assert.Equal(t, VerdictPlagiarized, Classify(0.3, 0.3))
	assert.Equal(t, VerdictDistinct, Classify(0.31, 0.3))
	assert.True(t, IsSimilar(0.1, 0.1))
	assert.False(t, IsSimilar(0.2, 0.1))
}

func TestScorePairsKeepsOrder(t *testing.T) {
	ctx := context.Background()
	pool := NewWorkerPool(ctx, 2)
	defer pool.Close()

	s, err := NewScorer(nil)
	require.NoError(t, err)

	pairs := []Pair{
		{ID: "same", SnippetA: sumLoop, SnippetB: sumLoop},
		{ID: "renamed", SnippetA: sumLoop, SnippetB: sumLoopRenamed},
		{ID: "empty", SnippetA: sumLoop, SnippetB: "   "},
		{ID: "unrelated", SnippetA: sumLoop, SnippetB: helloWorld},
	}

	results := ScorePairs(ctx, pool, s, pairs, 16)
	require.Len(t, results, len(pairs))

	for i, r := range results {
		assert.Equal(t, pairs[i].ID, r.Pair.ID)
	}
	assert.NoError(t, results[0].Err)
	assert.Equal(t, 0.0, results[0].Score)
	assert.ErrorIs(t, results[2].Err, ErrEmptyGraph)
	assert.NoError(t, results[3].Err)
	assert.Greater(t, results[3].Score, 0.0)
}

func TestWorkerPoolRejectsAfterClose(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 1)
	assert.Equal(t, 1, pool.Size())
	pool.Close()
	pool.Close()

	err := pool.Submit(context.Background(), &ScoreJob{})
	assert.ErrorIs(t, err, ErrPoolClosed)
}
