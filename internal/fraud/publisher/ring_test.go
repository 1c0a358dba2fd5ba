package publisher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"custos/internal/fraud"
)

func finding(summary string) fraud.Finding {
	return fraud.Finding{Kind: fraud.FindingIPFraud, IP: "192.0.2.1", Summary: summary}
}

func summaries(findings []fraud.Finding) []string {
	out := make([]string, len(findings))
	for i, f := range findings {
		out[i] = f.Summary
	}
	return out
}

func TestRingDropsOldestWhenFull(t *testing.T) {
	r := newRing(3)
	for _, s := range []string{"one", "two", "three", "four", "five"} {
		r.enqueue(finding(s))
	}

	require.Equal(t, 3, r.len())
	require.Equal(t, int64(2), r.droppedTotal())
	require.Equal(t, []string{"three", "four", "five"}, summaries(r.dequeueBatch(10)))
	require.Zero(t, r.len())
}

func TestRingEnqueueReportsEviction(t *testing.T) {
	r := newRing(2)
	require.False(t, r.enqueue(finding("one")))
	require.False(t, r.enqueue(finding("two")))
	require.True(t, r.enqueue(finding("three")))
}

func TestRingDequeuesInArrivalOrder(t *testing.T) {
	r := newRing(5)
	for _, s := range []string{"one", "two", "three"} {
		r.enqueue(finding(s))
	}

	require.Equal(t, []string{"one", "two"}, summaries(r.dequeueBatch(2)))
	require.Equal(t, 1, r.len())
	require.Equal(t, []string{"three"}, summaries(r.dequeueBatch(5)))
	require.Nil(t, r.dequeueBatch(1))
}
