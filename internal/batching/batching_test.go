package batching_test

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"streamdigest/internal/batching"
	"streamdigest/internal/screenshots"
)

func artifactsOfSize(sizes ...int64) []screenshots.Artifact {
	out := make([]screenshots.Artifact, len(sizes))
	for i, size := range sizes {
		out[i] = screenshots.Artifact{Sequence: i + 1, Path: screenshots.ArtifactName(i+1, 7), SizeBytes: size}
	}
	return out
}

func sizesOf(batches []batching.Batch) [][]int64 {
	out := make([][]int64, len(batches))
	for i, b := range batches {
		for _, a := range b.Artifacts {
			out[i] = append(out[i], a.SizeBytes)
		}
	}
	return out
}

func TestPartitionGreedy(t *testing.T) {
	tests := []struct {
		name  string
		sizes []int64
		limit int64
		want  [][]int64
	}{
		{name: "empty", sizes: nil, limit: 10, want: [][]int64{}},
		{name: "all fit", sizes: []int64{1, 2, 3}, limit: 10, want: [][]int64{{1, 2, 3}}},
		{name: "exact fit stays together", sizes: []int64{5, 5}, limit: 10, want: [][]int64{{5, 5}}},
		{name: "oversized singleton", sizes: []int64{5, 5, 5, 11}, limit: 10, want: [][]int64{{5, 5}, {5}, {11}}},
		{name: "oversized first", sizes: []int64{20, 1, 1}, limit: 10, want: [][]int64{{20}, {1, 1}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := sizesOf(batching.Partition(artifactsOfSize(tc.sizes...), tc.limit))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("partition mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPartitionFlagsOversizedAndNumbersBatches(t *testing.T) {
	batches := batching.Partition(artifactsOfSize(5, 5, 5, 11), 10)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	for i, b := range batches {
		if b.Index != i+1 || b.Total != 3 {
			t.Fatalf("batch %d has index %d/%d", i, b.Index, b.Total)
		}
	}
	if batches[0].Oversized || batches[1].Oversized {
		t.Fatal("expected first two batches within budget")
	}
	if !batches[2].Oversized {
		t.Fatal("expected last batch flagged oversized")
	}
	if batches[0].SizeBytes != 10 {
		t.Fatalf("unexpected batch size %d", batches[0].SizeBytes)
	}
}

func TestPartitionInvariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for round := 0; round < 200; round++ {
		limit := int64(rng.IntN(50) + 1)
		sizes := make([]int64, rng.IntN(30))
		for i := range sizes {
			sizes[i] = int64(rng.IntN(60))
		}
		artifacts := artifactsOfSize(sizes...)
		batches := batching.Partition(artifacts, limit)

		if diff := cmp.Diff(artifacts, batching.Flatten(batches), cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("round %d: concatenation changed artifacts (-want +got):\n%s", round, diff)
		}
		for i, b := range batches {
			if len(b.Artifacts) == 0 {
				t.Fatalf("round %d: empty batch %d", round, i)
			}
			if len(b.Artifacts) > 1 && b.SizeBytes > limit {
				t.Fatalf("round %d: multi-artifact batch %d exceeds limit: %d > %d", round, i, b.SizeBytes, limit)
			}
			if i+1 < len(batches) {
				next := batches[i+1].Artifacts[0].SizeBytes
				if b.SizeBytes+next <= limit {
					t.Fatalf("round %d: batch %d closed early (%d + %d <= %d)", round, i, b.SizeBytes, next, limit)
				}
			}
		}
	}
}

func TestBudget(t *testing.T) {
	budget := batching.Budget{MaxEmailBytes: 15 * 1024 * 1024, BodyReserveBytes: 1024 * 1024}
	if got := budget.MaxAttachmentBytes(); got != 14*1024*1024 {
		t.Fatalf("unexpected attachment budget %d", got)
	}
	if err := budget.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := (batching.Budget{MaxEmailBytes: 10, BodyReserveBytes: 10}).Validate(); err == nil {
		t.Fatal("expected error when reserve consumes budget")
	}
	if err := (batching.Budget{MaxEmailBytes: 10, BodyReserveBytes: -1}).Validate(); err == nil {
		t.Fatal("expected error for negative reserve")
	}
}
