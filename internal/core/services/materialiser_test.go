package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/adapters/driven/storage/memory"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/domain"
)

func seedIndex(t *testing.T, entities ...domain.Entity) *ContentIndex {
	t.Helper()
	index, err := OpenContentIndex(context.Background(), memory.NewIndexStore(), "mydiy.ie")
	require.NoError(t, err)
	for _, e := range entities {
		require.NoError(t, index.Upsert(context.Background(), e))
	}
	return index
}

func TestMaterialiser_RendersShardArtifact(t *testing.T) {
	artifacts := memory.NewArtifactStore()
	m := NewMaterialiser(artifacts)
	index := seedIndex(t, domain.Entity{
		ID:       "https://www.mydiy.ie/products/x200",
		Title:    "X200 Cordless Drill",
		ShardKey: "drills",
		Body: domain.EntityBody{
			Price:        "€99.00",
			Availability: "In stock",
			Description:  "Compact 18V drill.",
			Specs:        []domain.SpecAttr{{Name: "Voltage", Value: "18V"}},
		},
	})

	produced, err := m.Materialise(context.Background(), testProfile(), index, []string{"drills"})

	require.NoError(t, err)
	require.Len(t, produced, 1)
	assert.Equal(t, "llms-mydiy_ie-drills.txt", produced[0].Name)
	assert.Equal(t, []string{"https://www.mydiy.ie/products/x200"}, produced[0].EntityIDs)

	content, ok := artifacts.Content("mydiy.ie", "llms-mydiy_ie-drills.txt")
	require.True(t, ok)
	text := string(content)
	assert.Contains(t, text, "# X200 Cordless Drill")
	assert.Contains(t, text, "URL: https://www.mydiy.ie/products/x200")
	assert.Contains(t, text, "Price: €99.00")
	assert.Contains(t, text, "Availability: In stock")
	assert.Contains(t, text, "- Voltage: 18V")
}

func TestMaterialiser_SerialisationOrderFollowsMembership(t *testing.T) {
	artifacts := memory.NewArtifactStore()
	m := NewMaterialiser(artifacts)
	index := seedIndex(t,
		domain.Entity{ID: "https://www.mydiy.ie/products/c", Title: "C", ShardKey: "drills"},
		domain.Entity{ID: "https://www.mydiy.ie/products/a", Title: "A", ShardKey: "drills"},
		domain.Entity{ID: "https://www.mydiy.ie/products/b", Title: "B", ShardKey: "drills"},
	)

	_, err := m.Materialise(context.Background(), testProfile(), index, []string{"drills"})
	require.NoError(t, err)

	content, ok := artifacts.Content("mydiy.ie", "llms-mydiy_ie-drills.txt")
	require.True(t, ok)
	text := string(content)
	assert.Less(t, strings.Index(text, "# C"), strings.Index(text, "# A"))
	assert.Less(t, strings.Index(text, "# A"), strings.Index(text, "# B"))
}

func TestMaterialiser_SplitsAtCharacterCeiling(t *testing.T) {
	artifacts := memory.NewArtifactStore()
	m := NewMaterialiser(artifacts)

	profile := testProfile()
	profile.MaxArtifactChars = 400

	longDesc := strings.Repeat("very detailed text ", 10)
	index := seedIndex(t,
		domain.Entity{ID: "https://www.mydiy.ie/products/a", Title: "A", ShardKey: "drills",
			Body: domain.EntityBody{Description: longDesc}},
		domain.Entity{ID: "https://www.mydiy.ie/products/b", Title: "B", ShardKey: "drills",
			Body: domain.EntityBody{Description: longDesc}},
		domain.Entity{ID: "https://www.mydiy.ie/products/c", Title: "C", ShardKey: "drills",
			Body: domain.EntityBody{Description: longDesc}},
	)

	produced, err := m.Materialise(context.Background(), profile, index, []string{"drills"})
	require.NoError(t, err)
	require.Greater(t, len(produced), 1)

	assert.Equal(t, "llms-mydiy_ie-drills.txt", produced[0].Name)
	assert.Equal(t, "llms-mydiy_ie-drills-2.txt", produced[1].Name)

	// The union of ids across parts is exactly the shard membership.
	var union []string
	for _, artifact := range produced {
		union = append(union, artifact.EntityIDs...)
	}
	assert.Equal(t, index.ShardMembers("drills"), union)
}

func TestMaterialiser_OversizedSingleEntityStillProduced(t *testing.T) {
	artifacts := memory.NewArtifactStore()
	m := NewMaterialiser(artifacts)

	profile := testProfile()
	profile.MaxArtifactChars = 50

	index := seedIndex(t, domain.Entity{
		ID: "https://www.mydiy.ie/products/a", Title: "A", ShardKey: "drills",
		Body: domain.EntityBody{Description: strings.Repeat("long ", 100)},
	})

	produced, err := m.Materialise(context.Background(), profile, index, []string{"drills"})

	require.NoError(t, err)
	require.Len(t, produced, 1)
	assert.Greater(t, len(produced[0].Content), profile.MaxArtifactChars)
}

func TestMaterialiser_RemovesStaleParts(t *testing.T) {
	artifacts := memory.NewArtifactStore()
	m := NewMaterialiser(artifacts)

	profile := testProfile()
	profile.MaxArtifactChars = 400

	longDesc := strings.Repeat("very detailed text ", 10)
	index := seedIndex(t,
		domain.Entity{ID: "https://www.mydiy.ie/products/a", Title: "A", ShardKey: "drills",
			Body: domain.EntityBody{Description: longDesc}},
		domain.Entity{ID: "https://www.mydiy.ie/products/b", Title: "B", ShardKey: "drills",
			Body: domain.EntityBody{Description: longDesc}},
		domain.Entity{ID: "https://www.mydiy.ie/products/c", Title: "C", ShardKey: "drills",
			Body: domain.EntityBody{Description: longDesc}},
	)

	_, err := m.Materialise(context.Background(), profile, index, []string{"drills"})
	require.NoError(t, err)
	names, err := artifacts.List(context.Background(), "mydiy.ie")
	require.NoError(t, err)
	require.Greater(t, len(names), 1)

	// Shrink the shard to one entity; later parts must disappear.
	require.NoError(t, index.Remove(context.Background(), "https://www.mydiy.ie/products/b"))
	require.NoError(t, index.Remove(context.Background(), "https://www.mydiy.ie/products/c"))

	_, err = m.Materialise(context.Background(), profile, index, []string{"drills"})
	require.NoError(t, err)

	names, err = artifacts.List(context.Background(), "mydiy.ie")
	require.NoError(t, err)
	assert.Equal(t, []string{"llms-mydiy_ie-drills.txt"}, names)
}

func TestMaterialiser_EmptyShardWithdrawsArtifact(t *testing.T) {
	artifacts := memory.NewArtifactStore()
	m := NewMaterialiser(artifacts)
	index := seedIndex(t, domain.Entity{
		ID: "https://www.mydiy.ie/products/a", Title: "A", ShardKey: "drills",
	})

	_, err := m.Materialise(context.Background(), testProfile(), index, []string{"drills"})
	require.NoError(t, err)

	require.NoError(t, index.Remove(context.Background(), "https://www.mydiy.ie/products/a"))
	produced, err := m.Materialise(context.Background(), testProfile(), index, []string{"drills"})
	require.NoError(t, err)
	assert.Empty(t, produced)

	names, err := artifacts.List(context.Background(), "mydiy.ie")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestArtifactBelongsToShard(t *testing.T) {
	assert.True(t, artifactBelongsToShard("mydiy.ie", "drills", "llms-mydiy_ie-drills.txt"))
	assert.True(t, artifactBelongsToShard("mydiy.ie", "drills", "llms-mydiy_ie-drills-2.txt"))
	assert.False(t, artifactBelongsToShard("mydiy.ie", "drills", "llms-mydiy_ie-drills-two.txt"))
	assert.False(t, artifactBelongsToShard("mydiy.ie", "drills", "llms-mydiy_ie-sanders.txt"))
	// A shard whose name extends another one must not capture its parts.
	assert.False(t, artifactBelongsToShard("mydiy.ie", "drills", "llms-mydiy_ie-drills_pro.txt"))
}
