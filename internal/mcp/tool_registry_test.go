package mcp

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *ToolRegistry {
	t.Helper()
	r := NewToolRegistry()
	for _, tool := range []*ToolMetadata{
		{Name: "evaluate_claim", Description: "Decide whether a claim is accepted", Category: CategoryEvaluation, Keywords: []string{"verdict"}},
		{Name: "analyze_clauses", Description: "Score policy clauses", Category: CategoryClauses, Keywords: []string{"coverage"}},
		{Name: "list_diseases", Description: "List the disease catalog", Category: CategoryCatalog},
	} {
		require.NoError(t, r.Register(tool))
	}
	return r
}

func TestToolRegistry_Register(t *testing.T) {
	r := testRegistry(t)

	got, err := r.Get("evaluate_claim")
	require.NoError(t, err)
	assert.Equal(t, CategoryEvaluation, got.Category)
	assert.Equal(t, 3, r.Count())

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestToolRegistry_RegisterInvalid(t *testing.T) {
	r := testRegistry(t)

	tests := []struct {
		name string
		tool *ToolMetadata
		want error
	}{
		{"nil tool", nil, ErrToolRequired},
		{"empty name", &ToolMetadata{Description: "x"}, ErrToolNameRequired},
		{"empty description", &ToolMetadata{Name: "x"}, ErrToolDescRequired},
		{"duplicate", &ToolMetadata{Name: "list_diseases", Description: "again"}, ErrToolAlreadyExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, r.Register(tt.tool), tt.want)
		})
	}
	assert.Equal(t, 3, r.Count())
}

func TestToolRegistry_List(t *testing.T) {
	r := testRegistry(t)

	all := r.List("")
	require.Len(t, all, 3)
	assert.Equal(t, []string{"analyze_clauses", "evaluate_claim", "list_diseases"},
		[]string{all[0].Name, all[1].Name, all[2].Name})

	clauses := r.List(CategoryClauses)
	require.Len(t, clauses, 1)
	assert.Equal(t, "analyze_clauses", clauses[0].Name)
}

func TestToolRegistry_Search(t *testing.T) {
	r := testRegistry(t)

	tests := []struct {
		name      string
		query     string
		category  ToolCategory
		wantFirst string
		wantScore int
		wantCount int
	}{
		{"exact name", "evaluate_claim", "", "evaluate_claim", 3, 1},
		{"name substring", "claim", "", "evaluate_claim", 2, 1},
		{"description", "catalog", "", "list_diseases", 1, 1},
		{"keyword", "verdict", "", "evaluate_claim", 1, 1},
		{"regex", "^(list|analyze)_", "", "analyze_clauses", 2, 2},
		{"category filter", "claim", CategoryClauses, "", 0, 0},
		{"invalid regex falls back to literal", "claim(", "", "", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Search(tt.query, tt.category)
			require.Len(t, got, tt.wantCount)
			if tt.wantCount > 0 {
				assert.Equal(t, tt.wantFirst, got[0].Tool.Name)
				assert.Equal(t, tt.wantScore, got[0].Score)
			}
		})
	}
	assert.Nil(t, r.Search("", ""))
}

func TestToolRegistry_Concurrent(t *testing.T) {
	r := NewToolRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = r.Register(&ToolMetadata{Name: string(rune('a' + i)), Description: "tool"})
			_ = r.Search("tool", "")
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, r.Count())
}
