package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xr-anchor/internal/spatial"
)

func TestComposeBuildsLitSceneWithHiddenMarker(t *testing.T) {
	s := Compose()

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 1, s.Count(KindLight))
	assert.Equal(t, 1, s.Count(KindController))

	marker := s.Marker()
	require.NotNil(t, marker)
	assert.False(t, marker.Visible)
	assert.InDelta(t, 70, s.Camera.FovY, 1e-6)
}

func TestCloneIsDeepWithFreshIDs(t *testing.T) {
	parent := NewNode(KindModel, "koala")
	parent.Asset = "models/koala.glb"
	parent.Transform = spatial.Translate(1, 2, 3)
	child := NewNode(KindModel, "ear")
	parent.Children = []*Node{child}

	c, err := parent.Clone()
	require.NoError(t, err)

	assert.NotEqual(t, parent.ID, c.ID)
	assert.Equal(t, parent.Asset, c.Asset)
	assert.Equal(t, parent.Transform, c.Transform)
	require.Len(t, c.Children, 1)
	assert.NotSame(t, child, c.Children[0])
	assert.NotEqual(t, child.ID, c.Children[0].ID)

	c.Transform = spatial.Identity()
	c.Children[0].Name = "changed"
	assert.Equal(t, spatial.Translate(1, 2, 3), parent.Transform)
	assert.Equal(t, "ear", child.Name)
}

func TestNodesReturnsCopy(t *testing.T) {
	s := New()
	s.Add(NewNode(KindModel, "a"))
	nodes := s.Nodes()
	nodes[0] = nil
	assert.NotNil(t, s.Nodes()[0])
}
