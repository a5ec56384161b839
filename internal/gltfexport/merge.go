package gltfexport

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/qmuntal/gltf"

	"xr-anchor/internal/asset"
)

// maxNodeDepth bounds the copied node tree of a model asset.
const maxNodeDepth = 64

// modelImporter copies model assets into the exported document. Each asset is
// merged once; every placed instance gets its own node tree over the shared
// meshes. Skins, cameras and animations are not carried over.
type modelImporter struct {
	doc    *gltf.Document
	assets map[string]*importedModel
}

type importedModel struct {
	src    *gltf.Document
	root   int
	meshes int // offset of the asset's first mesh in the target document
	err    error
}

func newModelImporter(doc *gltf.Document) *modelImporter {
	return &modelImporter{doc: doc, assets: map[string]*importedModel{}}
}

// instance returns the index of a new node holding the asset's template
// node. The template's own transform is dropped: placement bakes its scale
// into the model node.
func (m *modelImporter) instance(path string) (int, error) {
	im, ok := m.assets[path]
	if !ok {
		im = m.load(path)
		m.assets[path] = im
	}
	if im.err != nil {
		return 0, im.err
	}
	idx := m.copyNode(im, im.root, 0)
	root := m.doc.Nodes[idx]
	root.Translation = [3]float64{}
	root.Rotation = [4]float64{0, 0, 0, 1}
	root.Scale = [3]float64{1, 1, 1}
	root.Matrix = gltf.DefaultMatrix
	return idx, nil
}

func (m *modelImporter) load(path string) *importedModel {
	src, err := gltf.Open(path)
	if err != nil {
		return &importedModel{err: fmt.Errorf("gltfexport: %w", err)}
	}
	root, ok := asset.RootNode(src)
	if !ok {
		return &importedModel{err: fmt.Errorf("%w: %s", asset.ErrEmptyModel, path)}
	}
	im := &importedModel{src: src, root: root}
	m.merge(im, filepath.Dir(path))
	return im
}

// merge appends the asset's buffers, views, accessors, images, samplers,
// textures, materials and meshes, shifting every index they hold.
func (m *modelImporter) merge(im *importedModel, dir string) {
	doc, src := m.doc, im.src

	bufOff := make([]int, len(src.Buffers))
	for i, b := range src.Buffers {
		bufOff[i] = appendBytes(doc, b.Data)
	}
	target := len(doc.Buffers) - 1

	views := len(doc.BufferViews)
	for _, v := range src.BufferViews {
		c := *v
		if v.Buffer >= 0 && v.Buffer < len(bufOff) {
			c.ByteOffset += bufOff[v.Buffer]
		}
		c.Buffer = target
		doc.BufferViews = append(doc.BufferViews, &c)
	}

	accessors := len(doc.Accessors)
	for _, a := range src.Accessors {
		c := *a
		c.BufferView = shift(a.BufferView, views)
		if a.Sparse != nil {
			sp := *a.Sparse
			sp.Indices.BufferView += views
			sp.Values.BufferView += views
			c.Sparse = &sp
		}
		doc.Accessors = append(doc.Accessors, &c)
	}

	images := len(doc.Images)
	for _, img := range src.Images {
		c := *img
		c.BufferView = shift(img.BufferView, views)
		if c.URI != "" && !strings.HasPrefix(c.URI, "data:") && !strings.Contains(c.URI, "://") {
			c.URI = filepath.ToSlash(filepath.Join(dir, c.URI))
		}
		doc.Images = append(doc.Images, &c)
	}

	samplers := len(doc.Samplers)
	for _, s := range src.Samplers {
		c := *s
		doc.Samplers = append(doc.Samplers, &c)
	}

	textures := len(doc.Textures)
	for _, t := range src.Textures {
		c := *t
		c.Source = shift(t.Source, images)
		c.Sampler = shift(t.Sampler, samplers)
		doc.Textures = append(doc.Textures, &c)
	}

	materials := len(doc.Materials)
	for _, mat := range src.Materials {
		doc.Materials = append(doc.Materials, shiftMaterial(mat, textures))
	}

	im.meshes = len(doc.Meshes)
	for _, mesh := range src.Meshes {
		c := *mesh
		c.Primitives = make([]*gltf.Primitive, 0, len(mesh.Primitives))
		for _, p := range mesh.Primitives {
			pc := *p
			pc.Attributes = shiftAttributes(p.Attributes, accessors)
			pc.Indices = shift(p.Indices, accessors)
			pc.Material = shift(p.Material, materials)
			if len(p.Targets) > 0 {
				pc.Targets = slices.Clone(p.Targets)
				for i, t := range pc.Targets {
					pc.Targets[i] = shiftAttributes(t, accessors)
				}
			}
			c.Primitives = append(c.Primitives, &pc)
		}
		doc.Meshes = append(doc.Meshes, &c)
	}
}

func (m *modelImporter) copyNode(im *importedModel, idx, depth int) int {
	c := *im.src.Nodes[idx]
	c.Mesh = shift(c.Mesh, im.meshes)
	c.Skin = nil
	c.Camera = nil
	c.Children = nil
	out := len(m.doc.Nodes)
	m.doc.Nodes = append(m.doc.Nodes, &c)
	if depth >= maxNodeDepth {
		return out
	}
	for _, child := range im.src.Nodes[idx].Children {
		if child >= 0 && child < len(im.src.Nodes) {
			c.Children = append(c.Children, m.copyNode(im, child, depth+1))
		}
	}
	return out
}

func shiftMaterial(mat *gltf.Material, textures int) *gltf.Material {
	c := *mat
	if mat.PBRMetallicRoughness != nil {
		pbr := *mat.PBRMetallicRoughness
		pbr.BaseColorTexture = shiftTextureInfo(pbr.BaseColorTexture, textures)
		pbr.MetallicRoughnessTexture = shiftTextureInfo(pbr.MetallicRoughnessTexture, textures)
		c.PBRMetallicRoughness = &pbr
	}
	if mat.NormalTexture != nil {
		nt := *mat.NormalTexture
		nt.Index = shift(nt.Index, textures)
		c.NormalTexture = &nt
	}
	if mat.OcclusionTexture != nil {
		ot := *mat.OcclusionTexture
		ot.Index = shift(ot.Index, textures)
		c.OcclusionTexture = &ot
	}
	c.EmissiveTexture = shiftTextureInfo(mat.EmissiveTexture, textures)
	return &c
}

func shiftTextureInfo(t *gltf.TextureInfo, off int) *gltf.TextureInfo {
	if t == nil {
		return nil
	}
	c := *t
	c.Index += off
	return &c
}

func shiftAttributes[M ~map[string]int](attrs M, off int) M {
	out := make(M, len(attrs))
	for k, v := range attrs {
		out[k] = v + off
	}
	return out
}

func shift(idx *int, off int) *int {
	if idx == nil {
		return nil
	}
	return gltf.Index(*idx + off)
}
