// Package gltfexport writes the current scene as a glTF document: image
// planes become textured quads, placed models carry a copy of their asset's
// meshes, and node kind, asset, texture and size travel in extras.
package gltfexport

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"xr-anchor/internal/scene"
)

const generator = "xr-anchor"

type exporter struct {
	doc      *gltf.Document
	models   *modelImporter
	textures map[string]int
}

// Document converts the scene graph into a glTF document with one scene.
// A model whose asset cannot be read is exported without geometry and with
// the error in its extras.
func Document(s *scene.Scene) *gltf.Document {
	doc := gltf.NewDocument()
	doc.Asset.Generator = generator
	e := &exporter{
		doc:      doc,
		models:   newModelImporter(doc),
		textures: map[string]int{},
	}
	for _, n := range s.Nodes() {
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, e.addNode(n))
	}
	if len(doc.Buffers) > 0 {
		b := mainBuffer(doc)
		b.ByteLength = len(b.Data)
	}
	return doc
}

func (e *exporter) addNode(n *scene.Node) int {
	p := n.Transform.Position()
	q := n.Transform.Rotation()
	sc := n.Transform.ScaleOf()
	out := &gltf.Node{
		Name:        n.Name,
		Translation: [3]float64{float64(p.X), float64(p.Y), float64(p.Z)},
		Rotation:    [4]float64{float64(q.X), float64(q.Y), float64(q.Z), float64(q.W)},
		Scale:       [3]float64{float64(sc.X), float64(sc.Y), float64(sc.Z)},
		Matrix:      gltf.DefaultMatrix,
	}
	ex := extras(n)
	idx := len(e.doc.Nodes)
	e.doc.Nodes = append(e.doc.Nodes, out)

	switch {
	case n.Kind == scene.KindImagePlane && n.Size[0] > 0 && n.Size[1] > 0:
		out.Mesh = gltf.Index(e.imagePlane(n))
	case n.Kind == scene.KindModel && n.Asset != "":
		child, err := e.models.instance(n.Asset)
		if err != nil {
			ex["asset_error"] = err.Error()
			break
		}
		out.Children = append(out.Children, child)
	}
	out.Extras = ex

	for _, c := range n.Children {
		out.Children = append(out.Children, e.addNode(c))
	}
	return idx
}

// imagePlane writes an upright quad standing on the node origin, facing +Z,
// the way the viewer draws image planes.
func (e *exporter) imagePlane(n *scene.Node) int {
	w, h := n.Size[0], n.Size[1]
	pos := modeler.WritePosition(e.doc, [][3]float32{
		{-w / 2, 0, 0}, {w / 2, 0, 0}, {w / 2, h, 0}, {-w / 2, h, 0},
	})
	nrm := modeler.WriteNormal(e.doc, [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}})
	uv := modeler.WriteTextureCoord(e.doc, [][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}})
	indices := modeler.WriteIndices(e.doc, []uint16{0, 1, 2, 0, 2, 3})

	pbr := &gltf.PBRMetallicRoughness{
		BaseColorFactor: &[4]float64{1, 1, 1, 1},
		MetallicFactor:  gltf.Float(0),
	}
	if n.Texture != "" {
		pbr.BaseColorTexture = &gltf.TextureInfo{Index: e.texture(n.Texture)}
	}
	mat := len(e.doc.Materials)
	e.doc.Materials = append(e.doc.Materials, &gltf.Material{
		Name:                 n.Name,
		DoubleSided:          true,
		PBRMetallicRoughness: pbr,
	})

	mesh := len(e.doc.Meshes)
	e.doc.Meshes = append(e.doc.Meshes, &gltf.Mesh{
		Name: n.Name,
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(indices),
			Attributes: map[string]int{"POSITION": pos, "NORMAL": nrm, "TEXCOORD_0": uv},
			Material:   gltf.Index(mat),
		}},
	})
	return mesh
}

// texture returns the texture index for ref. A readable PNG or JPEG file is
// embedded; anything else, URLs included, is referenced by URI.
func (e *exporter) texture(ref string) int {
	if idx, ok := e.textures[ref]; ok {
		return idx
	}
	img := gltf.Image{Name: filepath.Base(ref), URI: ref}
	if !strings.Contains(ref, "://") {
		if data, err := os.ReadFile(ref); err == nil {
			if mime := http.DetectContentType(data); mime == "image/png" || mime == "image/jpeg" {
				img.URI = ""
				img.MimeType = mime
				img.BufferView = gltf.Index(appendBufferView(e.doc, data))
			}
		}
	}
	src := len(e.doc.Images)
	e.doc.Images = append(e.doc.Images, &img)
	idx := len(e.doc.Textures)
	e.doc.Textures = append(e.doc.Textures, &gltf.Texture{Source: gltf.Index(src)})
	e.textures[ref] = idx
	return idx
}

func extras(n *scene.Node) map[string]any {
	e := map[string]any{
		"id":      n.ID,
		"kind":    string(n.Kind),
		"visible": n.Visible,
	}
	if n.Asset != "" {
		e["asset"] = n.Asset
	}
	if n.Texture != "" {
		e["texture"] = n.Texture
	}
	if n.Size != ([2]float32{}) {
		e["size"] = []float64{float64(n.Size[0]), float64(n.Size[1])}
	}
	if n.Kind == scene.KindLight {
		e["color"] = fmt.Sprintf("#%06x", n.Color)
		e["intensity"] = n.Intensity
	}
	return e
}

// mainBuffer returns the single buffer all geometry and images are written
// to, creating it when needed.
func mainBuffer(doc *gltf.Document) *gltf.Buffer {
	if len(doc.Buffers) == 0 {
		doc.Buffers = append(doc.Buffers, new(gltf.Buffer))
	}
	return doc.Buffers[len(doc.Buffers)-1]
}

// appendBytes aligns the main buffer to 4 bytes, appends data and returns
// its offset.
func appendBytes(doc *gltf.Document, data []byte) int {
	b := mainBuffer(doc)
	for len(b.Data)%4 != 0 {
		b.Data = append(b.Data, 0)
	}
	off := len(b.Data)
	b.Data = append(b.Data, data...)
	b.ByteLength = len(b.Data)
	return off
}

func appendBufferView(doc *gltf.Document, data []byte) int {
	off := appendBytes(doc, data)
	doc.BufferViews = append(doc.BufferViews, &gltf.BufferView{
		Buffer:     len(doc.Buffers) - 1,
		ByteOffset: off,
		ByteLength: len(data),
	})
	return len(doc.BufferViews) - 1
}

// Write encodes the scene to w, as GLB when binary is set. The JSON form
// carries its buffer as a data URI.
func Write(w io.Writer, s *scene.Scene, binary bool) error {
	doc := Document(s)
	if !binary {
		for _, b := range doc.Buffers {
			if b.URI == "" && len(b.Data) > 0 {
				b.URI = "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(b.Data)
			}
		}
	}
	enc := gltf.NewEncoder(w)
	enc.AsBinary = binary
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("gltfexport: %w", err)
	}
	return nil
}

// Save writes the scene to path; a .glb extension selects the binary format.
func Save(path string, s *scene.Scene) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("gltfexport: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("gltfexport: %w", err)
	}
	binary := strings.EqualFold(filepath.Ext(path), ".glb")
	if err := Write(f, s, binary); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
