package viewer

import (
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"
	"go.uber.org/zap"
)

// assetCache loads GPU resources on first use and keeps them until unload.
// A path that failed to load is remembered and not retried.
type assetCache struct {
	log       *zap.Logger
	models    map[string]rl.Model
	failed    map[string]bool
	materials map[string]rl.Material
	textures  []rl.Texture2D
	mesh      *rl.Mesh
	fallback  rl.Material
	light     *lighting
}

func newAssetCache(log *zap.Logger) *assetCache {
	c := &assetCache{
		log:       log,
		models:    make(map[string]rl.Model),
		failed:    make(map[string]bool),
		materials: make(map[string]rl.Material),
		light:     loadLighting(),
	}
	c.fallback = c.newMaterial(rl.Gray)
	return c
}

// newMaterial returns a default material tinted c, lit when the shader compiled.
func (c *assetCache) newMaterial(tint rl.Color) rl.Material {
	mat := rl.LoadMaterialDefault()
	if albedo := mat.GetMap(rl.MapAlbedo); albedo != nil {
		albedo.Color = tint
	}
	if c.light.valid() {
		mat.Shader = c.light.shader
	}
	return mat
}

func (c *assetCache) model(path string) (rl.Model, bool) {
	if m, ok := c.models[path]; ok {
		return m, true
	}
	if path == "" || c.failed[path] {
		return rl.Model{}, false
	}
	if _, err := os.Stat(path); err != nil {
		c.log.Warn("model not found", zap.String("path", path), zap.Error(err))
		c.failed[path] = true
		return rl.Model{}, false
	}
	m := rl.LoadModel(path)
	if m.MeshCount == 0 {
		c.log.Warn("model has no meshes", zap.String("path", path))
		c.failed[path] = true
		return rl.Model{}, false
	}
	c.models[path] = m
	return m, true
}

// plane returns the shared unit plane mesh.
func (c *assetCache) plane() rl.Mesh {
	if c.mesh == nil {
		m := rl.GenMeshPlane(1, 1, 1, 1)
		c.mesh = &m
	}
	return *c.mesh
}

// material returns a material textured with the file at path, or the gray
// fallback when the texture is remote or unreadable.
func (c *assetCache) material(path string) rl.Material {
	if m, ok := c.materials[path]; ok {
		return m
	}
	if path == "" || c.failed[path] {
		return c.fallback
	}
	if _, err := os.Stat(path); err != nil {
		c.log.Warn("texture not loaded", zap.String("texture", path), zap.Error(err))
		c.failed[path] = true
		return c.fallback
	}
	tex := rl.LoadTexture(path)
	if tex.ID == 0 {
		c.failed[path] = true
		return c.fallback
	}
	mat := c.newMaterial(rl.White)
	rl.SetMaterialTexture(&mat, rl.MapAlbedo, tex)
	c.textures = append(c.textures, tex)
	c.materials[path] = mat
	return mat
}

func (c *assetCache) unload() {
	if c == nil {
		return
	}
	for _, m := range c.models {
		rl.UnloadModel(m)
	}
	for _, t := range c.textures {
		rl.UnloadTexture(t)
	}
	if c.mesh != nil {
		rl.UnloadMesh(c.mesh)
	}
	c.light.unload()
	c.models = map[string]rl.Model{}
	c.materials = map[string]rl.Material{}
	c.textures = nil
	c.mesh = nil
}
