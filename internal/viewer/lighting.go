package viewer

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// lighting shades image planes with the scene's light: an ambient term from
// the light node plus a fixed key light from above so planes keep some relief.
type lighting struct {
	shader    rl.Shader
	ambient   [4]float32
	intensity float32
	viewPos   [3]float32
}

// keyLightDir points from the surface toward the key light.
var keyLightDir = [3]float32{0.5, 1, 0.5}

func loadLighting() *lighting {
	return &lighting{
		shader:    rl.LoadShaderFromMemory(litVS, litTexturedFS),
		ambient:   [4]float32{0.6, 0.6, 0.6, 1},
		intensity: 0.5,
	}
}

func (l *lighting) valid() bool {
	return l != nil && rl.IsShaderValid(l.shader)
}

// setLight derives the ambient colour and key intensity from a light node.
func (l *lighting) setLight(color uint32, intensity float32) {
	r := float32(color>>16&0xff) / 255
	g := float32(color>>8&0xff) / 255
	b := float32(color&0xff) / 255
	a := 0.6 * intensity
	l.ambient = [4]float32{r * a, g * a, b * a, 1}
	l.intensity = 0.5 * intensity
}

// apply uploads the per-frame uniforms (cgo-safe: local arrays).
func (l *lighting) apply(viewPos rl.Vector3) {
	if !l.valid() {
		return
	}
	l.viewPos = [3]float32{viewPos.X, viewPos.Y, viewPos.Z}
	vp := l.viewPos
	dir := keyLightDir
	amb := l.ambient
	if loc := rl.GetShaderLocation(l.shader, "viewPos"); loc >= 0 {
		rl.SetShaderValueV(l.shader, loc, vp[:], rl.ShaderUniformVec3, 1)
	}
	if loc := rl.GetShaderLocation(l.shader, "lightDir"); loc >= 0 {
		rl.SetShaderValueV(l.shader, loc, dir[:], rl.ShaderUniformVec3, 1)
	}
	if loc := rl.GetShaderLocation(l.shader, "ambient"); loc >= 0 {
		rl.SetShaderValueV(l.shader, loc, amb[:], rl.ShaderUniformVec4, 1)
	}
	if loc := rl.GetShaderLocation(l.shader, "lightIntensity"); loc >= 0 {
		rl.SetShaderValue(l.shader, loc, []float32{l.intensity}, rl.ShaderUniformFloat)
	}
}

func (l *lighting) unload() {
	if l.valid() {
		rl.UnloadShader(l.shader)
	}
}

const (
	litVS = `#version 330
in vec3 vertexPosition;
in vec2 vertexTexCoord;
in vec3 vertexNormal;
uniform mat4 matProjection;
uniform mat4 matView;
uniform mat4 matModel;
out vec3 fragPosition;
out vec2 fragTexCoord;
out vec3 fragNormal;
void main() {
  vec4 worldPos = matModel * vec4(vertexPosition, 1.0);
  fragPosition = worldPos.xyz;
  fragTexCoord = vertexTexCoord;
  fragNormal = mat3(matModel) * vertexNormal;
  gl_Position = matProjection * matView * worldPos;
}
`
	// Two-sided: planes are seen from behind when the user walks around them.
	litTexturedFS = `#version 330
in vec3 fragPosition;
in vec2 fragTexCoord;
in vec3 fragNormal;
uniform vec4 colDiffuse;
uniform vec3 viewPos;
uniform vec3 lightDir;
uniform vec4 ambient;
uniform float lightIntensity;
uniform sampler2D texture0;
out vec4 finalColor;
void main() {
  vec4 tint = texture(texture0, fragTexCoord) * colDiffuse;
  vec3 N = normalize(fragNormal);
  if (dot(N, viewPos - fragPosition) < 0.0) N = -N;
  float NdotL = max(dot(N, normalize(lightDir)), 0.0);
  vec3 diffuse = tint.rgb * NdotL * lightIntensity;
  finalColor = vec4(ambient.rgb * tint.rgb + diffuse, tint.a);
}
`
)
