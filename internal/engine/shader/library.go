package shader

// Source holds the bodies of a program. The version line and defines are
// prepended at compile time.
type Source struct {
	Vertex   string
	Fragment string
}

// Attribute names match the vertex buffer kinds of the gpu package.
const meshVertex = `
in vec3 position;
in vec3 normal;
#ifdef INSTANCES
in vec4 world0;
in vec4 world1;
in vec4 world2;
in vec4 world3;
#else
uniform mat4 world;
#endif
#ifdef BONES
in vec4 matricesIndices;
in vec4 matricesWeights;
uniform mat4 mBones[MAX_BONES];
#endif
uniform mat4 viewProjection;

mat4 finalWorld() {
#ifdef INSTANCES
	mat4 w = mat4(world0, world1, world2, world3);
#else
	mat4 w = world;
#endif
#ifdef BONES
	mat4 influence = mBones[int(matricesIndices.x)] * matricesWeights.x;
	influence += mBones[int(matricesIndices.y)] * matricesWeights.y;
	influence += mBones[int(matricesIndices.z)] * matricesWeights.z;
	influence += mBones[int(matricesIndices.w)] * matricesWeights.w;
	w = w * influence;
#endif
	return w;
}
`

const standardVertex = meshVertex + `
out vec3 vNormal;

void main() {
	mat4 w = finalWorld();
	gl_Position = viewProjection * w * vec4(position, 1.0);
	vNormal = normalize(mat3(w) * normal);
}
`

const standardFragment = `
in vec3 vNormal;
uniform vec4 vDiffuseColor;
out vec4 fragColor;

const vec3 lightDirection = normalize(vec3(0.3, 1.0, -0.5));

void main() {
	float ndl = max(dot(normalize(vNormal), lightDirection), 0.0);
	fragColor = vec4(vDiffuseColor.rgb * (0.25 + 0.75 * ndl), vDiffuseColor.a);
}
`

const outlineVertex = meshVertex + `
uniform vec4 offset;

void main() {
	vec3 p = position + normal * offset.x;
	gl_Position = viewProjection * finalWorld() * vec4(p, 1.0);
}
`

const outlineFragment = `
uniform vec4 color;
out vec4 fragColor;

void main() {
	fragColor = color;
}
`

// fullscreenVertex draws one triangle covering the viewport.
const fullscreenVertex = `
out vec2 vUV;

void main() {
	vec2 p = vec2(float((gl_VertexID << 1) & 2), float(gl_VertexID & 2));
	vUV = p;
	gl_Position = vec4(p * 2.0 - 1.0, 0.0, 1.0);
}
`

const passFragment = `
in vec2 vUV;
uniform sampler2D textureSampler;
out vec4 fragColor;

void main() {
	fragColor = texture(textureSampler, vUV);
}
`

const anaglyphFragment = `
in vec2 vUV;
uniform sampler2D textureSampler;
uniform sampler2D leftSampler;
out vec4 fragColor;

void main() {
	vec4 left = texture(leftSampler, vUV);
	vec4 right = texture(textureSampler, vUV);
	fragColor = vec4(left.r, right.g, right.b, 1.0);
}
`

const interlaceFragment = `
in vec2 vUV;
uniform sampler2D textureSampler;
uniform sampler2D camASampler;
uniform vec4 stepSize;
out vec4 fragColor;

void main() {
#ifdef IS_STEREOSCOPIC_HORIZ
	bool useCamB = vUV.x > 0.5;
	vec2 uv = vec2(useCamB ? (vUV.x - 0.5) * 2.0 : vUV.x * 2.0, vUV.y);
#else
	bool useCamB = vUV.y > 0.5;
	vec2 uv = vec2(vUV.x, useCamB ? (vUV.y - 0.5) * 2.0 : vUV.y * 2.0);
#endif
	fragColor = useCamB ? texture(textureSampler, uv) : texture(camASampler, uv);
}
`

const distortionFragment = `
in vec2 vUV;
uniform sampler2D textureSampler;
uniform vec4 LensCenter;
uniform vec4 Scale;
uniform vec4 ScaleIn;
uniform vec4 HmdWarpParam;
out vec4 fragColor;

vec2 warp(vec2 uv) {
	vec2 theta = (uv - LensCenter.xy) * ScaleIn.xy;
	float r2 = dot(theta, theta);
	vec2 rvector = theta * (HmdWarpParam.x + HmdWarpParam.y * r2 +
		HmdWarpParam.z * r2 * r2 + HmdWarpParam.w * r2 * r2 * r2);
	return LensCenter.xy + Scale.xy * rvector;
}

void main() {
	vec2 tc = warp(vUV);
	if (tc.x < 0.0 || tc.x > 1.0 || tc.y < 0.0 || tc.y > 1.0) {
		fragColor = vec4(0.0, 0.0, 0.0, 1.0);
		return;
	}
	fragColor = texture(textureSampler, tc);
}
`

var library = map[string]Source{
	"standard":               {Vertex: standardVertex, Fragment: standardFragment},
	"outline":                {Vertex: outlineVertex, Fragment: outlineFragment},
	"pass":                   {Vertex: fullscreenVertex, Fragment: passFragment},
	"anaglyph":               {Vertex: fullscreenVertex, Fragment: anaglyphFragment},
	"stereoscopicInterlace":  {Vertex: fullscreenVertex, Fragment: interlaceFragment},
	"vrDistortionCorrection": {Vertex: fullscreenVertex, Fragment: distortionFragment},
}

// MaxBones is the size of the bone palette uniform.
const MaxBones = 64

// Lookup returns the sources of the named effect.
func Lookup(name string) (Source, bool) {
	s, ok := library[name]
	return s, ok
}

// Register adds or replaces the sources of an effect, for custom post
// processes.
func Register(name string, src Source) {
	library[name] = src
}
