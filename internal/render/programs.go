package render

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/irfansharif/tessera/internal/gpu"
	"github.com/irfansharif/tessera/internal/memory"
)

// Kind tags of the built-in renderers.
const (
	KindSprite = "sprite"
	KindMesh   = "mesh"
)

// Both programs read world transforms from the instance store: four RGBA
// texels per drawable, one per matrix column.
const instanceFetch = `
uniform samplerBuffer uInstances;

mat4 instanceMatrix(int i) {
    return mat4(
        texelFetch(uInstances, i * 4 + 0),
        texelFetch(uInstances, i * 4 + 1),
        texelFetch(uInstances, i * 4 + 2),
        texelFetch(uInstances, i * 4 + 3));
}
`

// Sprite vertex shader. One point per sprite; the instance record shares the
// point's index.
const spriteVertexSource = `#version 410 core
layout (location = 0) in vec2 aSize;
layout (location = 1) in vec4 aColor;
layout (location = 2) in vec4 aUVRect;
` + instanceFetch + `
out VS_OUT {
    mat4 model;
    vec2 size;
    vec4 color;
    vec4 uvRect;
} vs;

void main() {
    vs.model = instanceMatrix(gl_VertexID);
    vs.size = aSize;
    vs.color = aColor;
    vs.uvRect = aUVRect;
    gl_Position = vec4(0.0, 0.0, 0.0, 1.0);
}
`

// Sprite geometry shader. Expands each point into a quad centered on the
// sprite's origin.
const spriteGeometrySource = `#version 410 core
layout (points) in;
layout (triangle_strip, max_vertices = 4) out;

uniform mat4 uView;
uniform mat4 uProjection;

in VS_OUT {
    mat4 model;
    vec2 size;
    vec4 color;
    vec4 uvRect;
} gs[];

out vec4 fColor;
out vec2 fUV;

void corner(vec2 offset, vec2 uv) {
    vec4 local = vec4(offset * gs[0].size, 0.0, 1.0);
    gl_Position = uProjection * uView * gs[0].model * local;
    fColor = gs[0].color;
    fUV = mix(gs[0].uvRect.xy, gs[0].uvRect.zw, uv);
    EmitVertex();
}

void main() {
    corner(vec2(-0.5, -0.5), vec2(0.0, 1.0));
    corner(vec2( 0.5, -0.5), vec2(1.0, 1.0));
    corner(vec2(-0.5,  0.5), vec2(0.0, 0.0));
    corner(vec2( 0.5,  0.5), vec2(1.0, 0.0));
    EndPrimitive();
}
`

const spriteFragmentSource = `#version 410 core
in vec4 fColor;
in vec2 fUV;

uniform sampler2D uTexture;
uniform bool uTextured;

out vec4 FragColor;

void main() {
    FragColor = uTextured ? texture(uTexture, fUV) * fColor : fColor;
}
`

// Mesh vertex shader. Explicit triangle lists; every vertex carries the
// index of its drawable's instance record.
const meshVertexSource = `#version 410 core
layout (location = 0) in vec2 aPos;
layout (location = 1) in vec4 aColor;
layout (location = 2) in int aInstance;

uniform mat4 uView;
uniform mat4 uProjection;
` + instanceFetch + `
out vec4 vColor;

void main() {
    gl_Position = uProjection * uView * instanceMatrix(aInstance) * vec4(aPos, 0.0, 1.0);
    vColor = aColor;
}
`

const meshFragmentSource = `#version 410 core
in vec4 vColor;

uniform vec4 uTint;

out vec4 FragColor;

void main() {
    FragColor = vColor * uTint;
}
`

var (
	white      = memory.Floats(1, 1, 1, 1)
	fullUVRect = memory.Floats(0, 0, 1, 1)
)

// SpriteProgramSpec describes the sprite program: textured or flat quads,
// one point record each.
func SpriteProgramSpec() ProgramSpec {
	return ProgramSpec{
		Name:     KindSprite,
		Vertex:   spriteVertexSource,
		Geometry: spriteGeometrySource,
		Fragment: spriteFragmentSource,
		Attributes: []memory.Attribute{
			{AttribLayout: gpu.AttribLayout{Location: 0, Name: "aSize", Arity: 2, Type: gpu.Float}},
			{AttribLayout: gpu.AttribLayout{Location: 1, Name: "aColor", Arity: 4, Type: gpu.Float}, Default: &white},
			{AttribLayout: gpu.AttribLayout{Location: 2, Name: "aUVRect", Arity: 4, Type: gpu.Float}, Default: &fullUVRect},
		},
		Uniforms: []UniformSpec{
			{Name: "uView", Type: UniformMat4},
			{Name: "uProjection", Type: UniformMat4},
			{Name: "uTextured", Type: UniformBool},
		},
		Samplers: []Sampler{
			{Name: "uTexture", Unit: TextureUnit},
			{Name: "uInstances", Unit: memory.InstanceTextureUnit},
		},
	}
}

// MeshProgramSpec describes the mesh program: flat colored triangle lists.
func MeshProgramSpec() ProgramSpec {
	return ProgramSpec{
		Name:     KindMesh,
		Vertex:   meshVertexSource,
		Fragment: meshFragmentSource,
		Attributes: []memory.Attribute{
			{AttribLayout: gpu.AttribLayout{Location: 0, Name: "aPos", Arity: 2, Type: gpu.Float}},
			{AttribLayout: gpu.AttribLayout{Location: 1, Name: "aColor", Arity: 4, Type: gpu.Float}, Default: &white},
			{AttribLayout: gpu.AttribLayout{Location: 2, Name: "aInstance", Arity: 1, Type: gpu.Int}, Source: memory.FromInstanceIndex},
		},
		Uniforms: []UniformSpec{
			{Name: "uView", Type: UniformMat4},
			{Name: "uProjection", Type: UniformMat4},
			{Name: "uTint", Type: UniformVec4},
		},
		Samplers: []Sampler{
			{Name: "uInstances", Unit: memory.InstanceTextureUnit},
		},
	}
}

// NewSpriteRenderer builds the sprite renderer. capacity counts sprites.
func NewSpriteRenderer(dev gpu.Device, capacity int, cull bool) (*Renderer, error) {
	program, err := NewProgram(dev, SpriteProgramSpec())
	if err != nil {
		return nil, err
	}
	textured, err := UniformOf[bool](program, "uTextured")
	if err != nil {
		program.Close()
		return nil, err
	}
	r, err := NewRenderer(dev, program, Options{
		Capacity:  capacity,
		Topology:  gpu.Points,
		Instanced: true,
		Cull:      cull,
		BeforeGroup: func(_ *Program, tex gpu.TextureID) {
			textured.Load(tex != gpu.NoTexture)
		},
	})
	if err != nil {
		program.Close()
		return nil, err
	}
	return r, nil
}

// NewMeshRenderer builds the mesh renderer. capacity counts vertices; tint
// multiplies every fragment.
func NewMeshRenderer(dev gpu.Device, capacity int, cull bool, tint mgl32.Vec4) (*Renderer, error) {
	program, err := NewProgram(dev, MeshProgramSpec())
	if err != nil {
		return nil, err
	}
	uTint, err := UniformOf[mgl32.Vec4](program, "uTint")
	if err != nil {
		program.Close()
		return nil, err
	}
	r, err := NewRenderer(dev, program, Options{
		Capacity:  capacity,
		Topology:  gpu.Triangles,
		Instanced: true,
		Cull:      cull,
		BeforeGroup: func(*Program, gpu.TextureID) {
			uTint.Load(tint)
		},
	})
	if err != nil {
		program.Close()
		return nil, err
	}
	return r, nil
}
