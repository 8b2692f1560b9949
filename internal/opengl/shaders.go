package opengl

// Node positions arrive relative to the node cube, scaled to [0,1]. Colors
// arrive as unnormalized bytes.
const pointVertSrc = `#version 410 core
layout(location = 0) in vec3 position;
layout(location = 1) in vec3 color;

uniform mat4 world_to_gl;
uniform vec3 node_min;
uniform float edge_length;
uniform float size;
uniform float gamma;

out vec4 v_color;

void main() {
	vec3 world = node_min + position * edge_length;
	gl_Position = world_to_gl * vec4(world, 1.0);
	gl_PointSize = size;
	v_color = vec4(pow(color / 255.0, vec3(1.0 / gamma)), 1.0);
}
` + "\x00"

const pointFragSrc = `#version 410 core
in vec4 v_color;
out vec4 frag_color;

void main() {
	frag_color = v_color;
}
` + "\x00"

const outlineVertSrc = `#version 410 core
layout(location = 0) in vec3 position;

uniform mat4 transform;

void main() {
	gl_Position = transform * vec4(position, 1.0);
}
` + "\x00"

const outlineFragSrc = `#version 410 core
uniform vec4 color;
out vec4 frag_color;

void main() {
	frag_color = color;
}
` + "\x00"

// Height map normals are lit in camera space by a headlight.
const heightMapVertSrc = `#version 410 core
layout(location = 0) in vec3 position;
layout(location = 1) in vec3 normal;

uniform mat4 transform;
uniform mat4 model_view;

out vec3 v_normal;

void main() {
	gl_Position = transform * vec4(position, 1.0);
	v_normal = mat3(model_view) * normal;
}
` + "\x00"

const heightMapFragSrc = `#version 410 core
in vec3 v_normal;
uniform vec4 color;
out vec4 frag_color;

void main() {
	float diffuse = abs(normalize(v_normal).z);
	frag_color = vec4(color.rgb * (0.2 + 0.8 * diffuse), color.a);
}
` + "\x00"
