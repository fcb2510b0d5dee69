package renderer

// Texture units used by the deferred lighting pass.
const (
	unitGAlbedoSpec  = 0
	unitGNormal      = 1
	unitGPosition    = 2
	unitSSAO         = 3
	unitDirShadow    = 8
	unitPointShadow0 = 9
)

const (
	// MaxShadowedPoints is the number of point lights that can have a
	// cube shadow map bound in one frame. They take units 9 to 15, the
	// last of the 16 a GL 4.1 fragment stage guarantees.
	MaxShadowedPoints = 7
	MaxPointLights    = 32
)

var screenQuadVertex = `#version 410 core
layout (location = 0) in vec2 aPos;
layout (location = 1) in vec2 aTexCoords;

out vec2 TexCoords;

void main()
{
    TexCoords = aTexCoords;
    gl_Position = vec4(aPos, 0.0, 1.0);
}
`

var meshVertex = `#version 410 core
layout (location = 0) in vec3 aPos;
layout (location = 1) in vec3 aNormal;
layout (location = 2) in vec2 aTexCoords;
layout (location = 3) in vec3 aTangent;

out vec3 FragPos;
out vec2 TexCoords;
out vec3 Normal;
out vec3 Tangent;

uniform mat4 model;
uniform mat4 view;
uniform mat4 projection;

void main()
{
    vec4 world = model * vec4(aPos, 1.0);
    FragPos = world.xyz;
    TexCoords = aTexCoords;

    mat3 normalMatrix = transpose(inverse(mat3(model)));
    Normal = normalMatrix * aNormal;
    Tangent = normalMatrix * aTangent;

    gl_Position = projection * view * world;
}
`

var gbufferFragment = `#version 410 core
layout (location = 0) out vec4 gPosition;
layout (location = 1) out vec4 gNormal;
layout (location = 2) out vec4 gAlbedoSpec;

in vec3 FragPos;
in vec2 TexCoords;
in vec3 Normal;
in vec3 Tangent;

uniform sampler2D texture_diffuse1;
uniform sampler2D texture_specular1;
uniform sampler2D texture_normal1;
uniform bool useNormalMaps;
uniform bool hasNormalMap;
uniform vec3 tint;

void main()
{
    // alpha 1 marks covered pixels; the clear value 0 is sky
    gPosition = vec4(FragPos, 1.0);

    vec3 N = normalize(Normal);
    if (useNormalMaps && hasNormalMap && dot(Tangent, Tangent) > 0.0) {
        vec3 T = normalize(Tangent - dot(Tangent, N) * N);
        vec3 B = cross(N, T);
        vec3 t = texture(texture_normal1, TexCoords).rgb * 2.0 - 1.0;
        N = normalize(mat3(T, B, N) * t);
    }
    gNormal = vec4(N, 1.0);

    gAlbedoSpec.rgb = texture(texture_diffuse1, TexCoords).rgb * tint;
    gAlbedoSpec.a = texture(texture_specular1, TexCoords).r;
}
`

var lightingFragment = `#version 410 core
#define MAX_POINT_LIGHTS 32

in vec2 TexCoords;
out vec4 FragColor;

struct DirLight {
    vec3 direction;
    vec3 ambient;
    vec3 diffuse;
    vec3 specular;
    bool castsShadow;
    mat4 lightSpaceMatrix;
};

struct PointLight {
    vec3 position;
    float linear;
    float quadratic;
    vec3 ambient;
    vec3 diffuse;
    vec3 specular;
    int shadowIndex;
    float farPlane;
};

uniform sampler2D gAlbedoSpec;
uniform sampler2D gNormal;
uniform sampler2D gPosition;
uniform sampler2D ssao;
uniform sampler2D dirShadowMap;
uniform samplerCube pointShadowMap0;
uniform samplerCube pointShadowMap1;
uniform samplerCube pointShadowMap2;
uniform samplerCube pointShadowMap3;
uniform samplerCube pointShadowMap4;
uniform samplerCube pointShadowMap5;
uniform samplerCube pointShadowMap6;

uniform DirLight dirLight;
uniform PointLight pointLights[MAX_POINT_LIGHTS];
uniform int numberPointLights;
uniform vec3 viewPos;
uniform vec3 skyColor;
uniform float shininess;

float dirShadow(vec3 fragPos, vec3 normal, vec3 lightDir)
{
    vec4 ls = dirLight.lightSpaceMatrix * vec4(fragPos, 1.0);
    vec3 proj = ls.xyz / ls.w * 0.5 + 0.5;
    if (proj.z > 1.0)
        return 0.0;
    float bias = max(0.005 * (1.0 - dot(normal, lightDir)), 0.0005);
    vec2 texel = 1.0 / vec2(textureSize(dirShadowMap, 0));
    float shadow = 0.0;
    for (int x = -1; x <= 1; ++x) {
        for (int y = -1; y <= 1; ++y) {
            float closest = texture(dirShadowMap, proj.xy + vec2(x, y) * texel).r;
            shadow += proj.z - bias > closest ? 1.0 : 0.0;
        }
    }
    return shadow / 9.0;
}

float sampleCube(int index, vec3 dir)
{
    if (index == 0) return texture(pointShadowMap0, dir).r;
    if (index == 1) return texture(pointShadowMap1, dir).r;
    if (index == 2) return texture(pointShadowMap2, dir).r;
    if (index == 3) return texture(pointShadowMap3, dir).r;
    if (index == 4) return texture(pointShadowMap4, dir).r;
    if (index == 5) return texture(pointShadowMap5, dir).r;
    return texture(pointShadowMap6, dir).r;
}

float pointShadow(PointLight light, vec3 fragPos)
{
    if (light.shadowIndex < 0)
        return 0.0;
    vec3 fragToLight = fragPos - light.position;
    float current = length(fragToLight);
    float closest = sampleCube(light.shadowIndex, fragToLight) * light.farPlane;
    return current - 0.05 > closest ? 1.0 : 0.0;
}

void main()
{
    vec4 position = texture(gPosition, TexCoords);
    if (position.a == 0.0) {
        FragColor = vec4(skyColor, 1.0);
        return;
    }
    vec3 fragPos = position.xyz;
    vec3 normal = normalize(texture(gNormal, TexCoords).rgb);
    vec3 albedo = texture(gAlbedoSpec, TexCoords).rgb;
    float specularStrength = texture(gAlbedoSpec, TexCoords).a;
    float occlusion = texture(ssao, TexCoords).r;
    vec3 viewDir = normalize(viewPos - fragPos);

    vec3 lightDir = normalize(-dirLight.direction);
    vec3 halfway = normalize(lightDir + viewDir);
    float diff = max(dot(normal, lightDir), 0.0);
    float spec = pow(max(dot(normal, halfway), 0.0), shininess);
    float shadow = dirLight.castsShadow ? dirShadow(fragPos, normal, lightDir) : 0.0;
    vec3 color = dirLight.ambient * albedo * occlusion
        + (1.0 - shadow) * (dirLight.diffuse * diff * albedo + dirLight.specular * spec * specularStrength);

    for (int i = 0; i < numberPointLights && i < MAX_POINT_LIGHTS; ++i) {
        PointLight light = pointLights[i];
        vec3 toLight = light.position - fragPos;
        float distance = length(toLight);
        vec3 l = toLight / distance;
        vec3 h = normalize(l + viewDir);
        float attenuation = 1.0 / (1.0 + light.linear * distance + light.quadratic * distance * distance);
        float d = max(dot(normal, l), 0.0);
        float s = pow(max(dot(normal, h), 0.0), shininess);
        float ps = pointShadow(light, fragPos);
        color += attenuation * (light.ambient * albedo * occlusion
            + (1.0 - ps) * (light.diffuse * d * albedo + light.specular * s * specularStrength));
    }
    FragColor = vec4(color, 1.0);
}
`

var forwardFragment = `#version 410 core
in vec2 TexCoords;
out vec4 FragColor;

uniform sampler2D texture_diffuse1;
uniform vec3 tint;

void main()
{
    FragColor = vec4(texture(texture_diffuse1, TexCoords).rgb * tint, 1.0);
}
`

var brightFragment = `#version 410 core
in vec2 TexCoords;
out vec4 FragColor;

uniform sampler2D colorBuffer;
uniform float threshold;

void main()
{
    vec3 color = texture(colorBuffer, TexCoords).rgb;
    float luminance = dot(color, vec3(0.2126, 0.7152, 0.0722));
    FragColor = luminance > threshold ? vec4(color, 1.0) : vec4(0.0, 0.0, 0.0, 1.0);
}
`

var compositeFragment = `#version 410 core
in vec2 TexCoords;
out vec4 FragColor;

uniform sampler2D colorBuffer;
uniform sampler2D bloomBlur;
uniform float exposure;
uniform float gamma;
uniform float bloomScale;

void main()
{
    vec3 hdr = texture(colorBuffer, TexCoords).rgb;
    vec3 bloom = texture(bloomBlur, TexCoords).rgb;
    hdr += bloom * bloomScale;
    vec3 mapped = vec3(1.0) - exp(-hdr * exposure);
    FragColor = vec4(pow(mapped, vec3(1.0 / gamma)), 1.0);
}
`

var debugFragment = `#version 410 core
in vec2 TexCoords;
out vec4 FragColor;

uniform sampler2D debugTexture;
uniform bool singleChannel;
uniform float scale;

void main()
{
    vec4 t = texture(debugTexture, TexCoords);
    vec3 c = singleChannel ? vec3(t.r) : t.rgb;
    FragColor = vec4(c * scale, 1.0);
}
`

var ssaoFragment = `#version 410 core
#define MAX_KERNEL 64

in vec2 TexCoords;
out float FragColor;

uniform sampler2D gPosition;
uniform sampler2D gNormal;
uniform sampler2D texNoise;

uniform vec3 samples[MAX_KERNEL];
uniform int kernelSize;
uniform float radius;
uniform float bias;
uniform mat4 projection;
uniform mat4 view;
uniform vec2 screenRes;

void main()
{
    vec4 worldPos = texture(gPosition, TexCoords);
    if (worldPos.a == 0.0) {
        FragColor = 1.0;
        return;
    }
    vec3 fragPos = (view * vec4(worldPos.xyz, 1.0)).xyz;
    vec3 normal = normalize(mat3(view) * texture(gNormal, TexCoords).rgb);
    vec2 noiseScale = screenRes / 4.0;
    vec3 randomVec = normalize(texture(texNoise, TexCoords * noiseScale).xyz);

    vec3 tangent = normalize(randomVec - normal * dot(randomVec, normal));
    vec3 bitangent = cross(normal, tangent);
    mat3 TBN = mat3(tangent, bitangent, normal);

    float occlusion = 0.0;
    for (int i = 0; i < kernelSize; ++i) {
        vec3 samplePos = fragPos + TBN * samples[i] * radius;
        vec4 offset = projection * vec4(samplePos, 1.0);
        offset.xyz = offset.xyz / offset.w * 0.5 + 0.5;
        vec4 occluder = texture(gPosition, offset.xy);
        float sampleDepth = (view * vec4(occluder.xyz, 1.0)).z;
        float rangeCheck = smoothstep(0.0, 1.0, radius / abs(fragPos.z - sampleDepth));
        occlusion += (occluder.a > 0.0 && sampleDepth >= samplePos.z + bias ? 1.0 : 0.0) * rangeCheck;
    }
    FragColor = 1.0 - occlusion / float(kernelSize);
}
`

var ssaoBlurFragment = `#version 410 core
in vec2 TexCoords;
out float FragColor;

uniform sampler2D ssaoInput;

void main()
{
    vec2 texel = 1.0 / vec2(textureSize(ssaoInput, 0));
    float result = 0.0;
    for (int x = -2; x < 2; ++x) {
        for (int y = -2; y < 2; ++y) {
            result += texture(ssaoInput, TexCoords + vec2(float(x), float(y)) * texel).r;
        }
    }
    FragColor = result / 16.0;
}
`

var dirDepthVertex = `#version 410 core
layout (location = 0) in vec3 aPos;

uniform mat4 lightSpaceMatrix;
uniform mat4 model;

void main()
{
    gl_Position = lightSpaceMatrix * model * vec4(aPos, 1.0);
}
`

var emptyFragment = `#version 410 core
void main()
{
}
`

var pointDepthVertex = `#version 410 core
layout (location = 0) in vec3 aPos;

uniform mat4 model;

void main()
{
    gl_Position = model * vec4(aPos, 1.0);
}
`

var pointDepthGeometry = `#version 410 core
layout (triangles) in;
layout (triangle_strip, max_vertices = 18) out;

uniform mat4 shadowMatrices[6];

out vec4 FragPos;

void main()
{
    for (int face = 0; face < 6; ++face) {
        gl_Layer = face;
        for (int i = 0; i < 3; ++i) {
            FragPos = gl_in[i].gl_Position;
            gl_Position = shadowMatrices[face] * FragPos;
            EmitVertex();
        }
        EndPrimitive();
    }
}
`

var pointDepthFragment = `#version 410 core
in vec4 FragPos;

uniform vec3 lightPos;
uniform float farPlane;

void main()
{
    gl_FragDepth = length(FragPos.xyz - lightPos) / farPlane;
}
`
