package loader

import (
	"fmt"
	"path/filepath"

	"Prism3D/internal/logger"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"
)

// LoadGLTF reads a .gltf or .glb file and returns one mesh per primitive,
// with node transforms baked into the vertices.
func LoadGLTF(path string) ([]*MeshData, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}
	dir := filepath.Dir(path)

	materials := make([]MaterialInfo, len(doc.Materials))
	for i, gm := range doc.Materials {
		materials[i] = gltfMaterial(doc, dir, gm)
	}

	var meshes []*MeshData
	var visit func(node int, parent mgl32.Mat4)
	visit = func(node int, parent mgl32.Mat4) {
		n := doc.Nodes[node]
		world := parent.Mul4(nodeMatrix(n))
		if n.Mesh != nil && *n.Mesh < len(doc.Meshes) {
			gm := doc.Meshes[*n.Mesh]
			for pi, prim := range gm.Primitives {
				m, err := loadGLTFPrimitive(doc, prim, world)
				if err != nil {
					logger.Log.Warn("Skipping glTF primitive",
						zap.String("mesh", gm.Name),
						zap.Int("primitive", pi),
						zap.Error(err))
					continue
				}
				m.Name = fmt.Sprintf("%s_p%d", gm.Name, pi)
				if prim.Material != nil && *prim.Material < len(materials) {
					m.Material = materials[*prim.Material]
				}
				meshes = append(meshes, m)
			}
		}
		for _, child := range n.Children {
			if child < len(doc.Nodes) {
				visit(child, world)
			}
		}
	}
	for _, root := range gltfRoots(doc) {
		visit(root, mgl32.Ident4())
	}

	if len(meshes) == 0 {
		return nil, fmt.Errorf("gltf %q: no loadable meshes", path)
	}
	logger.Log.Info("glTF model loaded",
		zap.String("file", path),
		zap.Int("meshes", len(meshes)),
		zap.Int("materials", len(materials)))
	return meshes, nil
}

// gltfRoots returns the default scene's nodes, or every parentless node
// when the file has no default scene.
func gltfRoots(doc *gltf.Document) []int {
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		return doc.Scenes[*doc.Scene].Nodes
	}
	hasParent := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c < len(hasParent) {
				hasParent[c] = true
			}
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !hasParent[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

func nodeMatrix(n *gltf.Node) mgl32.Mat4 {
	if mat := n.MatrixOrDefault(); mat != gltf.DefaultMatrix {
		var m mgl32.Mat4
		for i, v := range mat {
			m[i] = float32(v)
		}
		return m
	}
	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()
	q := mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
	return mgl32.Translate3D(float32(t[0]), float32(t[1]), float32(t[2])).
		Mul4(q.Mat4()).
		Mul4(mgl32.Scale3D(float32(s[0]), float32(s[1]), float32(s[2])))
}

func gltfMaterial(doc *gltf.Document, dir string, gm *gltf.Material) MaterialInfo {
	mat := MaterialInfo{Name: gm.Name, DiffuseColor: mgl32.Vec3{1, 1, 1}, Shininess: 32}
	if pbr := gm.PBRMetallicRoughness; pbr != nil {
		cf := pbr.BaseColorFactorOrDefault()
		mat.DiffuseColor = mgl32.Vec3{float32(cf[0]), float32(cf[1]), float32(cf[2])}
		// Smooth surfaces get a tight highlight.
		rough := float32(pbr.RoughnessFactorOrDefault())
		mat.Shininess = (1-rough)*(1-rough)*128 + 1
		if pbr.BaseColorTexture != nil {
			mat.DiffuseMap, mat.EmbeddedImage = gltfImage(doc, dir, pbr.BaseColorTexture.Index)
		}
	}
	if gm.NormalTexture != nil && gm.NormalTexture.Index != nil {
		mat.NormalMap, _ = gltfImage(doc, dir, *gm.NormalTexture.Index)
	}
	return mat
}

// gltfImage resolves a texture to a file path, or to the encoded bytes
// when the image lives in a buffer view.
func gltfImage(doc *gltf.Document, dir string, texture int) (string, []byte) {
	if texture < 0 || texture >= len(doc.Textures) || doc.Textures[texture].Source == nil {
		return "", nil
	}
	img := doc.Images[*doc.Textures[texture].Source]
	if img.BufferView != nil {
		raw, err := modeler.ReadBufferView(doc, doc.BufferViews[*img.BufferView])
		if err != nil {
			logger.Log.Warn("Embedded glTF image unreadable", zap.Error(err))
			return "", nil
		}
		return "", raw
	}
	if img.URI != "" && !img.IsEmbeddedResource() {
		return filepath.Join(dir, img.URI), nil
	}
	return "", nil
}

func loadGLTFPrimitive(doc *gltf.Document, prim *gltf.Primitive, world mgl32.Mat4) (*MeshData, error) {
	if prim.Mode != gltf.PrimitiveTriangles {
		return nil, fmt.Errorf("unsupported primitive mode %v", prim.Mode)
	}
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, fmt.Errorf("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	var normals [][3]float32
	var uvs [][2]float32
	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		if normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil); err != nil {
			return nil, fmt.Errorf("normals: %w", err)
		}
	}
	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		if uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil); err != nil {
			return nil, fmt.Errorf("uvs: %w", err)
		}
	}

	normalMatrix := world.Mat3().Inv().Transpose()
	m := &MeshData{}
	for i, p := range positions {
		pos := world.Mul4x1(mgl32.Vec3(p).Vec4(1)).Vec3()
		normal := mgl32.Vec3{0, 1, 0}
		if i < len(normals) {
			normal = normalMatrix.Mul3x1(mgl32.Vec3(normals[i])).Normalize()
		}
		var uv mgl32.Vec2
		if i < len(uvs) {
			// glTF puts the UV origin at the top left.
			uv = mgl32.Vec2{uvs[i][0], 1 - uvs[i][1]}
		}
		m.appendVertex(pos, normal, uv)
	}

	if prim.Indices != nil {
		if m.Indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil); err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
	}
	if len(normals) == 0 {
		RecalculateNormals(m)
	}
	ComputeTangents(m)
	return m, nil
}
