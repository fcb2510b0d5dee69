package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"Prism3D/internal/logger"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// FaceVertex is one corner of an OBJ face. Indices are zero-based; -1
// means the attribute was omitted.
type FaceVertex struct {
	VertexIdx   int32
	TexCoordIdx int32
	NormalIdx   int32
}

// LoadOBJ reads a Wavefront OBJ file. Each distinct position/uv/normal
// triple becomes one vertex. Missing or unreliable normals can be rebuilt
// from the faces with recalculateNormals.
func LoadOBJ(filename string, recalculateNormals bool) (*MeshData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	m, mtllib, usemtl, err := parseOBJ(file, recalculateNormals)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	m.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	if mtllib != "" {
		materials, err := LoadMaterials(filepath.Join(filepath.Dir(filename), mtllib))
		if err != nil {
			logger.Log.Warn("Material library unavailable", zap.String("file", mtllib), zap.Error(err))
		} else if mat, ok := materials[usemtl]; ok {
			m.Material = mat
		} else {
			logger.Log.Debug("Material not found", zap.String("material", usemtl))
		}
	}

	logger.Log.Info("OBJ model loaded",
		zap.String("file", filename),
		zap.Int("vertices", m.VertexCount()),
		zap.Int("triangles", m.TriangleCount()),
		zap.String("material", m.Material.Name))
	return m, nil
}

// parseOBJ builds the mesh and reports the material library and the first
// material used. Only one material per mesh is kept.
func parseOBJ(r io.Reader, recalculateNormals bool) (m *MeshData, mtllib, usemtl string, err error) {
	var (
		positions []mgl32.Vec3
		texCoords []mgl32.Vec2
		normals   []mgl32.Vec3
		corners   []FaceVertex
	)

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		switch parts[0] {
		case "v":
			v, err := parseVec3(parts[1:])
			if err != nil {
				return nil, "", "", fmt.Errorf("line %d: vertex: %w", line, err)
			}
			positions = append(positions, v)
		case "vn":
			v, err := parseVec3(parts[1:])
			if err != nil {
				return nil, "", "", fmt.Errorf("line %d: normal: %w", line, err)
			}
			normals = append(normals, v)
		case "vt":
			uv, err := parseTextureCoordinate(parts[1:])
			if err != nil {
				return nil, "", "", fmt.Errorf("line %d: texture coordinate: %w", line, err)
			}
			texCoords = append(texCoords, uv)
		case "f":
			face, err := parseFace(parts[1:], len(positions), len(texCoords), len(normals))
			if err != nil {
				return nil, "", "", fmt.Errorf("line %d: face: %w", line, err)
			}
			corners = append(corners, face...)
		case "mtllib":
			if len(parts) >= 2 {
				mtllib = parts[1]
			}
		case "usemtl":
			if len(parts) >= 2 && usemtl == "" {
				usemtl = parts[1]
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, "", "", err
	}

	m = &MeshData{}
	type vertexKey struct{ v, vt, vn int32 }
	seen := make(map[vertexKey]uint32, len(corners))
	for _, fv := range corners {
		key := vertexKey{fv.VertexIdx, fv.TexCoordIdx, fv.NormalIdx}
		if idx, ok := seen[key]; ok {
			m.Indices = append(m.Indices, idx)
			continue
		}
		if int(fv.VertexIdx) >= len(positions) || fv.VertexIdx < 0 {
			return nil, "", "", fmt.Errorf("vertex index %d out of range (%d positions)", fv.VertexIdx+1, len(positions))
		}
		pos := positions[fv.VertexIdx]
		var uv mgl32.Vec2
		if fv.TexCoordIdx >= 0 && int(fv.TexCoordIdx) < len(texCoords) {
			uv = texCoords[fv.TexCoordIdx]
		}
		normal := mgl32.Vec3{0, 1, 0}
		if fv.NormalIdx >= 0 && int(fv.NormalIdx) < len(normals) {
			normal = normals[fv.NormalIdx]
		}
		idx := m.appendVertex(pos, normal, uv)
		seen[key] = idx
		m.Indices = append(m.Indices, idx)
	}

	if recalculateNormals || len(normals) == 0 {
		RecalculateNormals(m)
	}
	ComputeTangents(m)
	return m, mtllib, usemtl, nil
}

func parseVec3(parts []string) (mgl32.Vec3, error) {
	var v mgl32.Vec3
	if len(parts) < 3 {
		return v, fmt.Errorf("need 3 components, got %d", len(parts))
	}
	for i := 0; i < 3; i++ {
		val, err := strconv.ParseFloat(parts[i], 32)
		if err != nil {
			return v, fmt.Errorf("invalid value %q: %w", parts[i], err)
		}
		v[i] = float32(val)
	}
	return v, nil
}

func parseTextureCoordinate(parts []string) (mgl32.Vec2, error) {
	var uv mgl32.Vec2
	if len(parts) < 2 {
		return uv, fmt.Errorf("need 2 components, got %d", len(parts))
	}
	for i := 0; i < 2; i++ {
		val, err := strconv.ParseFloat(parts[i], 32)
		if err != nil {
			return uv, fmt.Errorf("invalid value %q: %w", parts[i], err)
		}
		uv[i] = float32(val)
	}
	return uv, nil
}

// objIndex converts a one-based or negative (relative) OBJ index to a
// zero-based one.
func objIndex(s string, count int) (int32, error) {
	i, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q: %w", s, err)
	}
	if i < 0 {
		return int32(count) + int32(i), nil
	}
	return int32(i - 1), nil
}

// parseFace reads one face and triangulates it: quads split into two
// triangles, larger polygons into a fan from the first corner.
func parseFace(parts []string, nPos, nTex, nNorm int) ([]FaceVertex, error) {
	if len(parts) < 3 {
		return nil, fmt.Errorf("need at least 3 corners, got %d", len(parts))
	}
	face := make([]FaceVertex, 0, len(parts))
	for _, part := range parts {
		vals := strings.Split(part, "/")
		fv := FaceVertex{TexCoordIdx: -1, NormalIdx: -1}
		var err error
		if fv.VertexIdx, err = objIndex(vals[0], nPos); err != nil {
			return nil, err
		}
		if len(vals) > 1 && vals[1] != "" {
			if fv.TexCoordIdx, err = objIndex(vals[1], nTex); err != nil {
				return nil, err
			}
		}
		if len(vals) > 2 && vals[2] != "" {
			if fv.NormalIdx, err = objIndex(vals[2], nNorm); err != nil {
				return nil, err
			}
		}
		face = append(face, fv)
	}

	if len(face) == 3 {
		return face, nil
	}
	if len(face) > 4 {
		logger.Log.Debug("Fan-triangulating polygon", zap.Int("vertexCount", len(face)))
	}
	out := make([]FaceVertex, 0, (len(face)-2)*3)
	for i := 1; i < len(face)-1; i++ {
		out = append(out, face[0], face[i], face[i+1])
	}
	return out, nil
}

// RecalculateNormals replaces every vertex normal with the normalised sum
// of the face normals of the triangles using it.
func RecalculateNormals(m *MeshData) {
	n := m.VertexCount()
	if n == 0 {
		return
	}
	acc := make([]mgl32.Vec3, n)
	m.triangles(func(a, b, c uint32) {
		if int(max(a, b, c)) >= n {
			return
		}
		p0, p1, p2 := m.Position(int(a)), m.Position(int(b)), m.Position(int(c))
		// Unnormalised, so larger faces weigh more.
		fn := p1.Sub(p0).Cross(p2.Sub(p0))
		acc[a] = acc[a].Add(fn)
		acc[b] = acc[b].Add(fn)
		acc[c] = acc[c].Add(fn)
	})
	for i, v := range acc {
		if v.Len() > 0 {
			m.setVec3At(i, offsetNormal, v.Normalize())
		}
	}
}
