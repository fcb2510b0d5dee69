package loader

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Load picks a loader by file extension and returns every mesh in the file.
func Load(path string) ([]*MeshData, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".obj":
		m, err := LoadOBJ(path, false)
		if err != nil {
			return nil, err
		}
		return []*MeshData{m}, nil
	case ".gltf", ".glb":
		return LoadGLTF(path)
	default:
		return nil, fmt.Errorf("unsupported model format %q", ext)
	}
}
