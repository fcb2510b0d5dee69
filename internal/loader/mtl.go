package loader

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"Prism3D/internal/logger"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// LoadMaterials reads a .mtl file. Texture paths are resolved relative to
// the file.
func LoadMaterials(filename string) (map[string]MaterialInfo, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	dir := filepath.Dir(filename)
	resolve := func(fields []string) string {
		// Options may precede the path; the path is always last.
		p := fields[len(fields)-1]
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	materials := make(map[string]MaterialInfo)
	var current *MaterialInfo
	flush := func() {
		if current != nil {
			materials[current.Name] = *current
		}
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "newmtl" {
			if len(fields) < 2 {
				logger.Log.Warn("Malformed material line", zap.String("file", filename))
				continue
			}
			flush()
			current = &MaterialInfo{Name: fields[1], DiffuseColor: mgl32.Vec3{1, 1, 1}, Shininess: 32}
			continue
		}
		if current == nil || len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "Kd":
			if len(fields) == 4 {
				current.DiffuseColor = parseColor(fields[1:])
			}
		case "Ns":
			current.Shininess = parseFloat(fields[1])
		case "map_Kd":
			current.DiffuseMap = resolve(fields[1:])
		case "map_Ks":
			current.SpecularMap = resolve(fields[1:])
		case "map_Bump", "map_bump", "bump", "norm":
			current.NormalMap = resolve(fields[1:])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	flush()
	return materials, nil
}

func parseColor(fields []string) mgl32.Vec3 {
	var c mgl32.Vec3
	for i, field := range fields {
		c[i] = parseFloat(field)
	}
	return c
}

func parseFloat(s string) float32 {
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		logger.Log.Warn("Invalid material value", zap.String("value", s), zap.Error(err))
		return 0
	}
	return float32(f)
}
