package assettypes

import (
	"path/filepath"
	"strings"
)

// ModelExtensions maps file extensions to whether they are recognized
// 3D-asset formats. A directory directly containing at least one of these
// is treated as a model folder.
var ModelExtensions = map[string]bool{
	".stl":   true,
	".obj":   true,
	".3mf":   true,
	".amf":   true,
	".ply":   true,
	".step":  true,
	".stp":   true,
	".iges":  true,
	".igs":   true,
	".fbx":   true,
	".gltf":  true,
	".glb":   true,
	".blend": true,
	".f3d":   true,
	".scad":  true,
	".gcode": true,
}

// ImageExtensions maps file extensions to whether they are supported
// preview image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
}

// SidecarNames lists recognized sidecar description files, in lookup order.
var SidecarNames = []string{"README.md", "readme.md", "description.txt"}

// mimeTypes maps model extensions to their MIME types. Formats without a
// registered type fall back to application/octet-stream.
var mimeTypes = map[string]string{
	".stl":  "model/stl",
	".obj":  "model/obj",
	".3mf":  "model/3mf",
	".ply":  "model/ply",
	".gltf": "model/gltf+json",
	".glb":  "model/gltf-binary",
	".step": "model/step",
	".stp":  "model/step",
}

// IsModelFile reports whether name has a recognized 3D-asset extension.
func IsModelFile(name string) bool {
	return ModelExtensions[strings.ToLower(filepath.Ext(name))]
}

// IsImageFile reports whether name has a recognized image extension.
func IsImageFile(name string) bool {
	return ImageExtensions[strings.ToLower(filepath.Ext(name))]
}

// GetMimeType returns the MIME type for a model file extension.
func GetMimeType(ext string) string {
	if mime, ok := mimeTypes[strings.ToLower(ext)]; ok {
		return mime
	}
	return "application/octet-stream"
}
