// Package export serializes fused scenes into interchange formats: ASCII PLY
// point clouds, binary glTF (GLB) scenes with per-view cameras, and NPZ
// archives of the raw per-view arrays.
package export

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/depthfuse/depthfuse/pointcloud"
	"github.com/depthfuse/depthfuse/scene"
)

// Format names a supported output serialization.
type Format string

const (
	// FormatPLY is an ASCII PLY point cloud.
	FormatPLY = Format("ply")
	// FormatGLB is a binary glTF scene with a point primitive and one camera
	// node per input view.
	FormatGLB = Format("glb")
	// FormatNPZ is a zip archive of NPY arrays holding the raw per-view
	// depth, confidence, pose, and intrinsics data.
	FormatNPZ = Format("npz")
)

// ErrUnknownFormat is returned, wrapped with the offending name, when a
// requested format has no registered exporter.
var ErrUnknownFormat = errors.New("unknown export format")

// Input bundles everything an exporter may draw on. Exporters read it;
// none of them mutate it.
type Input struct {
	Prediction *scene.Prediction
	Cloud      *pointcloud.PointCloud
}

// Artifact is one serialized output file.
type Artifact struct {
	Name string
	Data []byte
}

type exporterFunc func(Input) (Artifact, error)

var exporters = map[Format]exporterFunc{
	FormatPLY: exportPLY,
	FormatGLB: exportGLB,
	FormatNPZ: exportNPZ,
}

// CheckValid returns an error for formats with no registered exporter.
func (f Format) CheckValid() error {
	if _, ok := exporters[f]; !ok {
		return errors.Wrapf(ErrUnknownFormat, "%q", string(f))
	}
	return nil
}

// Export serializes the input into every requested format, in request order.
// All formats are validated before any serialization starts, so an unknown
// format never produces partial output. Serialization errors are collected
// across formats rather than aborting at the first failure.
func Export(in Input, formats []Format) ([]Artifact, error) {
	if in.Prediction == nil || in.Cloud == nil {
		return nil, errors.New("export input requires both a prediction and a cloud")
	}
	if len(formats) == 0 {
		return nil, errors.New("no export formats requested")
	}
	for _, f := range formats {
		if err := f.CheckValid(); err != nil {
			return nil, err
		}
	}

	var artifacts []Artifact
	var errs error
	for _, f := range formats {
		artifact, err := exporters[f](in)
		if err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "exporting %s", f))
			continue
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, errs
}
