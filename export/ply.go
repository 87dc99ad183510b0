package export

import (
	"bufio"
	"bytes"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/depthfuse/depthfuse/pointcloud"
	"github.com/depthfuse/depthfuse/scene"
)

// WritePLY serializes the cloud as an ASCII PLY file: a float32-precision
// position and an 8-bit color per vertex. The units comment labels relative
// geometry as unscaled rather than silently treating it as metric. An empty
// cloud produces a structurally valid zero-vertex file.
func WritePLY(out io.Writer, cloud *pointcloud.PointCloud, units scene.Units) error {
	w := bufio.NewWriter(out)
	if _, err := fmt.Fprintf(w,
		"ply\nformat ascii 1.0\ncomment units %s\nelement vertex %d\n"+
			"property float x\nproperty float y\nproperty float z\n"+
			"property uchar red\nproperty uchar green\nproperty uchar blue\nend_header\n",
		units, cloud.Size()); err != nil {
		return err
	}
	var werr error
	cloud.Iterate(func(i int, p pointcloud.Point) bool {
		_, werr = fmt.Fprintf(w, "%.6f %.6f %.6f %d %d %d\n",
			p.Position.X, p.Position.Y, p.Position.Z,
			p.Color.R, p.Color.G, p.Color.B)
		return werr == nil
	})
	if werr != nil {
		return werr
	}
	return w.Flush()
}

// ReadPLY parses an ASCII PLY point cloud written by WritePLY or any
// conforming writer using the same vertex properties.
func ReadPLY(in io.Reader) (*pointcloud.PointCloud, error) {
	r := bufio.NewReader(in)

	line, err := readPLYLine(r)
	if err != nil || line != "ply" {
		return nil, errors.New("not a ply file")
	}

	vertexCount := -1
	for {
		line, err = readPLYLine(r)
		if err != nil {
			return nil, errors.Wrap(err, "reading ply header")
		}
		switch {
		case line == "end_header":
		case strings.HasPrefix(line, "comment"):
			continue
		case strings.HasPrefix(line, "format "):
			if line != "format ascii 1.0" {
				return nil, errors.Errorf("unsupported ply format %q", line)
			}
			continue
		case strings.HasPrefix(line, "element vertex "):
			vertexCount, err = strconv.Atoi(strings.TrimPrefix(line, "element vertex "))
			if err != nil {
				return nil, errors.Wrap(err, "parsing vertex count")
			}
			continue
		case strings.HasPrefix(line, "element "), strings.HasPrefix(line, "property "):
			continue
		default:
			return nil, errors.Errorf("unexpected ply header line %q", line)
		}
		break
	}
	if vertexCount < 0 {
		return nil, errors.New("ply header is missing the vertex element")
	}

	cloud := pointcloud.NewWithPrealloc(vertexCount)
	for i := 0; i < vertexCount; i++ {
		line, err = readPLYLine(r)
		if err != nil {
			return nil, errors.Wrapf(err, "reading vertex %d", i)
		}
		fields := strings.Fields(line)
		if len(fields) != 6 {
			return nil, errors.Errorf("vertex %d has %d fields, want 6", i, len(fields))
		}
		var pos [3]float64
		var rgb [3]uint8
		for j := 0; j < 3; j++ {
			if pos[j], err = strconv.ParseFloat(fields[j], 64); err != nil {
				return nil, errors.Wrapf(err, "parsing vertex %d position", i)
			}
			c, cerr := strconv.ParseUint(fields[3+j], 10, 8)
			if cerr != nil {
				return nil, errors.Wrapf(cerr, "parsing vertex %d color", i)
			}
			rgb[j] = uint8(c)
		}
		cloud.Append(pointcloud.Point{
			Position:   r3.Vector{X: pos[0], Y: pos[1], Z: pos[2]},
			Color:      color.NRGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255},
			PixelIndex: i,
		})
	}
	return cloud, nil
}

func readPLYLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func exportPLY(in Input) (Artifact, error) {
	var buf bytes.Buffer
	if err := WritePLY(&buf, in.Cloud, in.Prediction.Units); err != nil {
		return Artifact{}, err
	}
	return Artifact{Name: "scene.ply", Data: buf.Bytes()}, nil
}
